package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	// Fixed per-tick movement. Movement is not scaled by dt.
	ProgressStep float64 `yaml:"progress_step"`
	LaneStep     float64 `yaml:"lane_step"`
	LaneDeadband float64 `yaml:"lane_deadband"`

	MultiplierWindow Window    `yaml:"multiplier_window"`
	Collector        Collector `yaml:"collector"`

	// Lane-axis coordinate per lane id.
	Lanes map[string]float64 `yaml:"lanes"`

	GlobalMultiplier    int64 `yaml:"global_multiplier"`
	CollectorClickValue int64 `yaml:"collector_click_value"`

	// Upper bound on spawns a single source may catch up on in one tick.
	MaxCatchUpSpawns int `yaml:"max_catch_up_spawns"`
}

// Window is a half-width proximity test on both axes.
type Window struct {
	Progress float64 `yaml:"progress"`
	Lane     float64 `yaml:"lane"`
}

type Collector struct {
	X      float64 `yaml:"x"`
	Z      float64 `yaml:"z"`
	Window Window  `yaml:"window"`
}

// Defaults returns the stock factory floor layout.
func Defaults() Tuning {
	return Tuning{
		TickRateHz:       60,
		ProgressStep:     0.05,
		LaneStep:         0.02,
		LaneDeadband:     0.05,
		MultiplierWindow: Window{Progress: 0.4, Lane: 0.5},
		Collector: Collector{
			X:      4.75,
			Z:      -1.25,
			Window: Window{Progress: 0.5, Lane: 2},
		},
		Lanes:               map[string]float64{"main": 0, "void": -2.5},
		GlobalMultiplier:    1,
		CollectorClickValue: 1,
		MaxCatchUpSpawns:    4,
	}
}

// Load reads a tuning file. Missing fields keep their default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	t.Lanes = nil
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Defaults(), fmt.Errorf("tuning.yaml: %w", err)
	}
	if len(t.Lanes) == 0 {
		t.Lanes = Defaults().Lanes
	}
	if err := t.Validate(); err != nil {
		return Defaults(), fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate checks ranges and the floor geometry: one progress step can never
// jump over a whole zone, and every lane must pass through the collector.
func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive")
	}
	if t.ProgressStep <= 0 || t.LaneStep <= 0 {
		return fmt.Errorf("progress_step and lane_step must be positive")
	}
	if t.LaneDeadband < 0 {
		return fmt.Errorf("lane_deadband must not be negative")
	}
	if t.MultiplierWindow.Progress <= 0 || t.MultiplierWindow.Lane <= 0 {
		return fmt.Errorf("multiplier_window must be positive")
	}
	if t.Collector.Window.Progress <= 0 || t.Collector.Window.Lane <= 0 {
		return fmt.Errorf("collector.window must be positive")
	}
	if t.ProgressStep >= 2*t.MultiplierWindow.Progress {
		return fmt.Errorf("progress_step %.3f skips multiplier zones (width %.3f)", t.ProgressStep, 2*t.MultiplierWindow.Progress)
	}
	if t.ProgressStep >= 2*t.Collector.Window.Progress {
		return fmt.Errorf("progress_step %.3f skips the collector zone (width %.3f)", t.ProgressStep, 2*t.Collector.Window.Progress)
	}
	if len(t.Lanes) == 0 {
		return fmt.Errorf("no lanes configured")
	}
	for name, z := range t.Lanes {
		if math.Abs(z-t.Collector.Z) >= t.Collector.Window.Lane {
			return fmt.Errorf("lane %q at z=%.3f is outside the collector lane window (z=%.3f, half-width %.3f)", name, z, t.Collector.Z, t.Collector.Window.Lane)
		}
	}
	if t.GlobalMultiplier <= 0 {
		return fmt.Errorf("global_multiplier must be positive")
	}
	if t.CollectorClickValue < 0 {
		return fmt.Errorf("collector_click_value must not be negative")
	}
	if t.MaxCatchUpSpawns <= 0 {
		return fmt.Errorf("max_catch_up_spawns must be positive")
	}
	return nil
}

func (t Tuning) Digest() string {
	b, _ := yaml.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

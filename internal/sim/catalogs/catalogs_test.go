package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"factorytycoon.dev/internal/sim/tuning"
)

func TestDefault_OrderAndChain(t *testing.T) {
	c := Default()
	items := c.ItemsInPrerequisiteOrder()
	if len(items) != 13 {
		t.Fatalf("items=%d want 13", len(items))
	}
	if items[0].ID != "dropper1" || items[0].Requires != "" {
		t.Fatalf("first item = %+v", items[0])
	}
	for i := 1; i < len(items); i++ {
		if items[i].Requires != items[i-1].ID {
			t.Fatalf("item %s requires %q, want %q", items[i].ID, items[i].Requires, items[i-1].ID)
		}
	}
	if c.Digest == "" {
		t.Fatalf("expected digest")
	}
}

func TestDefault_Effects(t *testing.T) {
	c := Default()
	d1, ok := c.Item("dropper1")
	if !ok {
		t.Fatalf("dropper1 missing")
	}
	src, ok := d1.Effect.(Source)
	if !ok {
		t.Fatalf("dropper1 effect %T", d1.Effect)
	}
	if src.Value != 5 || src.Interval != 2*time.Second || src.Lane != "main" {
		t.Fatalf("dropper1 source = %+v", src)
	}
	if d1.Cost != 0 || d1.X != -5.5 {
		t.Fatalf("dropper1 = %+v", d1)
	}

	u4, _ := c.Item("upgrader4")
	m, ok := u4.Effect.(Multiplier)
	if !ok || m.Factor != 10 || m.Lane != "void" {
		t.Fatalf("upgrader4 effect = %#v", u4.Effect)
	}
	if lane, ok := u4.Lane(); !ok || lane != "void" {
		t.Fatalf("upgrader4 lane = %q %v", lane, ok)
	}

	roof, _ := c.Item("roof")
	if roof.Kind() != KindStructure {
		t.Fatalf("roof kind = %s", roof.Kind())
	}
	if _, ok := roof.Lane(); ok {
		t.Fatalf("structures have no lane")
	}
}

func TestIsUnlocked(t *testing.T) {
	c := Default()
	d1, _ := c.Item("dropper1")
	rails, _ := c.Item("conveyor_rails")

	if !IsUnlocked(d1, nil) {
		t.Fatalf("root item must be unlocked")
	}
	if IsUnlocked(rails, NewSet()) {
		t.Fatalf("rails should be locked without dropper1")
	}
	if !IsUnlocked(rails, NewSet("dropper1")) {
		t.Fatalf("rails should unlock after dropper1")
	}
}

func TestNew_RejectsBadCatalogs(t *testing.T) {
	src := Source{Value: 1, Interval: time.Second, Lane: "main"}
	cases := map[string][]Item{
		"empty id":   {{ID: "", Effect: src}},
		"duplicate":  {{ID: "a", Effect: src}, {ID: "a", Effect: src}},
		"negative":   {{ID: "a", Cost: -1, Effect: src}},
		"no effect":  {{ID: "a"}},
		"no lane":    {{ID: "a", Effect: Source{Value: 1, Interval: time.Second}}},
		"interval":   {{ID: "a", Effect: Source{Value: 1, Lane: "main"}}},
		"factor":     {{ID: "a", Effect: Multiplier{Lane: "main"}}},
		"unknown":    {{ID: "a", Requires: "zzz", Effect: Structure{}}},
		"cycle":      {{ID: "a", Requires: "b", Effect: Structure{}}, {ID: "b", Requires: "a", Effect: Structure{}}},
		"self cycle": {{ID: "a", Requires: "a", Effect: Structure{}}},
	}
	for name, items := range cases {
		if _, err := New(items); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNew_AcceptsDAG(t *testing.T) {
	c, err := New([]Item{
		{ID: "root", Effect: Structure{}},
		{ID: "left", Requires: "root", Effect: Decoration{}},
		{ID: "right", Requires: "root", Effect: Decoration{}},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestLoad_FileAndUnknownKind(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(good, []byte(`items:
  - id: a
    name: A
    kind: source
    value: 3
    interval_ms: 250
    lane: main
  - id: b
    name: B
    cost: 10
    kind: multiplier
    factor: 4
    lane: main
    requires: a
`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(good)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	a, _ := c.Item("a")
	if a.Effect.(Source).Interval != 250*time.Millisecond {
		t.Fatalf("interval = %v", a.Effect.(Source).Interval)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("items:\n  - id: x\n    kind: teleporter\n"), 0o644)
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "teleporter") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestValidateLanes(t *testing.T) {
	c := Default()
	if err := c.ValidateLanes(map[string]float64{"main": 0, "void": -2.5}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := c.ValidateLanes(map[string]float64{"main": 0}); err == nil {
		t.Fatalf("expected unknown lane error")
	}
}

func TestValidateLayout(t *testing.T) {
	tu := tuning.Defaults()
	if err := Default().ValidateLayout(tu); err != nil {
		t.Fatalf("default layout: %v", err)
	}

	far, err := New([]Item{
		{ID: "far", X: 6, Effect: Source{Value: 1, Interval: time.Second, Lane: "main"}},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := far.ValidateLayout(tu); err == nil || !strings.Contains(err.Error(), "past the collector") {
		t.Fatalf("expected source past the collector to be rejected, got %v", err)
	}

	edge, err := New([]Item{
		{ID: "edge", X: tu.Collector.X + tu.Collector.Window.Progress, Effect: Multiplier{Factor: 2, Lane: "main"}},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := edge.ValidateLayout(tu); err == nil {
		t.Fatalf("expected multiplier on the collector edge to be rejected")
	}

	near, err := New([]Item{
		{ID: "near", X: tu.Collector.X + 0.25, Effect: Source{Value: 1, Interval: time.Second, Lane: "main"}},
		{ID: "deco", X: 100, Effect: Decoration{}},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := near.ValidateLayout(tu); err != nil {
		t.Fatalf("source inside the collector rejected: %v", err)
	}

	if err := Default().ValidateLayout(tuning.Tuning{Lanes: map[string]float64{"main": 0}}); err == nil {
		t.Fatalf("expected unknown lane error")
	}
}

func TestConfigCatalogMatchesDefault(t *testing.T) {
	c, err := Load("../../../configs/catalog.yaml")
	if err != nil {
		t.Fatalf("load configs: %v", err)
	}
	if c.Digest != Default().Digest {
		t.Fatalf("configs/catalog.yaml drifted from the built-in catalog")
	}
}

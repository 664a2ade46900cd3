package floor

import "factorytycoon.dev/internal/sim/catalogs"

// Vec2 is a floor position: X runs along the belt towards the collector, Z
// across lanes.
type Vec2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Object is a value-bearing item travelling along a lane.
type Object struct {
	ID        uint64
	BaseValue int64
	Value     int64
	Lane      string
	Pos       Vec2
	TargetZ   float64
	// SourceID is the catalog id of the dropper that emitted it.
	SourceID string

	appliedBy map[string]struct{}
	applied   []string
}

// UpgradedBy reports whether the multiplier machineID already processed o.
func (o *Object) UpgradedBy(machineID string) bool {
	_, ok := o.appliedBy[machineID]
	return ok
}

// Upgrades returns the multiplier ids applied to o, in application order.
func (o *Object) Upgrades() []string {
	return append([]string(nil), o.applied...)
}

func (o *Object) markUpgraded(machineID string) {
	if o.appliedBy == nil {
		o.appliedBy = map[string]struct{}{}
	}
	o.appliedBy[machineID] = struct{}{}
	o.applied = append(o.applied, machineID)
}

// Machine is an owned source or multiplier living on the floor.
type Machine struct {
	Item catalogs.Item
	Pos  Vec2

	// Sources only: simulated time of the next spawn.
	nextSpawn int64
}

// Sink receives floor events. It is called from the goroutine that drives Tick.
type Sink interface {
	ObjectSpawned(o *Object)
	ObjectMoved(o *Object)
	ObjectUpgraded(o *Object, machineID string)
	ObjectCollected(o *Object)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) ObjectSpawned(*Object)          {}
func (NopSink) ObjectMoved(*Object)            {}
func (NopSink) ObjectUpgraded(*Object, string) {}
func (NopSink) ObjectCollected(*Object)        {}

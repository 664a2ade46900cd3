package floor

import (
	"fmt"
	"math"
	"time"

	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/tuning"
)

// Floor is the object simulator. It is not safe for concurrent use: spawn
// schedules are polled inside Tick, so one goroutine drives everything.
type Floor struct {
	tune tuning.Tuning
	sink Sink

	now int64 // simulated nanoseconds

	sources     []*Machine
	multipliers []*Machine // registration order is application order
	machines    map[string]*Machine

	objects []*Object
	nextID  uint64

	ticks     uint64
	collected uint64
}

func New(t tuning.Tuning, sink Sink) *Floor {
	if sink == nil {
		sink = NopSink{}
	}
	return &Floor{
		tune:     t,
		sink:     sink,
		machines: map[string]*Machine{},
	}
}

func (f *Floor) SetSink(s Sink) {
	if s == nil {
		s = NopSink{}
	}
	f.sink = s
}

// Activate puts an owned item on the floor. Sources start spawning one
// interval later; multipliers become influence zones. Other categories have
// no floor presence. Activating the same id twice is a no-op.
func (f *Floor) Activate(it catalogs.Item) {
	if _, ok := f.machines[it.ID]; ok {
		return
	}
	switch e := it.Effect.(type) {
	case catalogs.Source:
		m := &Machine{Item: it, Pos: Vec2{X: it.X, Z: f.laneZ(it.ID, e.Lane)}}
		m.nextSpawn = f.now + int64(e.Interval)
		f.sources = append(f.sources, m)
		f.machines[it.ID] = m
	case catalogs.Multiplier:
		m := &Machine{Item: it, Pos: Vec2{X: it.X, Z: f.laneZ(it.ID, e.Lane)}}
		f.multipliers = append(f.multipliers, m)
		f.machines[it.ID] = m
	}
}

func (f *Floor) laneZ(itemID, lane string) float64 {
	z, ok := f.tune.Lanes[lane]
	if !ok {
		panic(fmt.Sprintf("floor: item %s on unknown lane %q", itemID, lane))
	}
	return z
}

// Tick advances simulated time by dt, emits due spawns, then moves every live
// object one fixed step and resolves multipliers and collection.
func (f *Floor) Tick(dt time.Duration) {
	if dt > 0 {
		f.now += int64(dt)
	}
	f.ticks++
	f.spawnDue()

	live := f.objects[:0]
	for _, o := range f.objects {
		f.move(o)
		f.sink.ObjectMoved(o)
		f.applyMultipliers(o)
		if f.inCollector(o) {
			f.collected++
			f.sink.ObjectCollected(o)
			continue
		}
		live = append(live, o)
	}
	for i := len(live); i < len(f.objects); i++ {
		f.objects[i] = nil
	}
	f.objects = live
}

func (f *Floor) spawnDue() {
	maxCatchUp := f.tune.MaxCatchUpSpawns
	if maxCatchUp <= 0 {
		maxCatchUp = 1
	}
	for _, m := range f.sources {
		src := m.Item.Effect.(catalogs.Source)
		interval := int64(src.Interval)
		n := 0
		for m.nextSpawn <= f.now {
			if n < maxCatchUp {
				f.spawn(m, src)
				n++
			}
			m.nextSpawn += interval
		}
	}
}

func (f *Floor) spawn(m *Machine, src catalogs.Source) {
	f.nextID++
	o := &Object{
		ID:        f.nextID,
		BaseValue: src.Value,
		Value:     src.Value,
		Lane:      src.Lane,
		Pos:       m.Pos,
		TargetZ:   m.Pos.Z,
		SourceID:  m.Item.ID,
	}
	f.objects = append(f.objects, o)
	f.sink.ObjectSpawned(o)
}

func (f *Floor) move(o *Object) {
	if o.Pos.X < f.tune.Collector.X {
		o.Pos.X += f.tune.ProgressStep
	}
	switch {
	case o.Pos.Z > o.TargetZ+f.tune.LaneDeadband:
		o.Pos.Z -= f.tune.LaneStep
	case o.Pos.Z < o.TargetZ-f.tune.LaneDeadband:
		o.Pos.Z += f.tune.LaneStep
	}
}

func (f *Floor) applyMultipliers(o *Object) {
	w := f.tune.MultiplierWindow
	for _, m := range f.multipliers {
		if o.UpgradedBy(m.Item.ID) {
			continue
		}
		if lane, _ := m.Item.Lane(); lane != o.Lane {
			continue
		}
		if math.Abs(o.Pos.X-m.Pos.X) >= w.Progress || math.Abs(o.Pos.Z-m.Pos.Z) >= w.Lane {
			continue
		}
		o.Value *= m.Item.Effect.(catalogs.Multiplier).Factor
		o.markUpgraded(m.Item.ID)
		f.sink.ObjectUpgraded(o, m.Item.ID)
	}
}

func (f *Floor) inCollector(o *Object) bool {
	c := f.tune.Collector
	return math.Abs(o.Pos.X-c.X) < c.Window.Progress && math.Abs(o.Pos.Z-c.Z) < c.Window.Lane
}

// Objects returns the live objects. The slice is a copy; the objects are not.
func (f *Floor) Objects() []*Object {
	return append([]*Object(nil), f.objects...)
}

func (f *Floor) Machines() []*Machine {
	out := make([]*Machine, 0, len(f.sources)+len(f.multipliers))
	out = append(out, f.sources...)
	return append(out, f.multipliers...)
}

func (f *Floor) ObjectCount() int  { return len(f.objects) }
func (f *Floor) MachineCount() int { return len(f.sources) + len(f.multipliers) }

func (f *Floor) Elapsed() time.Duration { return time.Duration(f.now) }
func (f *Floor) Ticks() uint64          { return f.ticks }
func (f *Floor) CollectedTotal() uint64 { return f.collected }

package session

import (
	persistlog "factorytycoon.dev/internal/persistence/log"
	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/floor"
)

// activator receives purchases from the economy engine.
type activator struct{ s *Session }

func (a activator) Activate(it catalogs.Item) { a.s.activate(it) }

func (s *Session) activate(it catalogs.Item) {
	s.floor.Activate(it)
	s.each(func(o Observer) { o.ItemActivated(it) })
}

// floorSink turns floor events into credits and observer callbacks.
type floorSink struct{ s *Session }

func (k floorSink) ObjectSpawned(o *floor.Object) {
	v := viewOf(o)
	k.s.each(func(ob Observer) { ob.ObjectSpawned(v) })
}

func (k floorSink) ObjectMoved(o *floor.Object) {
	if len(k.s.observers) == 0 {
		return
	}
	v := viewOf(o)
	k.s.each(func(ob Observer) { ob.ObjectMoved(v) })
}

func (k floorSink) ObjectUpgraded(o *floor.Object, machineID string) {
	v := viewOf(o)
	k.s.each(func(ob Observer) { ob.ObjectUpgraded(v, machineID) })
}

// ObjectCollected credits the object's value exactly once; the floor removes
// the object in the same tick.
func (k floorSink) ObjectCollected(o *floor.Object) {
	s := k.s
	var credited int64
	s.state, credited = s.engine.Credit(s.state, o.Value)
	s.collectedTotal++
	s.creditedTotal += credited
	s.persist()
	s.record(persistlog.Entry{Kind: persistlog.KindCollect, ItemID: o.SourceID, ObjectID: o.ID, Amount: credited})
	v := viewOf(o)
	s.each(func(ob Observer) { ob.ObjectCollected(v, credited) })
	s.announceBalance()
}

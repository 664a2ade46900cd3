package session

import (
	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/economy"
	"factorytycoon.dev/internal/sim/floor"
)

// Observer is the presentation side of a session. Methods run on the session
// loop goroutine and must not block.
type Observer interface {
	ItemActivated(it catalogs.Item)
	ObjectSpawned(o ObjectView)
	ObjectMoved(o ObjectView)
	ObjectUpgraded(o ObjectView, machineID string)
	ObjectCollected(o ObjectView, credited int64)
	BalanceChanged(balance int64)
	ShopStateChanged(shop economy.ShopState)
	// Reload means all previously reported state is void.
	Reload()
	// TickComplete ends the batch of events produced by one tick.
	TickComplete(tick uint64)
}

// ObjectView is a copy of a floor object, safe to keep after the callback.
type ObjectView struct {
	ID        uint64
	SourceID  string
	Lane      string
	BaseValue int64
	Value     int64
	Pos       floor.Vec2
}

func viewOf(o *floor.Object) ObjectView {
	return ObjectView{
		ID:        o.ID,
		SourceID:  o.SourceID,
		Lane:      o.Lane,
		BaseValue: o.BaseValue,
		Value:     o.Value,
		Pos:       o.Pos,
	}
}

// NopObserver can be embedded to implement only some callbacks.
type NopObserver struct{}

func (NopObserver) ItemActivated(catalogs.Item)        {}
func (NopObserver) ObjectSpawned(ObjectView)           {}
func (NopObserver) ObjectMoved(ObjectView)             {}
func (NopObserver) ObjectUpgraded(ObjectView, string)  {}
func (NopObserver) ObjectCollected(ObjectView, int64)  {}
func (NopObserver) BalanceChanged(int64)               {}
func (NopObserver) ShopStateChanged(economy.ShopState) {}
func (NopObserver) Reload()                            {}
func (NopObserver) TickComplete(uint64)                {}

type observerEntry struct {
	id  uint64
	obs Observer
}

func (s *Session) each(fn func(Observer)) {
	for _, e := range s.observers {
		fn(e.obs)
	}
}

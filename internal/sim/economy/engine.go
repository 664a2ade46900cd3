package economy

import (
	"fmt"

	"factorytycoon.dev/internal/sim/catalogs"
)

// Activator instantiates a freshly purchased item on the factory floor.
type Activator interface {
	Activate(item catalogs.Item)
}

// Engine applies the shop rules to a State. It holds no player state itself.
type Engine struct {
	catalog   *catalogs.Catalog
	activator Activator
}

func NewEngine(cat *catalogs.Catalog, act Activator) *Engine {
	return &Engine{catalog: cat, activator: act}
}

func (e *Engine) Catalog() *catalogs.Catalog { return e.catalog }

// SetActivator swaps the floor that receives purchased machines.
func (e *Engine) SetActivator(act Activator) { e.activator = act }

// NextPurchasable returns the first unowned item, in catalog order, whose
// prerequisite is owned.
func (e *Engine) NextPurchasable(s State) (catalogs.Item, bool) {
	for _, it := range e.catalog.ItemsInPrerequisiteOrder() {
		if s.Owns(it.ID) {
			continue
		}
		if catalogs.IsUnlocked(it, s) {
			return it, true
		}
	}
	return catalogs.Item{}, false
}

func (e *Engine) CanAfford(s State, it catalogs.Item) bool {
	return s.Balance >= it.Cost
}

// Purchase buys itemID. On error the returned state equals s.
func (e *Engine) Purchase(s State, itemID string) (State, error) {
	it, ok := e.catalog.Item(itemID)
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	if s.Owns(it.ID) {
		return s, fmt.Errorf("%w: %s", ErrAlreadyOwned, it.ID)
	}
	if !catalogs.IsUnlocked(it, s) {
		return s, fmt.Errorf("%w: %s requires %s", ErrLocked, it.ID, it.Requires)
	}
	if !e.CanAfford(s, it) {
		return s, &InsufficientFundsError{ItemID: it.ID, Cost: it.Cost, Balance: s.Balance}
	}

	next := s.clone()
	next.Balance -= it.Cost
	next.Owned = append(next.Owned, it.ID)
	if e.activator != nil {
		e.activator.Activate(it)
	}
	return next, nil
}

// Credit adds amount scaled by the global multiplier and reports what was added.
func (e *Engine) Credit(s State, amount int64) (State, int64) {
	if amount <= 0 {
		return s, 0
	}
	credited := amount * s.multiplier()
	next := s.clone()
	next.Balance += credited
	return next, credited
}

// ShopState is what the shop panel shows: at most one next item.
type ShopState struct {
	Next       catalogs.Item
	HasNext    bool
	Affordable bool
}

func (e *Engine) Shop(s State) ShopState {
	it, ok := e.NextPurchasable(s)
	if !ok {
		return ShopState{}
	}
	return ShopState{Next: it, HasNext: true, Affordable: e.CanAfford(s, it)}
}

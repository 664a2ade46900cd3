package economy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorytycoon.dev/internal/sim/catalogs"
)

type recordingActivator struct {
	ids []string
}

func (r *recordingActivator) Activate(it catalogs.Item) { r.ids = append(r.ids, it.ID) }

func TestNextPurchasable_WalksChain(t *testing.T) {
	cat := catalogs.Default()
	e := NewEngine(cat, nil)
	s := DefaultState()
	s.Balance = 1 << 40

	for _, want := range cat.ItemsInPrerequisiteOrder() {
		got, ok := e.NextPurchasable(s)
		require.True(t, ok)
		require.Equal(t, want.ID, got.ID)

		var err error
		s, err = e.Purchase(s, got.ID)
		require.NoError(t, err)
	}
	_, ok := e.NextPurchasable(s)
	assert.False(t, ok, "everything owned")
	assert.Len(t, s.Owned, cat.Len())
}

func TestNextPurchasable_DAGPicksLowestOrder(t *testing.T) {
	cat, err := catalogs.New([]catalogs.Item{
		{ID: "root", Effect: catalogs.Structure{}},
		{ID: "left", Requires: "root", Effect: catalogs.Decoration{}},
		{ID: "right", Requires: "root", Effect: catalogs.Decoration{}},
	})
	require.NoError(t, err)
	e := NewEngine(cat, nil)

	s := State{Owned: []string{"root", "left"}}
	it, ok := e.NextPurchasable(s)
	require.True(t, ok)
	assert.Equal(t, "right", it.ID)
}

func TestPurchase_InsufficientFundsLeavesStateUnchanged(t *testing.T) {
	act := &recordingActivator{}
	e := NewEngine(catalogs.Default(), act)
	s := State{Balance: 5, Owned: []string{"dropper1"}, GlobalMultiplier: 1}

	got, err := e.Purchase(s, "conveyor_rails")
	var ife *InsufficientFundsError
	require.True(t, errors.As(err, &ife), "err=%v", err)
	assert.Equal(t, int64(25), ife.Cost)
	assert.Equal(t, int64(5), ife.Balance)
	assert.Equal(t, s, got)
	assert.Empty(t, act.ids)
}

func TestPurchase_RuleErrors(t *testing.T) {
	e := NewEngine(catalogs.Default(), nil)
	s := State{Balance: 1000, Owned: []string{"dropper1"}, GlobalMultiplier: 1}

	_, err := e.Purchase(s, "nope")
	assert.ErrorIs(t, err, ErrUnknownItem)

	_, err = e.Purchase(s, "dropper1")
	assert.ErrorIs(t, err, ErrAlreadyOwned)

	_, err = e.Purchase(s, "walls1")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestPurchase_DeductsAndActivates(t *testing.T) {
	act := &recordingActivator{}
	e := NewEngine(catalogs.Default(), act)
	s := State{Balance: 30, Owned: []string{"dropper1"}, GlobalMultiplier: 1}

	next, err := e.Purchase(s, "conveyor_rails")
	require.NoError(t, err)
	assert.Equal(t, int64(5), next.Balance)
	assert.Equal(t, []string{"dropper1", "conveyor_rails"}, next.Owned)
	assert.Equal(t, []string{"conveyor_rails"}, act.ids)

	// The input state is not aliased.
	assert.Equal(t, []string{"dropper1"}, s.Owned)
	assert.Equal(t, int64(30), s.Balance)
}

func TestPurchase_NeverNegative(t *testing.T) {
	e := NewEngine(catalogs.Default(), nil)
	s := DefaultState()
	for balance := int64(0); balance < 40; balance++ {
		s.Balance = balance
		s.Owned = []string{"dropper1"}
		next, err := e.Purchase(s, "conveyor_rails")
		require.GreaterOrEqual(t, next.Balance, int64(0))
		if balance < 25 {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}
	}
}

func TestCredit_UsesGlobalMultiplier(t *testing.T) {
	e := NewEngine(catalogs.Default(), nil)

	s, credited := e.Credit(DefaultState(), 40)
	assert.Equal(t, int64(40), credited)
	assert.Equal(t, int64(40), s.Balance)

	s.GlobalMultiplier = 3
	s, credited = e.Credit(s, 10)
	assert.Equal(t, int64(30), credited)
	assert.Equal(t, int64(70), s.Balance)

	s, credited = e.Credit(s, 0)
	assert.Zero(t, credited)
	assert.Equal(t, int64(70), s.Balance)
}

func TestScenario_StarterDropperThenRailsTooExpensive(t *testing.T) {
	e := NewEngine(catalogs.Default(), nil)
	s := DefaultState()

	s, err := e.Purchase(s, "dropper1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Balance)
	assert.Equal(t, []string{"dropper1"}, s.Owned)

	s, _ = e.Credit(s, 5)
	assert.Equal(t, int64(5), s.Balance)

	after, err := e.Purchase(s, "conveyor_rails")
	var ife *InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, int64(5), after.Balance)
}

func TestShop(t *testing.T) {
	e := NewEngine(catalogs.Default(), nil)
	shop := e.Shop(DefaultState())
	require.True(t, shop.HasNext)
	assert.Equal(t, "dropper1", shop.Next.ID)
	assert.True(t, shop.Affordable)

	shop = e.Shop(State{Balance: 10, Owned: []string{"dropper1"}})
	assert.Equal(t, "conveyor_rails", shop.Next.ID)
	assert.False(t, shop.Affordable)
}

package main

import (
	"fmt"
	"math"
	"sort"

	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/economy"
	"factorytycoon.dev/internal/sim/floor"
	"factorytycoon.dev/internal/sim/session"
)

// floorView mirrors session events into what the terminal draws.
type floorView struct {
	items   []catalogs.Item
	objects map[uint64]session.ObjectView

	balance   int64
	shop      economy.ShopState
	collected int
	flash     string
}

func newFloorView(snap session.Snapshot) *floorView {
	v := &floorView{objects: map[uint64]session.ObjectView{}}
	v.items = append(v.items, snap.Owned...)
	for _, o := range snap.Objects {
		v.objects[o.ID] = o
	}
	v.balance = snap.State.Balance
	v.shop = snap.Shop
	return v
}

func (v *floorView) ItemActivated(it catalogs.Item) {
	v.items = append(v.items, it)
	v.flash = fmt.Sprintf("bought %s", it.Name)
}

func (v *floorView) ObjectSpawned(o session.ObjectView) { v.objects[o.ID] = o }
func (v *floorView) ObjectMoved(o session.ObjectView)   { v.objects[o.ID] = o }

func (v *floorView) ObjectUpgraded(o session.ObjectView, _ string) { v.objects[o.ID] = o }

func (v *floorView) ObjectCollected(o session.ObjectView, credited int64) {
	delete(v.objects, o.ID)
	v.collected++
	v.flash = fmt.Sprintf("+%d", credited)
}

func (v *floorView) BalanceChanged(b int64)               { v.balance = b }
func (v *floorView) ShopStateChanged(s economy.ShopState) { v.shop = s }

func (v *floorView) Reload() {
	v.items = nil
	v.objects = map[uint64]session.ObjectView{}
	v.collected = 0
	v.flash = "progress reset"
}

func (v *floorView) TickComplete(uint64) {}

// sortedObjects returns live objects by id so drawing is stable.
func (v *floorView) sortedObjects() []session.ObjectView {
	out := make([]session.ObjectView, 0, len(v.objects))
	for _, o := range v.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *floorView) shopLine() string {
	if !v.shop.HasNext {
		return "shop: everything owned"
	}
	mark := "need more"
	if v.shop.Affordable {
		mark = "press b"
	}
	return fmt.Sprintf("next: %s (%d) [%s]", v.shop.Next.Name, v.shop.Next.Cost, mark)
}

// layout maps floor coordinates onto a w×h character grid. X grows to the
// right, Z grows upwards.
type layout struct {
	minX, maxX float64
	minZ, maxZ float64
	w, h       int
}

func newLayout(w, h int) layout {
	return layout{minX: -6, maxX: 5.5, minZ: -3.5, maxZ: 1, w: w, h: h}
}

func (l layout) cell(p floor.Vec2) (col, row int, ok bool) {
	if l.w <= 1 || l.h <= 1 {
		return 0, 0, false
	}
	fx := (p.X - l.minX) / (l.maxX - l.minX)
	fz := (l.maxZ - p.Z) / (l.maxZ - l.minZ)
	if fx < 0 || fx > 1 || fz < 0 || fz > 1 {
		return 0, 0, false
	}
	col = int(math.Round(fx * float64(l.w-1)))
	row = int(math.Round(fz * float64(l.h-1)))
	return col, row, true
}

func valueGlyph(value int64) rune {
	switch {
	case value >= 1000:
		return '◆'
	case value >= 100:
		return '●'
	case value >= 10:
		return 'o'
	default:
		return '.'
	}
}

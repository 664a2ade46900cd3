package ws

import (
	"factorytycoon.dev/internal/protocol"
	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/economy"
	"factorytycoon.dev/internal/sim/session"
	"factorytycoon.dev/internal/sim/tuning"
)

func itemMsg(it catalogs.Item) protocol.ItemMsg {
	m := protocol.ItemMsg{
		ID:       it.ID,
		Name:     it.Name,
		Kind:     string(it.Kind()),
		Cost:     it.Cost,
		Requires: it.Requires,
		X:        it.X,
		Y:        it.Y,
		Model:    it.Model,
		Color:    it.Color,
	}
	switch e := it.Effect.(type) {
	case catalogs.Source:
		m.Value = e.Value
		m.IntervalMS = e.Interval.Milliseconds()
		m.Lane = e.Lane
	case catalogs.Multiplier:
		m.Factor = e.Factor
		m.Lane = e.Lane
	}
	return m
}

func objectMsg(o session.ObjectView) protocol.ObjectMsg {
	return protocol.ObjectMsg{
		ID:        o.ID,
		Source:    o.SourceID,
		Lane:      o.Lane,
		BaseValue: o.BaseValue,
		Value:     o.Value,
		X:         o.Pos.X,
		Z:         o.Pos.Z,
	}
}

func shopMsg(shop economy.ShopState, tick uint64) protocol.ShopMsg {
	m := protocol.ShopMsg{
		Type:            protocol.TypeShop,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Affordable:      shop.Affordable,
	}
	if shop.HasNext {
		m.Next = &protocol.ShopRef{ID: shop.Next.ID, Name: shop.Next.Name, Cost: shop.Next.Cost}
	}
	return m
}

// WelcomeFor renders a session snapshot as the WELCOME message.
func WelcomeFor(snap session.Snapshot, cat *catalogs.Catalog, tune tuning.Tuning) protocol.WelcomeMsg {
	items := cat.ItemsInPrerequisiteOrder()
	itemMsgs := make([]protocol.ItemMsg, 0, len(items))
	for _, it := range items {
		itemMsgs = append(itemMsgs, itemMsg(it))
	}
	objs := make([]protocol.ObjectMsg, 0, len(snap.Objects))
	for _, o := range snap.Objects {
		objs = append(objs, objectMsg(o))
	}
	owned := append([]string{}, snap.State.Owned...)
	lanes := make(map[string]float64, len(tune.Lanes))
	for k, v := range tune.Lanes {
		lanes[k] = v
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       snap.SessionID,
		Tick:            snap.Tick,
		Params: protocol.Params{
			TickRateHz:   tune.TickRateHz,
			ProgressStep: tune.ProgressStep,
			Collector:    protocol.Vec2{X: tune.Collector.X, Z: tune.Collector.Z},
			Lanes:        lanes,
			TuningDigest: snap.TuningDigest,
		},
		Catalog: protocol.CatalogMsg{Digest: snap.CatalogDigest, Items: itemMsgs},
		State: protocol.StateMsg{
			Balance:          snap.State.Balance,
			Owned:            owned,
			GlobalMultiplier: snap.State.GlobalMultiplier,
		},
		Shop:    shopMsg(snap.Shop, snap.Tick),
		Objects: objs,
	}
}

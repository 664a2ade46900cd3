package ws

import (
	"encoding/json"
	"sync/atomic"

	"factorytycoon.dev/internal/protocol"
	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/economy"
	"factorytycoon.dev/internal/sim/session"
)

// connObserver encodes session events for one connection. It runs on the
// session loop goroutine and never blocks: a full queue drops the message.
type connObserver struct {
	out      chan []byte
	tick     func() uint64
	noFrames bool
	dropped  *atomic.Uint64

	moves []protocol.MoveMsg
}

func (c *connObserver) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.out <- b:
	default:
		c.dropped.Add(1)
	}
}

func (c *connObserver) ItemActivated(it catalogs.Item) {
	c.send(protocol.ItemActivatedMsg{
		Type:            protocol.TypeItemActivated,
		ProtocolVersion: protocol.Version,
		Tick:            c.tick(),
		Item:            itemMsg(it),
	})
}

func (c *connObserver) ObjectSpawned(o session.ObjectView) {
	c.send(protocol.ObjectSpawnedMsg{
		Type:            protocol.TypeObjectSpawned,
		ProtocolVersion: protocol.Version,
		Tick:            c.tick(),
		Object:          objectMsg(o),
	})
}

func (c *connObserver) ObjectMoved(o session.ObjectView) {
	if c.noFrames {
		return
	}
	c.moves = append(c.moves, protocol.MoveMsg{ID: o.ID, X: o.Pos.X, Z: o.Pos.Z})
}

func (c *connObserver) ObjectUpgraded(o session.ObjectView, machineID string) {
	c.send(protocol.ObjectUpgradedMsg{
		Type:            protocol.TypeObjectUpgraded,
		ProtocolVersion: protocol.Version,
		Tick:            c.tick(),
		Object:          objectMsg(o),
		MachineID:       machineID,
	})
}

func (c *connObserver) ObjectCollected(o session.ObjectView, credited int64) {
	c.send(protocol.ObjectCollectedMsg{
		Type:            protocol.TypeObjectCollected,
		ProtocolVersion: protocol.Version,
		Tick:            c.tick(),
		Object:          objectMsg(o),
		Credited:        credited,
	})
}

func (c *connObserver) BalanceChanged(balance int64) {
	c.send(protocol.BalanceMsg{
		Type:            protocol.TypeBalance,
		ProtocolVersion: protocol.Version,
		Tick:            c.tick(),
		Balance:         balance,
	})
}

func (c *connObserver) ShopStateChanged(shop economy.ShopState) {
	c.send(shopMsg(shop, c.tick()))
}

func (c *connObserver) Reload() {
	c.moves = c.moves[:0]
	c.send(protocol.ReloadMsg{
		Type:            protocol.TypeReload,
		ProtocolVersion: protocol.Version,
		Tick:            c.tick(),
	})
}

func (c *connObserver) TickComplete(tick uint64) {
	if len(c.moves) == 0 {
		return
	}
	c.send(protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Moves:           c.moves,
	})
	c.moves = c.moves[:0]
}

package session

import (
	"context"

	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/economy"
)

// Snapshot is everything a new observer needs before the event stream.
type Snapshot struct {
	SessionID     string
	Tick          uint64
	CatalogDigest string
	TuningDigest  string
	State         economy.State
	Shop          economy.ShopState
	// Owned items in purchase order.
	Owned   []catalogs.Item
	Objects []ObjectView
}

type attachReq struct {
	obs  Observer
	resp chan attachResp
}

type attachResp struct {
	id   uint64
	snap Snapshot
}

// Attach registers obs on the loop goroutine and returns the snapshot taken
// at that moment, so no event is missed or duplicated. A nil obs only reads
// the snapshot.
func (s *Session) Attach(ctx context.Context, obs Observer) (uint64, Snapshot, error) {
	resp := make(chan attachResp, 1)
	select {
	case s.attach <- attachReq{obs: obs, resp: resp}:
	case <-ctx.Done():
		return 0, Snapshot{}, ctx.Err()
	case <-s.done:
		return 0, Snapshot{}, ErrStopped
	}
	select {
	case r := <-resp:
		return r.id, r.snap, nil
	case <-ctx.Done():
		return 0, Snapshot{}, ctx.Err()
	case <-s.done:
		return 0, Snapshot{}, ErrStopped
	}
}

func (s *Session) RequestSnapshot(ctx context.Context) (Snapshot, error) {
	_, snap, err := s.Attach(ctx, nil)
	return snap, err
}

func (s *Session) Detach(id uint64) {
	select {
	case s.detach <- id:
	case <-s.done:
	}
}

func (s *Session) handleAttach(req attachReq) {
	var id uint64
	if req.obs != nil {
		id = s.AddObserver(req.obs)
	}
	req.resp <- attachResp{id: id, snap: s.Snapshot()}
}

// AddObserver registers obs directly. Only the goroutine driving the
// session may call it.
func (s *Session) AddObserver(obs Observer) uint64 {
	s.nextObsID++
	s.observers = append(s.observers, observerEntry{id: s.nextObsID, obs: obs})
	return s.nextObsID
}

func (s *Session) RemoveObserver(id uint64) {
	for i, e := range s.observers {
		if e.id == id {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Snapshot reads the current state. Only the goroutine driving the session
// may call it.
func (s *Session) Snapshot() Snapshot {
	owned := make([]catalogs.Item, 0, len(s.state.Owned))
	for _, id := range s.state.Owned {
		if it, ok := s.cat.Item(id); ok {
			owned = append(owned, it)
		}
	}
	objs := s.floor.Objects()
	views := make([]ObjectView, 0, len(objs))
	for _, o := range objs {
		views = append(views, viewOf(o))
	}
	st := s.state
	st.Owned = append([]string(nil), s.state.Owned...)
	return Snapshot{
		SessionID:     s.cfg.ID,
		Tick:          s.tick.Load(),
		CatalogDigest: s.cat.Digest,
		TuningDigest:  s.tune.Digest(),
		State:         st,
		Shop:          s.engine.Shop(s.state),
		Owned:         owned,
		Objects:       views,
	}
}

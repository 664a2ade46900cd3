package session

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	persistlog "factorytycoon.dev/internal/persistence/log"
	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/economy"
	"factorytycoon.dev/internal/sim/floor"
	"factorytycoon.dev/internal/sim/tuning"
)

type Config struct {
	// ID names the session in logs, the ledger and WELCOME. Random if empty.
	ID string
	// CommandQueue bounds pending commands; a full queue answers E_BUSY.
	CommandQueue int
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CommandQueue <= 0 {
		c.CommandQueue = 256
	}
}

// Store is the durable side of the progression state.
type Store interface {
	Load() (economy.State, error)
	Persist(economy.State) error
	Reset() error
}

type Ledger interface {
	Record(e persistlog.Entry) error
}

var ErrStopped = errors.New("session stopped")

// Session owns one player's progression and factory floor.
// All state must be accessed only from the session loop goroutine, or from a
// single caller driving Apply/Step directly when Run is not used.
type Session struct {
	cfg    Config
	cat    *catalogs.Catalog
	tune   tuning.Tuning
	store  Store
	ledger Ledger
	logger *log.Logger

	engine *economy.Engine
	floor  *floor.Floor
	state  economy.State

	tick atomic.Uint64

	observers []observerEntry
	nextObsID uint64

	cmds   chan cmdReq
	attach chan attachReq
	detach chan uint64
	stop   chan struct{}
	done   chan struct{}

	stopOnce sync.Once
	doneOnce sync.Once

	metrics atomic.Value

	collectedTotal uint64
	creditedTotal  int64
	purchaseTotal  uint64
	resetTotal     uint64
	persistErrors  uint64
	ledgerErrors   uint64
}

// New loads the stored progression and re-activates every owned machine in
// purchase order. ledger may be nil.
func New(cfg Config, cat *catalogs.Catalog, tune tuning.Tuning, store Store, ledger Ledger, logger *log.Logger) (*Session, error) {
	if cat == nil {
		return nil, errors.New("nil catalog")
	}
	if store == nil {
		return nil, errors.New("nil store")
	}
	if err := tune.Validate(); err != nil {
		return nil, err
	}
	if err := cat.ValidateLayout(tune); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds)
	}

	s := &Session{
		cfg:    cfg,
		cat:    cat,
		tune:   tune,
		store:  store,
		ledger: ledger,
		logger: logger,
		cmds:   make(chan cmdReq, cfg.CommandQueue),
		attach: make(chan attachReq, 64),
		detach: make(chan uint64, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.engine = economy.NewEngine(cat, activator{s})
	s.floor = floor.New(tune, floorSink{s})

	st, err := store.Load()
	if err != nil {
		s.logger.Printf("progress load: %v", err)
	}
	s.rehydrate(st)
	s.record(persistlog.Entry{Kind: persistlog.KindSessionStart})
	s.publishMetrics(0)
	return s, nil
}

func (s *Session) ID() string                 { return s.cfg.ID }
func (s *Session) Catalog() *catalogs.Catalog { return s.cat }
func (s *Session) Tuning() tuning.Tuning      { return s.tune }
func (s *Session) CurrentTick() uint64        { return s.tick.Load() }
func (s *Session) Stop()                      { s.stopOnce.Do(func() { close(s.stop) }) }
func (s *Session) Done() <-chan struct{}      { return s.done }

func (s *Session) rehydrate(st economy.State) {
	if s.tune.GlobalMultiplier > 0 {
		st.GlobalMultiplier = s.tune.GlobalMultiplier
	}
	s.state = st
	for _, id := range st.Owned {
		it, ok := s.cat.Item(id)
		if !ok {
			s.logger.Printf("rehydrate: unknown item %q skipped", id)
			continue
		}
		s.activate(it)
	}
}

func (s *Session) Run(ctx context.Context) error {
	defer s.doneOnce.Do(func() { close(s.done) })

	interval := time.Second / time.Duration(s.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.attach:
			s.handleAttach(req)
		case id := <-s.detach:
			s.RemoveObserver(id)
		case req := <-s.cmds:
			req.resp <- s.Apply(req.cmd)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			s.Step(dt)
		}
	}
}

// Step advances the floor by one tick covering dt of simulated time. Events
// raised during the tick see CurrentTick() as the new tick number.
func (s *Session) Step(dt time.Duration) {
	start := time.Now()
	t := s.tick.Add(1)
	s.floor.Tick(dt)
	s.each(func(o Observer) { o.TickComplete(t) })
	s.publishMetrics(float64(time.Since(start).Microseconds()) / 1000.0)
}

func (s *Session) persist() {
	if err := s.store.Persist(s.state); err != nil {
		s.persistErrors++
		s.logger.Printf("persist: %v", err)
	}
}

func (s *Session) record(e persistlog.Entry) {
	if s.ledger == nil {
		return
	}
	e.SessionID = s.cfg.ID
	e.Tick = s.tick.Load()
	e.Balance = s.state.Balance
	if err := s.ledger.Record(e); err != nil {
		s.ledgerErrors++
		s.logger.Printf("ledger: %v", err)
	}
}

func (s *Session) announceBalance() {
	bal := s.state.Balance
	shop := s.engine.Shop(s.state)
	s.each(func(o Observer) {
		o.BalanceChanged(bal)
		o.ShopStateChanged(shop)
	})
}

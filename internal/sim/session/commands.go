package session

import (
	"context"
	"errors"
	"fmt"

	persistlog "factorytycoon.dev/internal/persistence/log"
	"factorytycoon.dev/internal/protocol"
	"factorytycoon.dev/internal/sim/economy"
	"factorytycoon.dev/internal/sim/floor"
)

type CommandKind string

const (
	CmdPurchase       CommandKind = "PURCHASE"
	CmdCollectorClick CommandKind = "COLLECT"
	CmdReset          CommandKind = "RESET"
)

type Command struct {
	Kind   CommandKind
	ItemID string
}

// Result reports the outcome of one command. Code is empty on success.
type Result struct {
	Code     string
	Err      error
	Tick     uint64
	Balance  int64
	Credited int64
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBusy           = errors.New("session busy")
)

type cmdReq struct {
	cmd  Command
	resp chan Result
}

// ErrorCode maps a command error to its wire code.
func ErrorCode(err error) string {
	var funds *economy.InsufficientFundsError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &funds):
		return protocol.ErrInsufficientFunds
	case errors.Is(err, economy.ErrLocked):
		return protocol.ErrLocked
	case errors.Is(err, economy.ErrAlreadyOwned):
		return protocol.ErrAlreadyOwned
	case errors.Is(err, economy.ErrUnknownItem):
		return protocol.ErrUnknownItem
	case errors.Is(err, ErrUnknownCommand):
		return protocol.ErrProtoBadRequest
	case errors.Is(err, ErrBusy):
		return protocol.ErrBusy
	default:
		return protocol.ErrInternal
	}
}

// Do queues cmd on the session loop and waits for its result. The returned
// error is the command error, or why the command never ran.
func (s *Session) Do(ctx context.Context, cmd Command) (Result, error) {
	resp := make(chan Result, 1)
	select {
	case s.cmds <- cmdReq{cmd: cmd, resp: resp}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-s.stop:
		return Result{}, ErrStopped
	case <-s.done:
		return Result{}, ErrStopped
	default:
		return Result{Code: protocol.ErrBusy, Err: ErrBusy}, ErrBusy
	}

	select {
	case r := <-resp:
		return r, r.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-s.done:
		return Result{}, ErrStopped
	}
}

func (s *Session) Purchase(ctx context.Context, itemID string) (Result, error) {
	return s.Do(ctx, Command{Kind: CmdPurchase, ItemID: itemID})
}

func (s *Session) CollectorClick(ctx context.Context) (Result, error) {
	return s.Do(ctx, Command{Kind: CmdCollectorClick})
}

// RequestReset wipes stored progress and restarts the session from defaults.
func (s *Session) RequestReset(ctx context.Context) (Result, error) {
	return s.Do(ctx, Command{Kind: CmdReset})
}

// Apply runs cmd synchronously. Only the goroutine driving the session may
// call it.
func (s *Session) Apply(cmd Command) Result {
	var res Result
	switch cmd.Kind {
	case CmdPurchase:
		res = s.purchase(cmd.ItemID)
	case CmdCollectorClick:
		res = s.collectorClick()
	case CmdReset:
		res = s.reset()
	default:
		res = Result{Err: fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)}
	}
	res.Code = ErrorCode(res.Err)
	res.Tick = s.tick.Load()
	res.Balance = s.state.Balance
	s.publishMetrics(s.Metrics().StepMS)
	return res
}

func (s *Session) purchase(itemID string) Result {
	next, err := s.engine.Purchase(s.state, itemID)
	if err != nil {
		return Result{Err: err}
	}
	it, _ := s.cat.Item(itemID)
	s.state = next
	s.purchaseTotal++
	s.persist()
	s.record(persistlog.Entry{Kind: persistlog.KindPurchase, ItemID: it.ID, Amount: -it.Cost})
	s.announceBalance()
	return Result{}
}

func (s *Session) collectorClick() Result {
	var credited int64
	s.state, credited = s.engine.Credit(s.state, s.tune.CollectorClickValue)
	s.creditedTotal += credited
	s.persist()
	s.record(persistlog.Entry{Kind: persistlog.KindClick, Amount: credited})
	s.announceBalance()
	return Result{Credited: credited}
}

// reset clears storage, drops every schedule and live object, then tells
// observers to start over.
func (s *Session) reset() Result {
	if err := s.store.Reset(); err != nil {
		s.persistErrors++
		s.logger.Printf("progress reset: %v", err)
		// Stale keys would resurrect the old run on the next start.
		if err := s.store.Persist(economy.DefaultState()); err != nil {
			s.logger.Printf("progress reset fallback: %v", err)
		}
	}
	s.resetTotal++
	s.floor = floor.New(s.tune, floorSink{s})
	s.rehydrate(economy.DefaultState())
	s.record(persistlog.Entry{Kind: persistlog.KindReset})
	s.each(func(o Observer) { o.Reload() })
	s.announceBalance()
	return Result{}
}

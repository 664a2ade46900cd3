package session

// Metrics is a read-only view of the session, refreshed by the loop goroutine
// and safe to read from HTTP handlers.
type Metrics struct {
	SessionID string `json:"session_id"`
	Tick      uint64 `json:"tick"`

	Balance  int64 `json:"balance"`
	Owned    int   `json:"owned"`
	Objects  int   `json:"objects"`
	Machines int   `json:"machines"`

	CollectedTotal uint64 `json:"collected_total"`
	CreditedTotal  int64  `json:"credited_total"`
	PurchaseTotal  uint64 `json:"purchase_total"`
	ResetTotal     uint64 `json:"reset_total"`
	PersistErrors  uint64 `json:"persist_errors"`
	LedgerErrors   uint64 `json:"ledger_errors"`

	Observers int `json:"observers"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Commands int `json:"commands"`
	Attach   int `json:"attach"`
	Detach   int `json:"detach"`
}

func (s *Session) Metrics() Metrics {
	if s == nil {
		return Metrics{}
	}
	v := s.metrics.Load()
	if v == nil {
		return Metrics{}
	}
	m, ok := v.(Metrics)
	if !ok {
		return Metrics{}
	}
	return m
}

func (s *Session) publishMetrics(stepMS float64) {
	s.metrics.Store(Metrics{
		SessionID:      s.cfg.ID,
		Tick:           s.tick.Load(),
		Balance:        s.state.Balance,
		Owned:          len(s.state.Owned),
		Objects:        s.floor.ObjectCount(),
		Machines:       s.floor.MachineCount(),
		CollectedTotal: s.collectedTotal,
		CreditedTotal:  s.creditedTotal,
		PurchaseTotal:  s.purchaseTotal,
		ResetTotal:     s.resetTotal,
		PersistErrors:  s.persistErrors,
		LedgerErrors:   s.ledgerErrors,
		Observers:      len(s.observers),
		QueueDepths: QueueDepths{
			Commands: len(s.cmds),
			Attach:   len(s.attach),
			Detach:   len(s.detach),
		},
		StepMS: stepMS,
	})
}

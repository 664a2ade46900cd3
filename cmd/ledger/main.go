// Command ledger summarizes and verifies economy ledger files.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	persistlog "factorytycoon.dev/internal/persistence/log"
)

func main() {
	var (
		dir     = flag.String("dir", "./data/ledger", "ledger dir containing ledger-*.jsonl.zst")
		session = flag.String("session", "", "only entries of this session id (optional)")
		verify  = flag.Bool("verify", true, "check that balances chain across entries")
	)
	flag.Parse()

	files, err := persistlog.ListFiles(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list ledger:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no ledger files found in", *dir)
		os.Exit(1)
	}

	sum := newSummary(*verify)
	for _, path := range files {
		err := persistlog.ReadFile(path, func(e persistlog.Entry) error {
			if *session != "" && e.SessionID != *session {
				return nil
			}
			return sum.add(e)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
	}
	sum.print(os.Stdout)
}

type sessionState struct {
	balance int64
	started bool
}

type summary struct {
	verify bool

	entries   int
	byKind    map[persistlog.Kind]int
	amounts   map[persistlog.Kind]int64
	purchases map[string]int
	sessions  map[string]*sessionState
}

func newSummary(verify bool) *summary {
	return &summary{
		verify:    verify,
		byKind:    map[persistlog.Kind]int{},
		amounts:   map[persistlog.Kind]int64{},
		purchases: map[string]int{},
		sessions:  map[string]*sessionState{},
	}
}

// add folds e into the summary. With verify on, each entry's balance must
// equal the previous balance of its session plus its amount.
func (s *summary) add(e persistlog.Entry) error {
	s.entries++
	s.byKind[e.Kind]++
	s.amounts[e.Kind] += e.Amount
	if e.Kind == persistlog.KindPurchase {
		s.purchases[e.ItemID]++
	}

	st, ok := s.sessions[e.SessionID]
	if !ok {
		st = &sessionState{}
		s.sessions[e.SessionID] = st
	}
	switch e.Kind {
	case persistlog.KindSessionStart, persistlog.KindReset:
		st.balance = e.Balance
		st.started = true
		return nil
	}
	if s.verify && st.started && st.balance+e.Amount != e.Balance {
		return fmt.Errorf("balance mismatch at tick %d (%s %s): want=%d got=%d",
			e.Tick, e.SessionID, e.Kind, st.balance+e.Amount, e.Balance)
	}
	if e.Balance < 0 {
		return fmt.Errorf("negative balance at tick %d (%s)", e.Tick, e.SessionID)
	}
	st.balance = e.Balance
	st.started = true
	return nil
}

func (s *summary) print(w io.Writer) {
	fmt.Fprintf(w, "entries=%d sessions=%d\n", s.entries, len(s.sessions))
	kinds := []persistlog.Kind{
		persistlog.KindSessionStart,
		persistlog.KindPurchase,
		persistlog.KindCollect,
		persistlog.KindClick,
		persistlog.KindReset,
	}
	for _, k := range kinds {
		if s.byKind[k] == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-14s count=%d amount=%d\n", k, s.byKind[k], s.amounts[k])
	}

	items := make([]string, 0, len(s.purchases))
	for id := range s.purchases {
		items = append(items, id)
	}
	sort.Strings(items)
	for _, id := range items {
		fmt.Fprintf(w, "  bought %s x%d\n", id, s.purchases[id])
	}

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  session %s balance=%d\n", id, s.sessions[id].balance)
	}
	if s.verify {
		fmt.Fprintln(w, "verify ok")
	}
}

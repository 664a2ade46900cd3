package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"factorytycoon.dev/internal/sim/economy"
)

const (
	KeyBalance = "balance"
	KeyOwned   = "owned_items"
)

// KV is the durable key-value storage behind a Store.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	// SetAll writes every pair or none.
	SetAll(pairs map[string]string) error
	Clear() error
}

// ReadError lists the keys that could not be read and were defaulted.
// The state returned alongside it is always usable.
type ReadError struct {
	Keys []string
	Errs []error
}

func (e *ReadError) Error() string {
	parts := make([]string, 0, len(e.Keys))
	for i, k := range e.Keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, e.Errs[i]))
	}
	return "progress defaulted (" + strings.Join(parts, "; ") + ")"
}

func (e *ReadError) Unwrap() []error { return e.Errs }

func (e *ReadError) add(key string, err error) {
	e.Keys = append(e.Keys, key)
	e.Errs = append(e.Errs, err)
}

// Store encodes progression state into a KV.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load never fails: absent or corrupt keys fall back to defaults. A non-nil
// *ReadError describes what was defaulted; absent keys are not errors.
func (s *Store) Load() (economy.State, error) {
	st := economy.DefaultState()
	var rerr ReadError

	if raw, ok, err := s.kv.Get(KeyBalance); err != nil {
		rerr.add(KeyBalance, err)
	} else if ok {
		b, err := decodeBalance(raw)
		if err != nil {
			rerr.add(KeyBalance, err)
		} else {
			st.Balance = b
		}
	}

	if raw, ok, err := s.kv.Get(KeyOwned); err != nil {
		rerr.add(KeyOwned, err)
	} else if ok {
		owned, err := decodeOwned(raw)
		if err != nil {
			rerr.add(KeyOwned, err)
		} else {
			st.Owned = owned
		}
	}

	if len(rerr.Keys) > 0 {
		return st, &rerr
	}
	return st, nil
}

func (s *Store) Persist(st economy.State) error {
	owned := st.Owned
	if owned == nil {
		owned = []string{}
	}
	b, err := json.Marshal(owned)
	if err != nil {
		return err
	}
	if err := s.kv.SetAll(map[string]string{
		KeyBalance: strconv.FormatInt(st.Balance, 10),
		KeyOwned:   string(b),
	}); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	return nil
}

func (s *Store) Reset() error {
	if err := s.kv.Clear(); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

func decodeBalance(raw string) (int64, error) {
	b, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if b < 0 {
		return 0, errors.New("negative balance")
	}
	return b, nil
}

func decodeOwned(raw string) ([]string, error) {
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

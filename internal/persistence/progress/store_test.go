package progress

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"factorytycoon.dev/internal/sim/economy"
)

func TestLoad_EmptyIsDefault(t *testing.T) {
	s := NewStore(NewMemoryKV())
	st, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Balance != 0 || len(st.Owned) != 0 || st.GlobalMultiplier != 1 {
		t.Fatalf("unexpected default state: %+v", st)
	}
}

func TestPersistLoad_RoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	s := NewStore(kv)
	in := economy.State{Balance: 1234, Owned: []string{"dropper1", "conveyor_rails"}, GlobalMultiplier: 1}
	if err := s.Persist(in); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if v, _, _ := kv.Get(KeyBalance); v != "1234" {
		t.Fatalf("balance stored as %q", v)
	}
	if v, _, _ := kv.Get(KeyOwned); v != `["dropper1","conveyor_rails"]` {
		t.Fatalf("owned stored as %q", v)
	}
	out, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Balance != in.Balance || !reflect.DeepEqual(out.Owned, in.Owned) {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestPersist_EmptyOwnedIsArray(t *testing.T) {
	kv := NewMemoryKV()
	if err := NewStore(kv).Persist(economy.DefaultState()); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if v, _, _ := kv.Get(KeyOwned); v != "[]" {
		t.Fatalf("owned stored as %q", v)
	}
}

func TestLoad_CorruptKeysDefault(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(KeyBalance, "abc")
	kv.Set(KeyOwned, `["dropper1"]`)
	st, err := NewStore(kv).Load()
	var rerr *ReadError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
	if !reflect.DeepEqual(rerr.Keys, []string{KeyBalance}) {
		t.Fatalf("defaulted keys: %v", rerr.Keys)
	}
	if st.Balance != 0 || !reflect.DeepEqual(st.Owned, []string{"dropper1"}) {
		t.Fatalf("state: %+v", st)
	}

	kv.Set(KeyBalance, "50")
	kv.Set(KeyOwned, `{not json`)
	st, err = NewStore(kv).Load()
	if !errors.As(err, &rerr) || rerr.Keys[0] != KeyOwned {
		t.Fatalf("expected owned read error, got %v", err)
	}
	if st.Balance != 50 || len(st.Owned) != 0 {
		t.Fatalf("state: %+v", st)
	}
}

func TestLoad_NegativeBalanceRejected(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(KeyBalance, "-5")
	st, err := NewStore(kv).Load()
	if err == nil || st.Balance != 0 {
		t.Fatalf("expected default balance with error, got %d %v", st.Balance, err)
	}
}

func TestLoad_OwnedDeduplicated(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(KeyOwned, `["dropper1","","dropper1","walls1"]`)
	st, err := NewStore(kv).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(st.Owned, []string{"dropper1", "walls1"}) {
		t.Fatalf("owned: %v", st.Owned)
	}
}

func TestReset_ClearsToDefaults(t *testing.T) {
	s := NewStore(NewMemoryKV())
	_ = s.Persist(economy.State{Balance: 99, Owned: []string{"dropper1"}, GlobalMultiplier: 1})
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	st, err := s.Load()
	if err != nil || st.Balance != 0 || len(st.Owned) != 0 {
		t.Fatalf("after reset: %+v %v", st, err)
	}
}

func TestPersist_WriteFailureSurfaces(t *testing.T) {
	kv := NewMemoryKV()
	kv.FailWrites = errors.New("quota exceeded")
	err := NewStore(kv).Persist(economy.DefaultState())
	if err == nil || !errors.Is(err, kv.FailWrites) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}

func TestSQLite_PersistSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "progress.sqlite")
	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	in := economy.State{Balance: 42, Owned: []string{"dropper1", "conveyor_rails", "walls1"}, GlobalMultiplier: 1}
	if err := NewStore(kv).Persist(in); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	// Overwrite must upsert, not duplicate.
	in.Balance = 7
	if err := NewStore(kv).Persist(in); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	kv, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer kv.Close()
	out, err := NewStore(kv).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Balance != 7 || !reflect.DeepEqual(out.Owned, in.Owned) {
		t.Fatalf("reloaded %+v", out)
	}

	if err := NewStore(kv).Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, ok, _ := kv.Get(KeyBalance); ok {
		t.Fatalf("balance key survived reset")
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

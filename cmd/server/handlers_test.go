package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"factorytycoon.dev/internal/persistence/progress"
	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/session"
	"factorytycoon.dev/internal/sim/tuning"
	"factorytycoon.dev/internal/transport/ws"
)

func newTestMux(t *testing.T, admin bool) (*http.ServeMux, *session.Session) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	kv := progress.NewMemoryKV()
	kv.Set(progress.KeyBalance, "40")
	kv.Set(progress.KeyOwned, `["dropper1"]`)
	sess, err := session.New(session.Config{ID: "srv-test"}, catalogs.Default(), tuning.Defaults(), progress.NewStore(kv), nil, logger)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = sess.Run(ctx) }()
	return newMux(sess, ws.NewServer(sess, nil, logger), admin), sess
}

func serve(mux *http.ServeMux, method, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndMetrics(t *testing.T) {
	mux, _ := newTestMux(t, false)

	rr := serve(mux, http.MethodGet, "/healthz", "")
	if rr.Code != 200 || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}

	rr = serve(mux, http.MethodGet, "/metrics", "")
	body := rr.Body.String()
	for _, want := range []string{
		`tycoon_balance{session="srv-test"} 40`,
		`tycoon_owned_items{session="srv-test"} 1`,
		`tycoon_floor_machines{session="srv-test"} 1`,
		"tycoon_ws_clients 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestBootstrapServesWelcome(t *testing.T) {
	mux, _ := newTestMux(t, false)
	rr := serve(mux, http.MethodGet, "/v1/bootstrap", "")
	if rr.Code != 200 {
		t.Fatalf("bootstrap: %d", rr.Code)
	}
	var w struct {
		Type      string `json:"type"`
		SessionID string `json:"session_id"`
		State     struct {
			Balance int64    `json:"balance"`
			Owned   []string `json:"owned"`
		} `json:"state"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &w); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Type != "WELCOME" || w.SessionID != "srv-test" || w.State.Balance != 40 || len(w.State.Owned) != 1 {
		t.Fatalf("bootstrap: %+v", w)
	}
}

func TestAdminEndpoints(t *testing.T) {
	mux, sess := newTestMux(t, true)

	rr := serve(mux, http.MethodGet, "/admin/v1/state", "203.0.113.9:4000")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("non-loopback state: %d", rr.Code)
	}

	rr = serve(mux, http.MethodGet, "/admin/v1/state", "127.0.0.1:4000")
	if rr.Code != 200 {
		t.Fatalf("state: %d", rr.Code)
	}
	var st struct {
		Balance int64    `json:"balance"`
		Owned   []string `json:"owned"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &st)
	if st.Balance != 40 || len(st.Owned) != 1 {
		t.Fatalf("state body: %s", rr.Body.String())
	}

	rr = serve(mux, http.MethodGet, "/admin/v1/reset", "127.0.0.1:4000")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET reset: %d", rr.Code)
	}

	rr = serve(mux, http.MethodPost, "/admin/v1/reset", "[::1]:4000")
	if rr.Code != 200 {
		t.Fatalf("reset: %d %s", rr.Code, rr.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := sess.RequestSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.State.Balance != 0 || len(snap.State.Owned) != 0 {
		t.Fatalf("after reset: %+v", snap.State)
	}
}

func TestAdminDisabled(t *testing.T) {
	mux, _ := newTestMux(t, false)
	rr := serve(mux, http.MethodPost, "/admin/v1/reset", "127.0.0.1:4000")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin disabled, got %d", rr.Code)
	}
}

func TestDefaultEnableAdminHTTP(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "production")
	if defaultEnableAdminHTTP() {
		t.Fatalf("admin must default off in production")
	}
	t.Setenv("DEPLOY_ENV", "")
	if !defaultEnableAdminHTTP() {
		t.Fatalf("admin should default on in dev")
	}
	t.Setenv("TYCOON_ENABLE_ADMIN_HTTP", "false")
	if envBool("TYCOON_ENABLE_ADMIN_HTTP", true) {
		t.Fatalf("env override ignored")
	}
}

func TestOpenProgressStore(t *testing.T) {
	t.Setenv("TYCOON_STORE_BACKEND", "memory")
	b, err := openProgressStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := b.kv.(*progress.MemoryKV); !ok {
		t.Fatalf("expected memory kv, got %T", b.kv)
	}

	t.Setenv("TYCOON_STORE_BACKEND", "")
	b, err = openProgressStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer b.close()
	if _, ok := b.kv.(*progress.SQLiteKV); !ok {
		t.Fatalf("expected sqlite kv, got %T", b.kv)
	}

	t.Setenv("TYCOON_STORE_BACKEND", "d1")
	if _, err := openProgressStore(t.TempDir(), ""); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

func TestLoadTuning_ExplicitPathMustExist(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	dir := t.TempDir()

	tune, err := loadTuning(dir, "", logger)
	if err != nil {
		t.Fatalf("default path missing should fall back: %v", err)
	}
	if tune.TickRateHz != tuning.Defaults().TickRateHz {
		t.Fatalf("fallback tuning = %+v", tune)
	}

	if _, err := loadTuning(dir, filepath.Join(dir, "typo.yaml"), logger); !os.IsNotExist(err) {
		t.Fatalf("explicit missing path: got %v, want not-exist", err)
	}

	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 30\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err = loadTuning(dir, "", logger)
	if err != nil || tune.TickRateHz != 30 {
		t.Fatalf("configs tuning: %+v err=%v", tune, err)
	}
}

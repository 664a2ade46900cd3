package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"factorytycoon.dev/internal/sim/session"
	"factorytycoon.dev/internal/transport/ws"
)

func newMux(sess *session.Session, wsSrv *ws.Server, enableAdmin bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(sess, wsSrv))
	mux.HandleFunc("/v1/bootstrap", wsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	if enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			snap, err := sess.RequestSnapshot(ctx)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				SessionID string          `json:"session_id"`
				Tick      uint64          `json:"tick"`
				Balance   int64           `json:"balance"`
				Owned     []string        `json:"owned"`
				Objects   int             `json:"objects"`
				Metrics   session.Metrics `json:"metrics"`
			}{
				SessionID: snap.SessionID,
				Tick:      snap.Tick,
				Balance:   snap.State.Balance,
				Owned:     append([]string{}, snap.State.Owned...),
				Objects:   len(snap.Objects),
				Metrics:   sess.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/reset", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			res, err := sess.RequestReset(ctx)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": res.Tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": res.Tick})
		})
	}
	return mux
}

func metricsHandler(sess *session.Session, wsSrv *ws.Server) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := sess.Metrics()
		id := sess.ID()
		tick := sess.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}
		st := wsSrv.Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP tycoon_session_tick Current session tick.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_session_tick gauge\n")
		fmt.Fprintf(rw, "tycoon_session_tick{session=%q} %d\n", id, tick)

		fmt.Fprintf(rw, "# HELP tycoon_balance Current balance.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_balance gauge\n")
		fmt.Fprintf(rw, "tycoon_balance{session=%q} %d\n", id, m.Balance)

		fmt.Fprintf(rw, "# HELP tycoon_owned_items Number of owned catalog items.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_owned_items gauge\n")
		fmt.Fprintf(rw, "tycoon_owned_items{session=%q} %d\n", id, m.Owned)

		fmt.Fprintf(rw, "# HELP tycoon_floor_objects Live objects on the floor.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_floor_objects gauge\n")
		fmt.Fprintf(rw, "tycoon_floor_objects{session=%q} %d\n", id, m.Objects)

		fmt.Fprintf(rw, "# HELP tycoon_floor_machines Sources and multipliers on the floor.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_floor_machines gauge\n")
		fmt.Fprintf(rw, "tycoon_floor_machines{session=%q} %d\n", id, m.Machines)

		fmt.Fprintf(rw, "# HELP tycoon_collected_total Objects collected.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_collected_total counter\n")
		fmt.Fprintf(rw, "tycoon_collected_total{session=%q} %d\n", id, m.CollectedTotal)

		fmt.Fprintf(rw, "# HELP tycoon_credited_total Currency credited by collections and clicks.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_credited_total counter\n")
		fmt.Fprintf(rw, "tycoon_credited_total{session=%q} %d\n", id, m.CreditedTotal)

		fmt.Fprintf(rw, "# HELP tycoon_purchase_total Successful purchases.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_purchase_total counter\n")
		fmt.Fprintf(rw, "tycoon_purchase_total{session=%q} %d\n", id, m.PurchaseTotal)

		fmt.Fprintf(rw, "# HELP tycoon_reset_total Progress resets.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_reset_total counter\n")
		fmt.Fprintf(rw, "tycoon_reset_total{session=%q} %d\n", id, m.ResetTotal)

		fmt.Fprintf(rw, "# HELP tycoon_write_errors_total Failed progress or ledger writes.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_write_errors_total counter\n")
		fmt.Fprintf(rw, "tycoon_write_errors_total{session=%q,sink=%q} %d\n", id, "progress", m.PersistErrors)
		fmt.Fprintf(rw, "tycoon_write_errors_total{session=%q,sink=%q} %d\n", id, "ledger", m.LedgerErrors)

		fmt.Fprintf(rw, "# HELP tycoon_session_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_session_queue_depth gauge\n")
		fmt.Fprintf(rw, "tycoon_session_queue_depth{session=%q,queue=%q} %d\n", id, "commands", m.QueueDepths.Commands)
		fmt.Fprintf(rw, "tycoon_session_queue_depth{session=%q,queue=%q} %d\n", id, "attach", m.QueueDepths.Attach)
		fmt.Fprintf(rw, "tycoon_session_queue_depth{session=%q,queue=%q} %d\n", id, "detach", m.QueueDepths.Detach)

		fmt.Fprintf(rw, "# HELP tycoon_session_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_session_step_ms gauge\n")
		fmt.Fprintf(rw, "tycoon_session_step_ms{session=%q} %.3f\n", id, m.StepMS)

		fmt.Fprintf(rw, "# HELP tycoon_ws_clients Connected websocket clients.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_ws_clients gauge\n")
		fmt.Fprintf(rw, "tycoon_ws_clients %d\n", st.Conns)

		fmt.Fprintf(rw, "# HELP tycoon_ws_dropped_total Events dropped on full client queues.\n")
		fmt.Fprintf(rw, "# TYPE tycoon_ws_dropped_total counter\n")
		fmt.Fprintf(rw, "tycoon_ws_dropped_total %d\n", st.Dropped)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

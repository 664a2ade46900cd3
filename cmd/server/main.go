package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "factorytycoon.dev/internal/persistence/log"
	"factorytycoon.dev/internal/persistence/progress"
	"factorytycoon.dev/internal/protocol"
	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/session"
	"factorytycoon.dev/internal/sim/tuning"
	"factorytycoon.dev/internal/transport/ws"
)

func main() {
	var (
		addr          = flag.String("addr", ":8080", "http listen address")
		sessionID     = flag.String("session", "", "session id (default: random uuid)")
		configDir     = flag.String("configs", "./configs", "config directory")
		catalogPath   = flag.String("catalog", "", "path to catalog.yaml (default: <configs>/catalog.yaml, built-in if missing)")
		tuningPath    = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml, defaults if missing)")
		dataDir       = flag.String("data", "./data", "runtime data directory")
		dbPath        = flag.String("db", "", "progress sqlite path (default: <data>/progress/progress.sqlite)")
		disableLedger = flag.Bool("disable_ledger", false, "disable the economy ledger")
		noValidate    = flag.Bool("no_validate", false, "skip JSON schema validation of client messages")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := loadTuning(*configDir, *tuningPath, logger)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	cat, err := loadCatalog(*configDir, *catalogPath, logger)
	if err != nil {
		logger.Fatalf("load catalog: %v", err)
	}

	backend, err := openProgressStore(*dataDir, *dbPath)
	if err != nil {
		logger.Fatalf("open progress store: %v", err)
	}
	defer backend.close()

	var ledger session.Ledger
	if !*disableLedger {
		l := persistlog.NewLedger(*dataDir)
		defer l.Close()
		ledger = l
	}

	sess, err := session.New(
		session.Config{ID: strings.TrimSpace(*sessionID)},
		cat, tune,
		progress.NewStore(backend.kv),
		ledger,
		log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds),
	)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}
	logger.Printf("session=%s catalog=%s items=%d tuning=%s", sess.ID(), cat.Digest[:12], cat.Len(), tune.Digest()[:12])

	var validator *protocol.Validator
	if !*noValidate {
		validator, err = protocol.NewValidator()
		if err != nil {
			logger.Fatalf("schemas: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := sess.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("session stopped: %v", err)
		}
	}()

	wsSrv := ws.NewServer(sess, validator, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))
	enableAdminHTTP := envBool("TYCOON_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	if !enableAdminHTTP {
		logger.Printf("admin endpoints disabled (TYCOON_ENABLE_ADMIN_HTTP=false)")
	}
	mux := newMux(sess, wsSrv, enableAdminHTTP)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// loadTuning falls back to the built-in defaults only when the default path
// is missing; an explicit -tuning must exist.
func loadTuning(configDir, path string, logger *log.Logger) (tuning.Tuning, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = filepath.Join(configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(p)
	if err == nil {
		return tune, nil
	}
	if os.IsNotExist(err) && strings.TrimSpace(path) == "" {
		logger.Printf("tuning not found (%s); using defaults", p)
		return tuning.Defaults(), nil
	}
	return tuning.Tuning{}, err
}

func loadCatalog(configDir, path string, logger *log.Logger) (*catalogs.Catalog, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = filepath.Join(configDir, "catalog.yaml")
	}
	cat, err := catalogs.Load(p)
	if err == nil {
		return cat, nil
	}
	if os.IsNotExist(err) && strings.TrimSpace(path) == "" {
		logger.Printf("catalog not found (%s); using built-in catalog", p)
		return catalogs.Default(), nil
	}
	return nil, err
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

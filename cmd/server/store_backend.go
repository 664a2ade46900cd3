package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"factorytycoon.dev/internal/persistence/progress"
)

type progressBackend struct {
	kv    progress.KV
	close func() error
}

// openProgressStore picks the progress KV from TYCOON_STORE_BACKEND
// (sqlite by default).
func openProgressStore(dataDir, dbPath string) (progressBackend, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("TYCOON_STORE_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "memory", "none", "off":
		return progressBackend{kv: progress.NewMemoryKV(), close: func() error { return nil }}, nil
	case "sqlite":
		if strings.TrimSpace(dbPath) == "" {
			dbPath = filepath.Join(dataDir, "progress", "progress.sqlite")
		}
		kv, err := progress.OpenSQLite(dbPath)
		if err != nil {
			return progressBackend{}, err
		}
		return progressBackend{kv: kv, close: kv.Close}, nil
	default:
		return progressBackend{}, fmt.Errorf("unsupported TYCOON_STORE_BACKEND: %s", backend)
	}
}

package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// JSONLZstdWriter appends JSON lines to zstd files rotated per UTC hour.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v and flushes a complete zstd block, so a crash loses at
// most the entry being written.
func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

type Kind string

const (
	KindPurchase     Kind = "PURCHASE"
	KindCollect      Kind = "COLLECT"
	KindClick        Kind = "CLICK"
	KindReset        Kind = "RESET"
	KindSessionStart Kind = "SESSION_START"
)

// Entry is one economic event. Balance is the balance after the event.
type Entry struct {
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id,omitempty"`
	Tick      uint64    `json:"tick"`
	Kind      Kind      `json:"kind"`
	ItemID    string    `json:"item_id,omitempty"`
	ObjectID  uint64    `json:"object_id,omitempty"`
	Amount    int64     `json:"amount"`
	Balance   int64     `json:"balance"`
}

// Ledger writes economic events under <dataDir>/ledger.
type Ledger struct{ w *JSONLZstdWriter }

const FilePrefix = "ledger"

func NewLedger(dataDir string) *Ledger {
	return &Ledger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "ledger"), FilePrefix)}
}

func (l *Ledger) Record(e Entry) error {
	if e.At.IsZero() {
		e.At = l.w.now().UTC()
	}
	return l.w.Write(e)
}

func (l *Ledger) Dir() string  { return l.w.baseDir }
func (l *Ledger) Close() error { return l.w.Close() }

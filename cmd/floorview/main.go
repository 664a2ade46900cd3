// Command floorview plays the factory in a terminal, driving a session in
// process.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"

	persistlog "factorytycoon.dev/internal/persistence/log"
	"factorytycoon.dev/internal/persistence/progress"
	"factorytycoon.dev/internal/sim/catalogs"
	"factorytycoon.dev/internal/sim/floor"
	"factorytycoon.dev/internal/sim/session"
	"factorytycoon.dev/internal/sim/tuning"
)

const (
	headerRows = 2
	footerRows = 2
)

type app struct {
	screen tcell.Screen
	sess   *session.Session
	view   *floorView
	tune   tuning.Tuning

	confirmReset bool
}

func main() {
	var (
		configDir = flag.String("configs", "./configs", "config directory")
		dataDir   = flag.String("data", "./data", "runtime data directory")
		memory    = flag.Bool("memory", false, "keep progress in memory only")
		logPath   = flag.String("log", "", "log file (default: discard)")
	)
	flag.Parse()

	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log:", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := log.New(logOut, "[floorview] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(filepath.Join(*configDir, "tuning.yaml"))
	if err != nil {
		logger.Printf("tuning: %v; using defaults", err)
		tune = tuning.Defaults()
	}
	cat, err := catalogs.Load(filepath.Join(*configDir, "catalog.yaml"))
	if err != nil {
		logger.Printf("catalog: %v; using built-in", err)
		cat = catalogs.Default()
	}

	var kv progress.KV = progress.NewMemoryKV()
	var ledger session.Ledger
	if !*memory {
		db, err := progress.OpenSQLite(filepath.Join(*dataDir, "progress", "progress.sqlite"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "open progress:", err)
			os.Exit(1)
		}
		defer db.Close()
		kv = db
		l := persistlog.NewLedger(*dataDir)
		defer l.Close()
		ledger = l
	}

	sess, err := session.New(session.Config{}, cat, tune, progress.NewStore(kv), ledger, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "session:", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	a := &app{screen: screen, sess: sess, tune: tune, view: newFloorView(sess.Snapshot())}
	sess.AddObserver(a.view)
	a.run()
}

// run owns the session: input, ticks and drawing share this goroutine.
func (a *app) run() {
	interval := time.Second / time.Duration(a.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	last := time.Now()
	for {
		select {
		case ev := <-eventChan:
			if !a.handleInput(ev) {
				return
			}
		case now := <-ticker.C:
			a.sess.Step(now.Sub(last))
			last = now
			a.draw()
		}
	}
}

func (a *app) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		r := ev.Rune()
		if a.confirmReset {
			a.confirmReset = false
			if r == 'y' {
				a.sess.Apply(session.Command{Kind: session.CmdReset})
			} else {
				a.view.flash = "reset cancelled"
			}
			return true
		}
		switch r {
		case 'q':
			return false
		case 'b':
			if !a.view.shop.HasNext {
				a.view.flash = "nothing left to buy"
				return true
			}
			res := a.sess.Apply(session.Command{Kind: session.CmdPurchase, ItemID: a.view.shop.Next.ID})
			if res.Err != nil {
				a.view.flash = res.Err.Error()
			}
		case 'c', ' ':
			a.sess.Apply(session.Command{Kind: session.CmdCollectorClick})
		case 'r':
			a.confirmReset = true
			a.view.flash = "reset all progress? (y/n)"
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *app) draw() {
	s := a.screen
	s.Clear()
	w, h := s.Size()
	plain := tcell.StyleDefault
	bold := plain.Bold(true)

	drawText(s, 0, 0, bold, fmt.Sprintf("balance %d   collected %d", a.view.balance, a.view.collected))
	drawText(s, 0, 1, plain, a.view.shopLine())

	l := newLayout(w, h-headerRows-footerRows)
	put := func(p floor.Vec2, r rune, st tcell.Style) {
		col, row, ok := l.cell(p)
		if !ok {
			return
		}
		s.SetContent(col, row+headerRows, r, nil, st)
	}

	for lane, z := range a.tune.Lanes {
		for x := l.minX; x <= l.maxX; x += (l.maxX - l.minX) / float64(max(w, 1)) {
			put(floor.Vec2{X: x, Z: z}, '─', plain.Foreground(tcell.ColorGray))
		}
		put(floor.Vec2{X: l.minX, Z: z}, rune(lane[0]), plain.Foreground(tcell.ColorGray))
	}
	put(floor.Vec2{X: a.tune.Collector.X, Z: a.tune.Collector.Z}, 'C', bold.Foreground(tcell.ColorGreen))

	for _, it := range a.view.items {
		lane, ok := it.Lane()
		if !ok {
			continue
		}
		p := floor.Vec2{X: it.X, Z: a.tune.Lanes[lane]}
		switch it.Kind() {
		case catalogs.KindSource:
			put(p, 'D', bold.Foreground(tcell.ColorBlue))
		case catalogs.KindMultiplier:
			put(p, 'U', bold.Foreground(tcell.ColorPurple))
		}
	}

	for _, o := range a.view.sortedObjects() {
		put(o.Pos, valueGlyph(o.Value), plain.Foreground(tcell.ColorYellow))
	}

	drawText(s, 0, h-2, plain, a.view.flash)
	drawText(s, 0, h-1, plain.Foreground(tcell.ColorGray), "b buy  c collect  r reset  q quit")
	s.Show()
}

func drawText(s tcell.Screen, x, y int, st tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, st)
		x++
	}
}

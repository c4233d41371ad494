// Package sync feeds board store changes into the Bubble Tea loop and
// optionally reloads the board on an interval.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/weekly-planner/internal/board"
)

// ChangedMsg is a tea.Msg sent when the board snapshot changed. Several
// changes may collapse into one message; read the current snapshot from
// the store when handling it.
type ChangedMsg struct{}

// refreshTimeout is the maximum time allowed for one periodic reload.
const refreshTimeout = 30 * time.Second

// Watcher subscribes to a board store.
type Watcher struct {
	store    *board.Store
	interval time.Duration
	log      *zap.SugaredLogger
	changes  chan struct{}
	stopCh   chan struct{}
	unsub    func()
	mu       gosync.Mutex
	running  bool
}

// New creates a Watcher over s. A positive interval reloads the board
// periodically while the watcher runs.
func New(s *board.Store, interval time.Duration, log *zap.SugaredLogger) *Watcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Watcher{
		store:    s,
		interval: interval,
		log:      log,
		changes:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start subscribes to the store and returns a command that waits for the
// first change. Starting a running or stopped watcher returns nil.
func (w *Watcher) Start() tea.Cmd {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.stopped() {
		return nil
	}
	w.running = true
	w.unsub = w.store.Subscribe(func(board.Snapshot) { w.notify() })

	if w.interval > 0 {
		go w.refreshLoop()
	}
	return w.waitForChange()
}

// Stop unsubscribes and ends the refresh loop. Pending waits return nil.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped() {
		return
	}
	close(w.stopCh)
	if w.unsub != nil {
		w.unsub()
	}
	w.running = false
}

// WaitForNext returns a tea.Cmd that waits for the next change. It should
// be called after handling a ChangedMsg to keep listening.
func (w *Watcher) WaitForNext() tea.Cmd {
	return w.waitForChange()
}

func (w *Watcher) stopped() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// notify records a change without blocking the store.
func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
		// A change is already queued.
	}
}

func (w *Watcher) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-w.changes:
			return ChangedMsg{}
		case <-w.stopCh:
			return nil
		}
	}
}

func (w *Watcher) refreshLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			if err := w.store.Load(ctx); err != nil {
				w.log.Debugw("periodic reload failed", "error", err)
			}
			cancel()
		}
	}
}

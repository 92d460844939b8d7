package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/localmcp/codesearch/internal/watcher"
)

// defaultRealtimeDebounce is the per-path quiet window before a change
// is applied.
const defaultRealtimeDebounce = 400 * time.Millisecond

// Realtime is the always-on strategy: every watcher event is debounced
// briefly per path and then applied immediately.
type Realtime struct {
	root     string
	indexers []FileIndexer
	relevant RelevanceFilter
	debounce time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	w         *watcher.Watcher
	debouncer *watcher.Debouncer
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	active    bool

	processed atomic.Int64
	lastAct   atomic.Int64 // unix nanos
}

// RealtimeConfig wires a Realtime strategy's collaborators.
type RealtimeConfig struct {
	Root     string
	Indexers []FileIndexer
	Relevant RelevanceFilter
	Debounce time.Duration
	Logger   *slog.Logger
}

// NewRealtime returns a Realtime strategy for cfg.
func NewRealtime(cfg RealtimeConfig) *Realtime {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultRealtimeDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Realtime{
		root:     cfg.Root,
		indexers: cfg.Indexers,
		relevant: cfg.Relevant,
		debounce: debounce,
		logger:   logger,
	}
}

func (r *Realtime) Name() string { return "realtime" }

// Start launches the watcher and begins applying debounced events in the
// background. It returns once the watcher's initial crawl completes.
func (r *Realtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return nil
	}

	w, err := watcher.New(r.root)
	if err != nil {
		return fmt.Errorf("strategy: realtime: create watcher: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.w = w
	r.cancel = cancel
	r.debouncer = watcher.NewDebouncer(r.debounce, r.onSettled(runCtx))
	r.active = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := w.Start(runCtx); err != nil && runCtx.Err() == nil {
			r.logger.Error("realtime watcher stopped unexpectedly", "error", err)
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.pump(runCtx, w)
	}()

	select {
	case <-w.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (r *Realtime) pump(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			rel, err := relativize(r.root, ev.Path)
			if err != nil {
				continue
			}
			if r.relevant != nil && !r.relevant(rel) {
				continue
			}
			r.debouncer.Add(watcher.Event{Op: ev.Op, Path: rel})
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			r.logger.Warn("realtime watcher error", "error", err)
		}
	}
}

func (r *Realtime) onSettled(ctx context.Context) func(watcher.Event) {
	return func(ev watcher.Event) {
		r.lastAct.Store(time.Now().UnixNano())

		var err error
		if ev.Op == watcher.OpUnlink {
			err = removePath(ctx, r.indexers, ev.Path)
		} else {
			err = updatePath(ctx, r.indexers, ev.Path)
		}
		if err != nil {
			r.logger.Error("realtime strategy failed to apply event",
				"path", ev.Path, "op", string(ev.Op), "error", err)
			return
		}
		r.processed.Add(1)
	}
}

// Stop cancels the watcher and waits for its goroutines to exit.
func (r *Realtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil
	}
	r.active = false
	cancel := r.cancel
	w := r.w
	deb := r.debouncer
	r.mu.Unlock()

	if deb != nil {
		deb.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if w != nil {
		_ = w.Close()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush is a no-op: events still waiting in the debouncer (counted in
// Stats as PendingFiles) are not applied early; each is applied once its
// debounce window elapses.
func (r *Realtime) Flush(ctx context.Context) error { return nil }

func (r *Realtime) Stats() Stats {
	r.mu.Lock()
	active := r.active
	deb := r.debouncer
	r.mu.Unlock()

	pending := 0
	if deb != nil {
		pending = deb.PendingCount()
	}
	var lastActivity time.Time
	if ns := r.lastAct.Load(); ns != 0 {
		lastActivity = time.Unix(0, ns)
	}
	return Stats{
		Name:           r.Name(),
		Active:         active,
		PendingFiles:   pending,
		ProcessedFiles: int(r.processed.Load()),
		LastActivity:   lastActivity,
	}
}

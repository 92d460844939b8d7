package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/localmcp/codesearch/internal/dirtyfiles"
	"github.com/localmcp/codesearch/internal/watcher"
)

// defaultLazyIdleThreshold is the idle window before the lazy strategy
// flushes on its own.
const defaultLazyIdleThreshold = 30 * time.Second

// Lazy buffers watcher events in a persisted dirty-files set and only
// applies them once the project has gone idle for a threshold, or when
// explicitly flushed (search calls, shutdown).
type Lazy struct {
	root       string
	indexers   []FileIndexer
	relevant   RelevanceFilter
	idleWindow time.Duration
	dirty      *dirtyfiles.Set
	logger     *slog.Logger

	mu        sync.Mutex
	w         *watcher.Watcher
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	active    bool
	idleTimer *time.Timer
	flushing  sync.Mutex

	processed atomic.Int64
	lastAct   atomic.Int64
}

// LazyConfig wires a Lazy strategy's collaborators.
type LazyConfig struct {
	Root       string
	Indexers   []FileIndexer
	Relevant   RelevanceFilter
	IdleWindow time.Duration
	DirtyFiles *dirtyfiles.Set
	Logger     *slog.Logger
}

// NewLazy returns a Lazy strategy for cfg. cfg.DirtyFiles must already be
// Load()ed by the caller so a crash-then-restart resumes any pending set.
func NewLazy(cfg LazyConfig) *Lazy {
	idle := cfg.IdleWindow
	if idle <= 0 {
		idle = defaultLazyIdleThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Lazy{
		root:       cfg.Root,
		indexers:   cfg.Indexers,
		relevant:   cfg.Relevant,
		idleWindow: idle,
		dirty:      cfg.DirtyFiles,
		logger:     logger,
	}
}

func (l *Lazy) Name() string { return "lazy" }

func (l *Lazy) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return nil
	}

	w, err := watcher.New(l.root)
	if err != nil {
		return fmt.Errorf("strategy: lazy: create watcher: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	l.w = w
	l.cancel = cancel
	l.active = true
	l.idleTimer = time.AfterFunc(l.idleWindow, func() { l.onIdle(runCtx) })

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := w.Start(runCtx); err != nil && runCtx.Err() == nil {
			l.logger.Error("lazy watcher stopped unexpectedly", "error", err)
		}
	}()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.pump(runCtx, w)
	}()

	select {
	case <-w.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (l *Lazy) pump(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			rel, err := relativize(l.root, ev.Path)
			if err != nil {
				continue
			}
			if l.relevant != nil && !l.relevant(rel) {
				continue
			}

			if ev.Op == watcher.OpUnlink {
				l.dirty.MarkDeleted(rel)
			} else {
				l.dirty.MarkChanged(rel)
			}
			_ = l.dirty.Save()
			l.lastAct.Store(time.Now().UnixNano())
			l.resetIdleTimer(ctx)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			l.logger.Warn("lazy watcher error", "error", err)
		}
	}
}

func (l *Lazy) resetIdleTimer(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.idleTimer != nil {
		l.idleTimer.Stop()
	}
	l.idleTimer = time.AfterFunc(l.idleWindow, func() { l.onIdle(ctx) })
}

func (l *Lazy) onIdle(ctx context.Context) {
	if err := l.Flush(ctx); err != nil {
		l.logger.Error("lazy strategy idle flush failed", "error", err)
	}
}

// Flush drains the dirty-files set, applying deletions before
// changes/additions, and persists the now-empty set only after every
// path has been applied.
// Concurrent Flush calls (an idle timer firing alongside an explicit
// search-triggered flush) are serialized rather than interleaved.
func (l *Lazy) Flush(ctx context.Context) error {
	l.flushing.Lock()
	defer l.flushing.Unlock()

	changed, deleted := l.dirty.Drain()
	if len(changed) == 0 && len(deleted) == 0 {
		return nil
	}

	var firstErr error
	for _, rel := range deleted {
		if err := removePath(ctx, l.indexers, rel); err != nil {
			l.logger.Error("lazy flush: remove failed", "path", rel, "error", err)
			l.dirty.MarkDeleted(rel)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		l.processed.Add(1)
	}
	for _, rel := range changed {
		if err := updatePath(ctx, l.indexers, rel); err != nil {
			l.logger.Error("lazy flush: update failed", "path", rel, "error", err)
			l.dirty.MarkChanged(rel)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		l.processed.Add(1)
	}

	if err := l.dirty.Save(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (l *Lazy) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return nil
	}
	l.active = false
	cancel := l.cancel
	w := l.w
	if l.idleTimer != nil {
		l.idleTimer.Stop()
	}
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if w != nil {
		_ = w.Close()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return l.Flush(ctx)
}

func (l *Lazy) Stats() Stats {
	l.mu.Lock()
	active := l.active
	l.mu.Unlock()

	var lastActivity time.Time
	if ns := l.lastAct.Load(); ns != 0 {
		lastActivity = time.Unix(0, ns)
	}
	return Stats{
		Name:           l.Name(),
		Active:         active,
		PendingFiles:   l.dirty.Len(),
		ProcessedFiles: int(l.processed.Load()),
		LastActivity:   lastActivity,
	}
}

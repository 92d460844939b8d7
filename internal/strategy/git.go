package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	gogit "github.com/go-git/go-git/v5"

	"github.com/localmcp/codesearch/internal/integrity"
)

// defaultGitDebounce is the ref-log settle window before the git
// strategy reconciles: a rebase or checkout touches .git/logs/HEAD many
// times in quick succession.
const defaultGitDebounce = 2 * time.Second

// DriftEngine is the subset of integrity.Engine the git strategy drives.
// A project wires one per table (code, docs); every reconciliation pass
// runs both.
type DriftEngine interface {
	DetectDrift(ctx context.Context) (integrity.Drift, error)
	Reconcile(ctx context.Context, drift integrity.Drift) error
}

var _ DriftEngine = (*integrity.Engine)(nil)

var (
	_ Strategy = (*Git)(nil)
	_ Strategy = (*Realtime)(nil)
	_ Strategy = (*Lazy)(nil)
)

// Git watches only .git/logs/HEAD rather than the whole tree, and on a
// debounced change asks each wired DriftEngine to detect and reconcile
// drift: a checkout, branch switch, or pull changes many files at once
// without emitting per-file events the other two strategies rely on.
// Repo validity is checked in Start via go-git rather than by
// hand-parsing .git/config.
type Git struct {
	root     string
	engines  []DriftEngine
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	w      *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active bool
	timer  *time.Timer

	processed atomic.Int64
	lastAct   atomic.Int64
}

// GitConfig wires a Git strategy's collaborators.
type GitConfig struct {
	Root     string
	Engines  []DriftEngine
	Debounce time.Duration
	Logger   *slog.Logger
}

// NewGit returns a Git strategy for cfg.
func NewGit(cfg GitConfig) *Git {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultGitDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Git{
		root:     cfg.Root,
		engines:  cfg.Engines,
		debounce: debounce,
		logger:   logger,
	}
}

func (g *Git) Name() string { return "git" }

// ValidateRepo confirms root is a git working tree before the strategy
// is allowed to start; the git strategy refuses to activate on a non-git
// project.
func ValidateRepo(root string) error {
	_, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: false})
	if err != nil {
		return fmt.Errorf("strategy: git: %s is not a git repository: %w", root, err)
	}
	return nil
}

// Start validates the repository, then watches .git/logs (the directory,
// since the HEAD log file may not exist yet on a brand-new repo) for
// writes to the HEAD ref log.
func (g *Git) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return nil
	}

	if err := ValidateRepo(g.root); err != nil {
		return err
	}

	logsDir := filepath.Join(g.root, ".git", "logs")
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("strategy: git: create watcher: %w", err)
	}
	if err := w.Add(logsDir); err != nil {
		_ = w.Close()
		return fmt.Errorf("strategy: git: watch %s: %w", logsDir, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g.w = w
	g.cancel = cancel
	g.active = true

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.pump(runCtx)
	}()

	return nil
}

func (g *Git) pump(ctx context.Context) {
	headLog := filepath.Join(g.root, ".git", "logs", "HEAD")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-g.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != headLog {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			g.lastAct.Store(time.Now().UnixNano())
			g.resetTimer(ctx)
		case err, ok := <-g.w.Errors:
			if !ok {
				return
			}
			g.logger.Warn("git strategy watcher error", "error", err)
		}
	}
}

func (g *Git) resetTimer(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(g.debounce, func() {
		if err := g.Flush(ctx); err != nil {
			g.logger.Error("git strategy reconcile failed", "error", err)
		}
	})
}

// Flush runs DetectDrift then Reconcile against every wired engine. A
// drift recommending a full rebuild is surfaced to the caller rather than
// silently reconciled file-by-file.
func (g *Git) Flush(ctx context.Context) error {
	var firstErr error
	for _, eng := range g.engines {
		drift, err := eng.DetectDrift(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if drift.IsEmpty() {
			continue
		}
		if err := eng.Reconcile(ctx, drift); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		g.processed.Add(int64(len(drift.Added) + len(drift.Modified) + len(drift.Removed)))
	}
	return firstErr
}

func (g *Git) Stop(ctx context.Context) error {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return nil
	}
	g.active = false
	cancel := g.cancel
	w := g.w
	if g.timer != nil {
		g.timer.Stop()
	}
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if w != nil {
		_ = w.Close()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Git) Stats() Stats {
	g.mu.Lock()
	active := g.active
	g.mu.Unlock()

	var lastActivity time.Time
	if ns := g.lastAct.Load(); ns != 0 {
		lastActivity = time.Unix(0, ns)
	}
	return Stats{
		Name:           g.Name(),
		Active:         active,
		ProcessedFiles: int(g.processed.Load()),
		LastActivity:   lastActivity,
	}
}

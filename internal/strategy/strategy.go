// Package strategy implements the three indexing strategies (realtime,
// lazy, git) behind one shared interface, plus the Orchestrator that
// owns whichever one is currently active.
package strategy

import (
	"context"
	"path/filepath"
	"time"

	"github.com/localmcp/codesearch/internal/indexmanager"
)

var _ FileIndexer = (*indexmanager.Manager)(nil)

// FileIndexer is the subset of indexmanager.Manager a strategy drives. A
// project wires two FileIndexers per strategy instance (code table, docs
// table); each call reaches both, and each Manager applies its own
// per-table policy decision internally, so a strategy never needs to
// know which table a path belongs to.
type FileIndexer interface {
	UpdateFile(ctx context.Context, relativePath string) error
	RemoveFile(ctx context.Context, relativePath string) error
}

// RelevanceFilter is a coarse, cheap precheck a strategy applies before
// queuing a watcher event at all, so that obviously irrelevant churn
// (node_modules rewrites, build output) never reaches a debouncer or the
// dirty-files set. It is deliberately coarse: the authoritative decision
// still happens inside each FileIndexer's own UpdateFile, via
// internal/policy. A nil filter accepts every path.
type RelevanceFilter func(relativePath string) bool

// Stats reports one strategy's current activity, surfaced by
// get_index_status.
type Stats struct {
	Name           string
	Active         bool
	PendingFiles   int
	ProcessedFiles int
	LastActivity   time.Time
}

// Strategy is the interface realtime, lazy, and git all implement, so
// the orchestrator can switch between them without special-casing.
type Strategy interface {
	// Name identifies the strategy ("realtime", "lazy", "git").
	Name() string
	// Start begins the strategy's background activity (watching,
	// debouncing, or ref-log watching) and returns once it is ready to
	// observe events, or immediately on error.
	Start(ctx context.Context) error
	// Stop halts background activity. It blocks until any in-flight
	// work finishes or ctx is done, whichever comes first.
	Stop(ctx context.Context) error
	// Flush forces any buffered work (the lazy strategy's dirty set, the
	// git strategy's pending reconciliation) to apply immediately.
	// Strategies with no buffering treat it as a no-op.
	Flush(ctx context.Context) error
	// Stats reports current activity for diagnostics.
	Stats() Stats
}

// applyToAll runs fn against every indexer, short-circuiting on the
// first error: indexers after the failing one do not see the event, and
// the error is returned so the caller can log it and move on to the next
// path.
func applyToAll(ctx context.Context, indexers []FileIndexer, fn func(FileIndexer) error) error {
	for _, idx := range indexers {
		if err := fn(idx); err != nil {
			return err
		}
	}
	return nil
}

// updatePath pushes an add/change event for relativePath through every
// wired indexer.
func updatePath(ctx context.Context, indexers []FileIndexer, relativePath string) error {
	return applyToAll(ctx, indexers, func(idx FileIndexer) error {
		return idx.UpdateFile(ctx, relativePath)
	})
}

// removePath pushes an unlink event for relativePath through every wired
// indexer.
func removePath(ctx context.Context, indexers []FileIndexer, relativePath string) error {
	return applyToAll(ctx, indexers, func(idx FileIndexer) error {
		return idx.RemoveFile(ctx, relativePath)
	})
}

// relativize converts an absolute watcher path to a root-relative,
// forward-slash path, mirroring indexmanager's own enumeration.
func relativize(root, absPath string) (string, error) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

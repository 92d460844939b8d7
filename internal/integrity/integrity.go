// Package integrity implements the integrity engine: it
// reconciles the on-disk file set against the fingerprint store when a
// trigger (the git strategy's ref-log watch, a manual check) suggests the
// two may have drifted, and applies the resulting delta back through the
// index manager.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/localmcp/codesearch/internal/fingerprint"
	"github.com/localmcp/codesearch/internal/indexmanager"
	"github.com/localmcp/codesearch/internal/policy"
)

// defaultMaxDriftEvents bounds how many added/modified/removed files one
// DetectDrift pass will report before recommending a full rebuild instead.
const defaultMaxDriftEvents = 5000

// ErrRecommendRebuild is returned by Reconcile when called with a Drift
// whose RecommendRebuild flag is set; callers should run a full reindex
// instead of reconciling file-by-file.
var ErrRecommendRebuild = errors.New("integrity: drift exceeds bound, full rebuild recommended")

// ShouldIndex mirrors indexmanager.ShouldIndex: the policy-filtered set
// defines disk_set.
type ShouldIndex func(relativePath string) policy.Decision

// Manager is the subset of *indexmanager.Manager that Reconcile drives.
type Manager interface {
	UpdateFile(ctx context.Context, relativePath string) error
	RemoveFile(ctx context.Context, relativePath string) error
}

var _ Manager = (*indexmanager.Manager)(nil)

// Drift is the {added, modified, removed} classification from detecting
// drift between disk and the fingerprint store (same shape as
// fingerprint.Delta).
type Drift struct {
	Added            []string
	Modified         []string
	Removed          []string
	RecommendRebuild bool
}

// IsEmpty reports no drift was found.
func (d Drift) IsEmpty() bool {
	return !d.RecommendRebuild && len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// Engine reconciles one table's (code or docs) fingerprint store against
// disk. A project wires one Engine per table, pairing each with its
// matching indexmanager.Manager.
type Engine struct {
	root           string
	shouldIndex    ShouldIndex
	fingerprints   *fingerprint.Store
	manager        Manager
	maxDriftEvents int
	logger         *slog.Logger
}

// Config wires an Engine's collaborators.
type Config struct {
	Root           string
	ShouldIndex    ShouldIndex
	Fingerprints   *fingerprint.Store
	Manager        Manager
	MaxDriftEvents int
	Logger         *slog.Logger
}

// New returns an Engine for one table.
func New(cfg Config) *Engine {
	max := cfg.MaxDriftEvents
	if max <= 0 {
		max = defaultMaxDriftEvents
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		root:           cfg.Root,
		shouldIndex:    cfg.ShouldIndex,
		fingerprints:   cfg.Fingerprints,
		manager:        cfg.Manager,
		maxDriftEvents: max,
		logger:         logger,
	}
}

// DetectDrift compares the policy-filtered files on disk against the
// fingerprint store's keys, hashing every file present in both to find
// silent modifications. It never mutates state.
func (e *Engine) DetectDrift(ctx context.Context) (Drift, error) {
	if err := ctx.Err(); err != nil {
		return Drift{}, err
	}

	files, err := e.enumerate()
	if err != nil {
		return Drift{}, fmt.Errorf("integrity: enumerate disk set: %w", err)
	}

	delta := e.fingerprints.Delta(e.root, files)
	total := len(delta.Added) + len(delta.Modified) + len(delta.Removed)
	if total > e.maxDriftEvents {
		e.logger.Warn("drift exceeds bound, recommending full rebuild",
			"drift_events", total, "max_drift_events", e.maxDriftEvents)
		return Drift{RecommendRebuild: true}, nil
	}

	return Drift{Added: delta.Added, Modified: delta.Modified, Removed: delta.Removed}, nil
}

// Reconcile applies drift to the index: removed files first, then added
// and modified files, each through the index manager under its own
// indexing-lock acquisition. Reconcile is idempotent: calling it twice in
// a row with the same Drift is a no-op the second time, because
// UpdateFile/RemoveFile are themselves idempotent against already-applied
// state.
func (e *Engine) Reconcile(ctx context.Context, drift Drift) error {
	if drift.RecommendRebuild {
		return ErrRecommendRebuild
	}

	for _, rel := range drift.Removed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.manager.RemoveFile(ctx, rel); err != nil {
			return fmt.Errorf("integrity: remove %s: %w", rel, err)
		}
	}
	for _, rel := range append(append([]string{}, drift.Added...), drift.Modified...) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.manager.UpdateFile(ctx, rel); err != nil {
			return fmt.Errorf("integrity: update %s: %w", rel, err)
		}
	}
	return nil
}

// enumerate mirrors indexmanager.Manager.enumerate without the max-files
// truncation: the integrity engine's own bound is on drift event count,
// not on disk-set size, since computing the delta requires seeing every
// candidate file.
func (e *Engine) enumerate() ([]string, error) {
	var paths []string
	walkErr := filepath.Walk(e.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		rel, relErr := filepath.Rel(e.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !e.shouldIndex(rel).Allow {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return paths, nil
}

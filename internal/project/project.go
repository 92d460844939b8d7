// Package project wires every other internal package into the eight
// operations the tool surface and CLI both expose: create_index,
// reindex_project, reindex_file, delete_index, search_code, search_docs,
// search_by_path, get_index_status. One Project owns exactly one project
// root, so the tool server and each CLI command share the same wiring
// instead of constructing their own collaborators inline.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/localmcp/codesearch/internal/chunk"
	"github.com/localmcp/codesearch/internal/config"
	"github.com/localmcp/codesearch/internal/dirtyfiles"
	"github.com/localmcp/codesearch/internal/embedder"
	"github.com/localmcp/codesearch/internal/fingerprint"
	"github.com/localmcp/codesearch/internal/indexmanager"
	"github.com/localmcp/codesearch/internal/integrity"
	"github.com/localmcp/codesearch/internal/lock"
	"github.com/localmcp/codesearch/internal/mcperrors"
	"github.com/localmcp/codesearch/internal/metadata"
	"github.com/localmcp/codesearch/internal/pathutil"
	"github.com/localmcp/codesearch/internal/policy"
	"github.com/localmcp/codesearch/internal/shutdown"
	"github.com/localmcp/codesearch/internal/strategy"
	"github.com/localmcp/codesearch/internal/vectorstore"
)

// IndexDir returns the directory holding every on-disk artifact for the
// project rooted at absRoot: ~/.mcp/search/indexes/<hex64>, where the
// hex64 component is the SHA-256 of the canonicalized root path. Falls
// back to the temp directory if the home directory can't be resolved.
func IndexDir(absRoot string) string {
	hash := pathutil.HashProjectPath(absRoot)
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".mcp", "search", "indexes", hash)
	}
	return filepath.Join(home, ".mcp", "search", "indexes", hash)
}

// Project bundles every collaborator needed to serve the eight
// operations for one project root.
type Project struct {
	root    string
	dataDir string
	cfg     *config.Config
	logger  *slog.Logger

	policy *policy.Policy

	codeEmbed embedder.Embedder
	docsEmbed embedder.Embedder

	codeStore *vectorstore.Store
	docsStore *vectorstore.Store

	codeFingerprints *fingerprint.Store
	docsFingerprints *fingerprint.Store

	meta *metadata.Store

	indexLock *lock.IndexingLock

	codeManager *indexmanager.Manager
	docsManager *indexmanager.Manager

	codeIntegrity *integrity.Engine
	docsIntegrity *integrity.Engine

	dirty        *dirtyfiles.Set
	orchestrator *strategy.Orchestrator
	registry     *shutdown.Registry
}

// Open loads (or initializes) every on-disk artifact for root and wires
// the collaborator graph. Callers must call Close when done.
func Open(root string, logger *slog.Logger) (*Project, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("project: resolve root: %w", err)
	}
	dataDir := IndexDir(absRoot)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("project: create data dir: %w", err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}

	pol, err := policy.New(absRoot, cfg)
	if err != nil {
		return nil, err
	}

	codeEmbed := embedder.NewStatic(cfg.Embeddings.CodeDimensions, cfg.Embeddings.CodeModel)
	docsEmbed := embedder.NewStatic(cfg.Embeddings.DocsDimensions, cfg.Embeddings.DocsModel)

	codeStore, err := vectorstore.Open(filepath.Join(dataDir, "code"))
	if err != nil {
		return nil, fmt.Errorf("project: open code store: %w", err)
	}
	docsStore, err := vectorstore.Open(filepath.Join(dataDir, "docs"))
	if err != nil {
		_ = codeStore.Close()
		return nil, fmt.Errorf("project: open docs store: %w", err)
	}

	codeFP := fingerprint.New(filepath.Join(dataDir, "fingerprints.json"))
	if err := codeFP.Load(logger); err != nil {
		return nil, fmt.Errorf("project: load code fingerprints: %w", err)
	}
	docsFP := fingerprint.New(filepath.Join(dataDir, "docs-fingerprints.json"))
	if err := docsFP.Load(logger); err != nil {
		return nil, fmt.Errorf("project: load docs fingerprints: %w", err)
	}

	meta := metadata.New(filepath.Join(dataDir, "metadata.json"), absRoot, time.Now())
	if err := meta.Load(); err != nil {
		return nil, fmt.Errorf("project: load metadata: %w", err)
	}

	dirty := dirtyfiles.New(filepath.Join(dataDir, "dirty-files.json"))
	if err := dirty.Load(); err != nil {
		return nil, fmt.Errorf("project: load dirty files: %w", err)
	}

	indexLock := lock.NewIndexingLock()

	codeManager := indexmanager.New(indexmanager.Config{
		Root:         absRoot,
		Table:        indexmanager.TableCode,
		ShouldIndex:  pol.ShouldIndexCode,
		Chunker:      chunk.NewCodeChunker(),
		Embedder:     codeEmbed,
		Store:        codeStore,
		Fingerprints: codeFP,
		Metadata:     meta,
		Lock:         indexLock,
		MaxFiles:     cfg.MaxFiles,
		EmbedBatch:   cfg.Embeddings.BatchSize,
		Logger:       logger,
	})
	docsManager := indexmanager.New(indexmanager.Config{
		Root:         absRoot,
		Table:        indexmanager.TableDocs,
		ShouldIndex:  pol.ShouldIndexDocs,
		Chunker:      chunk.NewDocsChunker(),
		Embedder:     docsEmbed,
		Store:        docsStore,
		Fingerprints: docsFP,
		Metadata:     meta,
		Lock:         indexLock,
		MaxFiles:     cfg.MaxFiles,
		EmbedBatch:   cfg.Embeddings.BatchSize,
		Logger:       logger,
	})

	codeIntegrity := integrity.New(integrity.Config{
		Root:         absRoot,
		ShouldIndex:  pol.ShouldIndexCode,
		Fingerprints: codeFP,
		Manager:      codeManager,
		Logger:       logger,
	})
	docsIntegrity := integrity.New(integrity.Config{
		Root:         absRoot,
		ShouldIndex:  pol.ShouldIndexDocs,
		Fingerprints: docsFP,
		Manager:      docsManager,
		Logger:       logger,
	})

	p := &Project{
		root:             absRoot,
		dataDir:          dataDir,
		cfg:              cfg,
		logger:           logger,
		policy:           pol,
		codeEmbed:        codeEmbed,
		docsEmbed:        docsEmbed,
		codeStore:        codeStore,
		docsStore:        docsStore,
		codeFingerprints: codeFP,
		docsFingerprints: docsFP,
		meta:             meta,
		indexLock:        indexLock,
		codeManager:      codeManager,
		docsManager:      docsManager,
		codeIntegrity:    codeIntegrity,
		docsIntegrity:    docsIntegrity,
		dirty:            dirty,
		orchestrator:     strategy.NewOrchestrator(logger),
		registry:         shutdown.New(logger),
	}

	p.registry.Register("vectorstore", func(ctx context.Context) error {
		errCode := p.codeStore.Close()
		errDocs := p.docsStore.Close()
		if errCode != nil {
			return errCode
		}
		return errDocs
	})
	p.registry.Register("strategy-orchestrator", func(ctx context.Context) error {
		return p.orchestrator.Stop(ctx)
	})

	return p, nil
}

// Close stops background activity and releases every collaborator's
// resources, in LIFO order via the project's own shutdown registry.
func (p *Project) Close(ctx context.Context) error {
	p.registry.Shutdown(ctx)
	return nil
}

// Root returns the project's absolute root path.
func (p *Project) Root() string { return p.root }

// relevanceFilter is the coarse precheck strategies apply before queuing
// a watcher event: allowed if either table's policy would allow it.
func (p *Project) relevanceFilter(relativePath string) bool {
	return p.policy.ShouldIndexCode(relativePath).Allow || p.policy.ShouldIndexDocs(relativePath).Allow
}

// buildStrategy constructs the Strategy named by p.cfg.Strategy, wiring
// both tables' managers (and integrity engines, for the git strategy).
func (p *Project) buildStrategy() (strategy.Strategy, error) {
	indexers := []strategy.FileIndexer{p.codeManager, p.docsManager}

	switch p.cfg.Strategy {
	case "lazy":
		return strategy.NewLazy(strategy.LazyConfig{
			Root:       p.root,
			Indexers:   indexers,
			Relevant:   p.relevanceFilter,
			IdleWindow: time.Duration(p.cfg.LazyIdleThreshold) * time.Second,
			DirtyFiles: p.dirty,
			Logger:     p.logger,
		}), nil
	case "git":
		if err := strategy.ValidateRepo(p.root); err != nil {
			return nil, mcperrors.Wrap(mcperrors.CodeInternal, "git strategy requires a git repository", err)
		}
		return strategy.NewGit(strategy.GitConfig{
			Root:    p.root,
			Engines: []strategy.DriftEngine{p.codeIntegrity, p.docsIntegrity},
			Logger:  p.logger,
		}), nil
	default:
		return strategy.NewRealtime(strategy.RealtimeConfig{
			Root:     p.root,
			Indexers: indexers,
			Relevant: p.relevanceFilter,
			Logger:   p.logger,
		}), nil
	}
}

// StartWatching activates the configured strategy, starting background
// incremental indexing. Searches and single-file operations work without
// it; it is purely the live-update mechanism.
func (p *Project) StartWatching(ctx context.Context) error {
	s, err := p.buildStrategy()
	if err != nil {
		return err
	}
	return p.orchestrator.SetStrategy(ctx, s)
}

// StopWatching deactivates the currently running strategy, if any.
func (p *Project) StopWatching(ctx context.Context) error {
	return p.orchestrator.Stop(ctx)
}

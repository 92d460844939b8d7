// Package indexmanager implements the per-table index lifecycle: full
// index builds and single-file incremental updates. A
// project has two Manager instances, one for the code table (384-dim) and
// one for the docs table (768-dim); they share one IndexingLock.
package indexmanager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/localmcp/codesearch/internal/chunk"
	"github.com/localmcp/codesearch/internal/embedder"
	"github.com/localmcp/codesearch/internal/fingerprint"
	"github.com/localmcp/codesearch/internal/lock"
	"github.com/localmcp/codesearch/internal/mcperrors"
	"github.com/localmcp/codesearch/internal/metadata"
	"github.com/localmcp/codesearch/internal/pathutil"
	"github.com/localmcp/codesearch/internal/policy"
	"github.com/localmcp/codesearch/internal/vectorstore"
)

// chunkBatchSize bounds how many files' chunks accumulate before an
// InsertChunks call.
const chunkBatchSize = 50

// defaultEmbedBatchSize bounds how many chunk texts are embedded per
// EmbedBatch call. config.Embeddings.BatchSize overrides.
const defaultEmbedBatchSize = 32

// Chunker is satisfied by both *chunk.CodeChunker and *chunk.DocsChunker.
type Chunker interface {
	ChunkFile(path string) ([]chunk.Chunk, error)
}

// ShouldIndex is satisfied by policy.Policy's ShouldIndexCode/ShouldIndexDocs.
type ShouldIndex func(relativePath string) policy.Decision

// ProgressEvent reports incremental progress during a full index build.
type ProgressEvent struct {
	FilesScanned  int
	FilesIndexed  int
	ChunksIndexed int
	CurrentFile   string
}

// ProgressFunc receives zero or more ProgressEvents during CreateFullIndex.
type ProgressFunc func(ProgressEvent)

// TableKind distinguishes the code table from the docs table for metadata
// identity purposes; it is independent of embedder.Domain, which
// distinguishes content from query text within either table's embedder.
type TableKind string

const (
	TableCode TableKind = "code"
	TableDocs TableKind = "docs"
)

// Manager owns one table's (code or docs) full-index and incremental-update
// lifecycle.
type Manager struct {
	root         string
	table        TableKind
	shouldIndex  ShouldIndex
	chunker      Chunker
	embed        embedder.Embedder
	store        *vectorstore.Store
	fingerprints *fingerprint.Store
	meta         *metadata.Store
	lock         *lock.IndexingLock
	maxFiles     int
	embedBatch   int
	logger       *slog.Logger
}

// Config wires a Manager's collaborators.
type Config struct {
	Root         string
	Table        TableKind
	ShouldIndex  ShouldIndex
	Chunker      Chunker
	Embedder     embedder.Embedder
	Store        *vectorstore.Store
	Fingerprints *fingerprint.Store
	Metadata     *metadata.Store
	Lock         *lock.IndexingLock
	MaxFiles     int
	EmbedBatch   int
	Logger       *slog.Logger
}

// New returns a Manager for one table.
func New(cfg Config) *Manager {
	embedBatch := cfg.EmbedBatch
	if embedBatch <= 0 {
		embedBatch = defaultEmbedBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		root:         cfg.Root,
		table:        cfg.Table,
		shouldIndex:  cfg.ShouldIndex,
		chunker:      cfg.Chunker,
		embed:        cfg.Embedder,
		store:        cfg.Store,
		fingerprints: cfg.Fingerprints,
		meta:         cfg.Metadata,
		lock:         cfg.Lock,
		maxFiles:     cfg.MaxFiles,
		embedBatch:   embedBatch,
		logger:       logger,
	}
}

// SetStore swaps the vector store this Manager writes to, used when a
// caller (internal/project's delete_index) closes and reopens a fresh
// store on the same path rather than rebuilding the whole Manager.
func (m *Manager) SetStore(store *vectorstore.Store) {
	m.store = store
}

type pendingChunk struct {
	path        string
	text        string
	startLine   int
	endLine     int
	contentHash string
}

// CreateFullIndex enumerates every policy-allowed file under root, chunks
// and embeds each, and persists the result, reporting progress via
// onProgress (which may be nil).
func (m *Manager) CreateFullIndex(ctx context.Context, onProgress ProgressFunc) error {
	if !m.lock.TryAcquire(m.root) {
		return mcperrors.New(mcperrors.CodeIndexingInProgress, "an indexing operation is already in progress")
	}
	defer m.lock.Release()

	files, truncated, err := m.enumerate()
	if err != nil {
		return err
	}
	if truncated {
		m.logger.Warn("project exceeds max_files, indexing truncated subset",
			"max_files", m.maxFiles, "found", len(files))
	}

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("indexmanager: clear store: %w", err)
	}
	m.fingerprints.Clear()

	m.meta.SetIndexingState(metadata.StateInProgress)

	var (
		pending      []pendingChunk
		filesInBatch int
		totalChunks  int
		filesIndexed int
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := m.embedAndInsert(ctx, pending); err != nil {
			return err
		}
		totalChunks += len(pending)
		pending = pending[:0]
		filesInBatch = 0
		return nil
	}

	for i, rel := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		abs := filepath.Join(m.root, filepath.FromSlash(rel))
		hash, hashErr := pathutil.HashFile(abs)
		if hashErr != nil {
			m.logger.Warn("skipping unreadable file", "path", rel, "error", hashErr)
			continue
		}
		m.fingerprints.SetHash(rel, hash)

		chunks, chunkErr := m.chunker.ChunkFile(abs)
		if chunkErr != nil {
			m.logger.Warn("failed to chunk file", "path", rel, "error", chunkErr)
			continue
		}
		for _, c := range chunks {
			pending = append(pending, pendingChunk{path: rel, text: c.Text, startLine: c.StartLine, endLine: c.EndLine, contentHash: hash})
		}
		filesIndexed++
		filesInBatch++

		if onProgress != nil {
			onProgress(ProgressEvent{FilesScanned: i + 1, FilesIndexed: filesIndexed, ChunksIndexed: totalChunks + len(pending), CurrentFile: rel})
		}

		if filesInBatch >= chunkBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := m.fingerprints.Save(); err != nil {
		return fmt.Errorf("indexmanager: save fingerprints: %w", err)
	}

	m.meta.SetIndexingState(metadata.StateComplete)
	chunkCount, _ := m.store.CountChunks(ctx)
	fileCount, _ := m.store.CountFiles(ctx)
	storageSize, _ := m.store.GetStorageSize()
	if m.table == TableDocs {
		m.meta.RecordDocsIndex(time.Now(), metadata.DocsStats{
			TotalDocs:            fileCount,
			TotalDocChunks:       chunkCount,
			DocsStorageSizeBytes: storageSize,
		}, m.modelInfo())
	} else {
		m.meta.RecordFullIndex(time.Now(), metadata.Stats{
			TotalFiles:       fileCount,
			TotalChunks:      chunkCount,
			StorageSizeBytes: storageSize,
		}, m.modelInfo())
	}
	return m.meta.Save()
}

// modelInfo reports this manager's embedder identity under the
// metadata.json field matching its table (code or docs).
func (m *Manager) modelInfo() *metadata.EmbeddingModels {
	info := &metadata.ModelInfo{Name: m.embed.ModelName(), Dim: m.embed.Dimensions()}
	if m.table == TableDocs {
		return &metadata.EmbeddingModels{Docs: info}
	}
	return &metadata.EmbeddingModels{Code: info}
}

// UpdateFile reindexes one file under the indexing lock: if the policy now
// excludes it, its chunks and fingerprint are removed; otherwise it is
// rehashed, rechunked, reembedded, and its chunks replaced.
func (m *Manager) UpdateFile(ctx context.Context, relativePath string) error {
	if !m.lock.TryAcquire(m.root) {
		return mcperrors.New(mcperrors.CodeIndexingInProgress, "an indexing operation is already in progress")
	}
	defer m.lock.Release()

	decision := m.shouldIndex(relativePath)
	if !decision.Allow {
		if _, err := m.store.DeleteByPath(ctx, relativePath); err != nil {
			return err
		}
		m.fingerprints.Remove(relativePath)
		return m.fingerprints.Save()
	}

	abs := filepath.Join(m.root, filepath.FromSlash(relativePath))
	hash, err := pathutil.HashFile(abs)
	if err != nil {
		return fmt.Errorf("indexmanager: hash file: %w", err)
	}

	chunks, err := m.chunker.ChunkFile(abs)
	if err != nil {
		return fmt.Errorf("indexmanager: chunk file: %w", err)
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, errs := m.embed.EmbedBatch(ctx, texts, embedder.DomainContent)
		for i, c := range chunks {
			if errs[i] != nil {
				m.logger.Warn("embedding failed for chunk", "path", relativePath, "error", errs[i])
				continue
			}
			records = append(records, vectorstore.Record{
				Path: relativePath, Text: c.Text, Vector: vectors[i],
				StartLine: c.StartLine, EndLine: c.EndLine, ContentHash: hash,
			})
		}
	}

	if _, err := m.store.DeleteByPath(ctx, relativePath); err != nil {
		return err
	}
	if err := m.store.InsertChunks(ctx, records); err != nil {
		return err
	}

	m.fingerprints.SetHash(relativePath, hash)
	if err := m.fingerprints.Save(); err != nil {
		return err
	}

	chunkCount, _ := m.store.CountChunks(ctx)
	fileCount, _ := m.store.CountFiles(ctx)
	storageSize, _ := m.store.GetStorageSize()
	if m.table == TableDocs {
		m.meta.RecordDocsIncrementalUpdate(time.Now(), metadata.DocsStats{
			TotalDocs:            fileCount,
			TotalDocChunks:       chunkCount,
			DocsStorageSizeBytes: storageSize,
		})
	} else {
		m.meta.RecordIncrementalUpdate(time.Now(), metadata.Stats{
			TotalFiles:       fileCount,
			TotalChunks:      chunkCount,
			StorageSizeBytes: storageSize,
		})
	}
	return m.meta.Save()
}

// RemoveFile deletes a file's chunks and fingerprint under the lock.
func (m *Manager) RemoveFile(ctx context.Context, relativePath string) error {
	if !m.lock.TryAcquire(m.root) {
		return mcperrors.New(mcperrors.CodeIndexingInProgress, "an indexing operation is already in progress")
	}
	defer m.lock.Release()

	if _, err := m.store.DeleteByPath(ctx, relativePath); err != nil {
		return err
	}
	m.fingerprints.Remove(relativePath)
	return m.fingerprints.Save()
}

func (m *Manager) embedAndInsert(ctx context.Context, pending []pendingChunk) error {
	for start := 0; start < len(pending); start += m.embedBatch {
		end := start + m.embedBatch
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.text
		}
		vectors, errs := m.embed.EmbedBatch(ctx, texts, embedder.DomainContent)

		records := make([]vectorstore.Record, 0, len(batch))
		for i, c := range batch {
			if errs[i] != nil {
				m.logger.Warn("embedding failed for chunk", "path", c.path, "error", errs[i])
				continue
			}
			records = append(records, vectorstore.Record{
				Path: c.path, Text: c.text, Vector: vectors[i],
				StartLine: c.startLine, EndLine: c.endLine, ContentHash: c.contentHash,
			})
		}
		if err := m.store.InsertChunks(ctx, records); err != nil {
			return fmt.Errorf("indexmanager: insert chunks: %w", err)
		}
	}
	return nil
}

// enumerate walks root, returning policy-allowed relative paths. If the
// candidate count exceeds maxFiles, enumeration stops early and truncated
// is true so the caller can warn without failing the build.
func (m *Manager) enumerate() (paths []string, truncated bool, err error) {
	limit := m.maxFiles
	walkErr := filepath.Walk(m.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		rel, relErr := filepath.Rel(m.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !m.shouldIndex(rel).Allow {
			return nil
		}
		if limit > 0 && len(paths) >= limit {
			truncated = true
			return filepath.SkipAll
		}
		paths = append(paths, rel)
		return nil
	})
	if walkErr != nil {
		return nil, false, fmt.Errorf("indexmanager: enumerate: %w", walkErr)
	}
	return paths, truncated, nil
}

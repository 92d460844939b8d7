package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/localmcp/codesearch/internal/config"
	"github.com/localmcp/codesearch/internal/embedder"
	"github.com/localmcp/codesearch/internal/indexmanager"
	"github.com/localmcp/codesearch/internal/mcperrors"
	"github.com/localmcp/codesearch/internal/metadata"
	"github.com/localmcp/codesearch/internal/pathutil"
	"github.com/localmcp/codesearch/internal/strategy"
	"github.com/localmcp/codesearch/internal/vectorstore"
)

// CreateIndex builds a full index for both tables and then activates the
// configured incremental-update strategy (a no-op when that strategy is
// already active). Calling
// CreateIndex on a project that already has data is rejected with
// CodeIndexExists; use ReindexProject to rebuild.
func (p *Project) CreateIndex(ctx context.Context, onProgress indexmanager.ProgressFunc) error {
	hasData, err := p.codeStore.HasData(ctx)
	if err != nil {
		return fmt.Errorf("project: check existing index: %w", err)
	}
	if hasData {
		return mcperrors.New(mcperrors.CodeIndexExists, "an index already exists for this project; use reindex_project to rebuild")
	}

	if err := p.codeManager.CreateFullIndex(ctx, onProgress); err != nil {
		return err
	}
	if p.cfg.IndexDocs {
		if err := p.docsManager.CreateFullIndex(ctx, nil); err != nil {
			return err
		}
	}
	return p.StartWatching(ctx)
}

// ReindexProject rebuilds both tables from scratch, regardless of
// whether an index already exists.
func (p *Project) ReindexProject(ctx context.Context, onProgress indexmanager.ProgressFunc) error {
	if err := p.codeManager.CreateFullIndex(ctx, onProgress); err != nil {
		return err
	}
	if p.cfg.IndexDocs {
		if err := p.docsManager.CreateFullIndex(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}

// ReindexFile reindexes a single project-relative path against both
// tables, bypassing whatever strategy is currently active. relativePath
// must stay inside the project root, or CodePathTraversal is returned
// with no side effects on the index.
func (p *Project) ReindexFile(ctx context.Context, relativePath string) error {
	if _, ok := pathutil.SafeJoin(p.root, relativePath); !ok {
		return mcperrors.New(mcperrors.CodePathTraversal, "relative_path escapes the project root")
	}
	if err := p.codeManager.UpdateFile(ctx, relativePath); err != nil {
		return err
	}
	if !p.cfg.IndexDocs {
		return nil
	}
	return p.docsManager.UpdateFile(ctx, relativePath)
}

// DeleteIndex stops any active strategy and removes both tables' on-disk
// data, leaving the project's config untouched.
func (p *Project) DeleteIndex(ctx context.Context) error {
	if err := p.StopWatching(ctx); err != nil {
		p.logger.Warn("failed to stop strategy before delete", "error", err)
	}

	if err := p.codeStore.Close(); err != nil {
		return fmt.Errorf("project: close code store: %w", err)
	}
	if err := p.codeStore.Delete(); err != nil {
		return fmt.Errorf("project: delete code store: %w", err)
	}
	if err := p.docsStore.Close(); err != nil {
		return fmt.Errorf("project: close docs store: %w", err)
	}
	if err := p.docsStore.Delete(); err != nil {
		return fmt.Errorf("project: delete docs store: %w", err)
	}

	codeStore, err := vectorstore.Open(filepath.Join(p.dataDir, "code"))
	if err != nil {
		return fmt.Errorf("project: reopen code store: %w", err)
	}
	docsStore, err := vectorstore.Open(filepath.Join(p.dataDir, "docs"))
	if err != nil {
		_ = codeStore.Close()
		return fmt.Errorf("project: reopen docs store: %w", err)
	}
	p.codeStore = codeStore
	p.docsStore = docsStore
	p.codeManager.SetStore(codeStore)
	p.docsManager.SetStore(docsStore)

	p.codeFingerprints.Clear()
	p.docsFingerprints.Clear()
	if err := p.codeFingerprints.Save(); err != nil {
		return err
	}
	if err := p.docsFingerprints.Save(); err != nil {
		return err
	}
	if err := os.Remove(p.meta.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// maxQueryLength bounds search_code/search_docs query strings.
const maxQueryLength = 1024

// SearchCode embeds query with the code table's embedder and returns the
// top-k nearest chunks. If the lazy strategy is active,
// its buffered work is flushed first so the search reflects everything
// observed before the call.
func (p *Project) SearchCode(ctx context.Context, query string, topK int) ([]vectorstore.SearchResult, error) {
	if err := p.flushIfLazy(ctx); err != nil {
		return nil, err
	}
	return p.search(ctx, p.codeEmbed, p.codeStore, query, topK)
}

// SearchDocs embeds query with the docs table's embedder and returns the
// top-k nearest chunks.
func (p *Project) SearchDocs(ctx context.Context, query string, topK int) ([]vectorstore.SearchResult, error) {
	if err := p.flushIfLazy(ctx); err != nil {
		return nil, err
	}
	return p.search(ctx, p.docsEmbed, p.docsStore, query, topK)
}

// flushIfLazy drains the lazy strategy's dirty-files set before a search,
// a no-op under any other strategy, so results reflect at least
// everything observed before the call.
func (p *Project) flushIfLazy(ctx context.Context) error {
	if p.orchestrator.Current() != "lazy" {
		return nil
	}
	return p.orchestrator.Flush(ctx)
}

func (p *Project) search(ctx context.Context, embed embedder.Embedder, store *vectorstore.Store, query string, topK int) ([]vectorstore.SearchResult, error) {
	if query == "" {
		return nil, mcperrors.New(mcperrors.CodeInvalidQuery, "query must not be empty")
	}
	if len(query) > maxQueryLength {
		return nil, mcperrors.New(mcperrors.CodeInvalidQuery, "query exceeds maximum length of 1024 characters")
	}
	if topK < 1 || topK > 50 {
		return nil, mcperrors.New(mcperrors.CodeInvalidQuery, "top_k must be between 1 and 50")
	}
	vectors, errs := embed.EmbedBatch(ctx, []string{query}, embedder.DomainQuery)
	if errs[0] != nil {
		return nil, mcperrors.Wrap(mcperrors.CodeInvalidQuery, "failed to embed query", errs[0])
	}
	results, err := store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, err
	}
	return dedupeAdjacent(results), nil
}

// dedupeAdjacent merges adjacent or overlapping chunks from the same path
// into a single result spanning the union of their line ranges, keeping
// the higher of the two scores. Results are re-sorted by score descending
// afterward so ordering still holds once merges have changed the
// ranking.
func dedupeAdjacent(results []vectorstore.SearchResult) []vectorstore.SearchResult {
	if len(results) < 2 {
		return results
	}

	byPath := make(map[string][]vectorstore.SearchResult)
	var order []string
	for _, r := range results {
		if _, seen := byPath[r.Path]; !seen {
			order = append(order, r.Path)
		}
		byPath[r.Path] = append(byPath[r.Path], r)
	}

	merged := make([]vectorstore.SearchResult, 0, len(results))
	for _, path := range order {
		chunks := byPath[path]
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartLine < chunks[j].StartLine })

		current := chunks[0]
		for _, c := range chunks[1:] {
			if c.StartLine <= current.EndLine+1 {
				if c.EndLine > current.EndLine {
					current.EndLine = c.EndLine
				}
				if c.Score > current.Score {
					current.Score = c.Score
					current.Text = c.Text
				}
				continue
			}
			merged = append(merged, current)
			current = c
		}
		merged = append(merged, current)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	return merged
}

// Table distinguishes which chunk table search_by_path operates against.
type Table string

const (
	TableCode Table = "code"
	TableDocs Table = "docs"
)

// SearchByPath lists indexed files in table matching globPattern.
func (p *Project) SearchByPath(ctx context.Context, table Table, globPattern string, limit int) ([]string, error) {
	if globPattern == "" {
		return nil, mcperrors.New(mcperrors.CodeInvalidPattern, "pattern must not be empty")
	}
	if limit < 1 || limit > 100 {
		return nil, mcperrors.New(mcperrors.CodeInvalidQuery, "limit must be between 1 and 100")
	}
	store, err := p.storeFor(table)
	if err != nil {
		return nil, err
	}
	return store.SearchByPath(ctx, globPattern, limit)
}

func (p *Project) storeFor(table Table) (*vectorstore.Store, error) {
	switch table {
	case TableCode:
		return p.codeStore, nil
	case TableDocs:
		return p.docsStore, nil
	default:
		return nil, mcperrors.New(mcperrors.CodeInvalidQuery, "table must be \"code\" or \"docs\"")
	}
}

// StatusReport is the get_index_status response shape:
// metadata.json's record plus the active strategy's live stats and the
// project's detected type.
type StatusReport struct {
	ProjectType  config.ProjectType
	Metadata     metadata.Record
	Strategy     strategy.Stats
	CodeChunks   int
	CodeFiles    int
	DocsChunks   int
	DocsFiles    int
	StorageBytes int64
}

// GetIndexStatus reports the project's current indexing state.
func (p *Project) GetIndexStatus(ctx context.Context) (StatusReport, error) {
	codeChunks, err := p.codeStore.CountChunks(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	codeFiles, err := p.codeStore.CountFiles(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	docsChunks, err := p.docsStore.CountChunks(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	docsFiles, err := p.docsStore.CountFiles(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	codeSize, err := p.codeStore.GetStorageSize()
	if err != nil {
		return StatusReport{}, err
	}
	docsSize, err := p.docsStore.GetStorageSize()
	if err != nil {
		return StatusReport{}, err
	}

	return StatusReport{
		ProjectType:  config.DetectProjectType(p.root),
		Metadata:     p.meta.Get(),
		Strategy:     p.orchestrator.Stats(),
		CodeChunks:   codeChunks,
		CodeFiles:    codeFiles,
		DocsChunks:   docsChunks,
		DocsFiles:    docsFiles,
		StorageBytes: codeSize + docsSize,
	}, nil
}

// CheckIntegrity runs DetectDrift against both tables without mutating
// state, used by the doctor diagnostic command.
func (p *Project) CheckIntegrity(ctx context.Context) (code, docs integrityReport, err error) {
	codeDrift, err := p.codeIntegrity.DetectDrift(ctx)
	if err != nil {
		return integrityReport{}, integrityReport{}, err
	}
	docsDrift, err := p.docsIntegrity.DetectDrift(ctx)
	if err != nil {
		return integrityReport{}, integrityReport{}, err
	}
	return integrityReport(codeDrift), integrityReport(docsDrift), nil
}

// integrityReport is a local alias so callers of CheckIntegrity don't
// need to import internal/integrity just to read drift counts.
type integrityReport struct {
	Added            []string
	Modified         []string
	Removed          []string
	RecommendRebuild bool
}

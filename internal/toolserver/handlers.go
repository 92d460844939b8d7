package toolserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/localmcp/codesearch/internal/project"
	"github.com/localmcp/codesearch/internal/vectorstore"
)

// defaultTopK fills in an unspecified top_k. An explicitly out-of-range
// value is rejected rather than silently clamped; internal/project's
// operations enforce the actual bound per tool.
const defaultTopK = 10

// defaultGlobLimit is search_by_path's fallback when limit is unspecified.
const defaultGlobLimit = 10

func withDefault(requested, fallback int) int {
	if requested == 0 {
		return fallback
	}
	return requested
}

// CreateIndexInput is the create_index tool's input schema.
type CreateIndexInput struct{}

// IndexResultOutput is the shared output shape for create_index,
// reindex_project, and reindex_file.
type IndexResultOutput struct {
	Status string `json:"status" jsonschema:"either 'ok' or 'error'"`
}

func (s *Server) handleCreateIndex(ctx context.Context, _ *mcp.CallToolRequest, _ CreateIndexInput) (
	*mcp.CallToolResult, IndexResultOutput, error,
) {
	if err := s.project.CreateIndex(ctx, s.loggingProgress("create_index")); err != nil {
		return nil, IndexResultOutput{}, mapError(err)
	}
	return nil, IndexResultOutput{Status: "ok"}, nil
}

// ReindexProjectInput is the reindex_project tool's input schema.
type ReindexProjectInput struct{}

func (s *Server) handleReindexProject(ctx context.Context, _ *mcp.CallToolRequest, _ ReindexProjectInput) (
	*mcp.CallToolResult, IndexResultOutput, error,
) {
	if err := s.project.ReindexProject(ctx, s.loggingProgress("reindex_project")); err != nil {
		return nil, IndexResultOutput{}, mapError(err)
	}
	return nil, IndexResultOutput{Status: "ok"}, nil
}

// ReindexFileInput is the reindex_file tool's input schema.
type ReindexFileInput struct {
	Path string `json:"path" jsonschema:"project-relative file path to reindex"`
}

func (s *Server) handleReindexFile(ctx context.Context, _ *mcp.CallToolRequest, input ReindexFileInput) (
	*mcp.CallToolResult, IndexResultOutput, error,
) {
	if input.Path == "" {
		return nil, IndexResultOutput{}, mapError(invalidQuery("path parameter is required"))
	}
	if err := s.project.ReindexFile(ctx, input.Path); err != nil {
		return nil, IndexResultOutput{}, mapError(err)
	}
	return nil, IndexResultOutput{Status: "ok"}, nil
}

// DeleteIndexInput is the delete_index tool's input schema.
type DeleteIndexInput struct{}

func (s *Server) handleDeleteIndex(ctx context.Context, _ *mcp.CallToolRequest, _ DeleteIndexInput) (
	*mcp.CallToolResult, IndexResultOutput, error,
) {
	if err := s.project.DeleteIndex(ctx); err != nil {
		return nil, IndexResultOutput{}, mapError(err)
	}
	return nil, IndexResultOutput{Status: "ok"}, nil
}

// SearchInput is the shared input schema for search_code and search_docs.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10, max 50"`
}

// SearchOutput is the shared output schema for search_code and search_docs.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked list of matching chunks"`
}

// SearchResultOutput is one ranked chunk match.
type SearchResultOutput struct {
	Path      string  `json:"path" jsonschema:"file path relative to the project root"`
	Text      string  `json:"text" jsonschema:"the matched chunk's content"`
	Score     float64 `json:"score" jsonschema:"relevance score 1/(1+cosine distance), in (0, 1], higher is better"`
	StartLine int     `json:"start_line" jsonschema:"first line of the chunk, 1-indexed"`
	EndLine   int     `json:"end_line" jsonschema:"last line of the chunk, 1-indexed"`
}

func (s *Server) handleSearchCode(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	results, err := s.project.SearchCode(ctx, input.Query, withDefault(input.Limit, defaultTopK))
	if err != nil {
		return nil, SearchOutput{}, mapError(err)
	}
	return nil, toSearchOutput(results), nil
}

func (s *Server) handleSearchDocs(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	results, err := s.project.SearchDocs(ctx, input.Query, withDefault(input.Limit, defaultTopK))
	if err != nil {
		return nil, SearchOutput{}, mapError(err)
	}
	return nil, toSearchOutput(results), nil
}

func toSearchOutput(results []vectorstore.SearchResult) SearchOutput {
	out := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			Path:      r.Path,
			Text:      r.Text,
			Score:     float64(r.Score),
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
		})
	}
	return out
}

// SearchByPathInput is the search_by_path tool's input schema.
type SearchByPathInput struct {
	Table   string `json:"table" jsonschema:"which table to search: 'code' or 'docs'"`
	Pattern string `json:"pattern" jsonschema:"glob pattern matched against indexed file paths, e.g. 'internal/**/*.go'"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of paths to return, default 10, max 100"`
}

// SearchByPathOutput is the search_by_path tool's output schema.
type SearchByPathOutput struct {
	Paths []string `json:"paths" jsonschema:"matching indexed file paths"`
}

func (s *Server) handleSearchByPath(ctx context.Context, _ *mcp.CallToolRequest, input SearchByPathInput) (
	*mcp.CallToolResult, SearchByPathOutput, error,
) {
	table := project.Table(input.Table)
	paths, err := s.project.SearchByPath(ctx, table, input.Pattern, withDefault(input.Limit, defaultGlobLimit))
	if err != nil {
		return nil, SearchByPathOutput{}, mapError(err)
	}
	return nil, SearchByPathOutput{Paths: paths}, nil
}

// GetIndexStatusInput is the get_index_status tool's input schema.
type GetIndexStatusInput struct{}

// GetIndexStatusOutput is the get_index_status tool's output schema.
type GetIndexStatusOutput struct {
	ProjectType    string `json:"project_type" jsonschema:"detected project type, e.g. 'go', 'node', 'unknown'"`
	IndexingState  string `json:"indexing_state" jsonschema:"'complete' or 'in_progress'"`
	CodeChunks     int    `json:"code_chunks"`
	CodeFiles      int    `json:"code_files"`
	DocsChunks     int    `json:"docs_chunks"`
	DocsFiles      int    `json:"docs_files"`
	StorageBytes   int64  `json:"storage_bytes"`
	Strategy       string `json:"strategy" jsonschema:"name of the active watch strategy, or empty if none"`
	StrategyActive bool   `json:"strategy_active"`
}

func (s *Server) handleGetIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ GetIndexStatusInput) (
	*mcp.CallToolResult, GetIndexStatusOutput, error,
) {
	report, err := s.project.GetIndexStatus(ctx)
	if err != nil {
		return nil, GetIndexStatusOutput{}, mapError(err)
	}
	return nil, GetIndexStatusOutput{
		ProjectType:    string(report.ProjectType),
		IndexingState:  string(report.Metadata.IndexingState),
		CodeChunks:     report.CodeChunks,
		CodeFiles:      report.CodeFiles,
		DocsChunks:     report.DocsChunks,
		DocsFiles:      report.DocsFiles,
		StorageBytes:   report.StorageBytes,
		Strategy:       report.Strategy.Name,
		StrategyActive: report.Strategy.Active,
	}, nil
}

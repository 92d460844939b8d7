// Package toolserver exposes internal/project's eight operations as an
// MCP tool surface: one *mcp.Server, one typed input/output struct pair
// per tool, mcp.AddTool registration in a single registerTools method,
// and an error-mapping layer in errors.go.
package toolserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/localmcp/codesearch/internal/indexmanager"
	"github.com/localmcp/codesearch/internal/project"
)

// Server bridges one opened project.Project to the MCP tool surface.
type Server struct {
	mcp     *mcp.Server
	project *project.Project
	logger  *slog.Logger
}

// Config wires a Server's collaborators and the implementation metadata
// reported to MCP clients during initialization.
type Config struct {
	Project *project.Project
	Logger  *slog.Logger
	Name    string
	Version string
}

// New constructs a Server and registers all eight tools.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "mcpsearch"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		project: cfg.Project,
		logger:  logger,
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server, e.g. for Run over stdio.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server over stdio until ctx is canceled. stdio is
// currently the only supported transport.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp server stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_index",
		Description: "Builds a full semantic index of this project's code and documentation. Fails if an index already exists; use reindex_project to rebuild one.",
	}, s.handleCreateIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex_project",
		Description: "Rebuilds the full code and documentation index from scratch, discarding incremental state.",
	}, s.handleReindexProject)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex_file",
		Description: "Reindexes a single project-relative file path against both the code and documentation tables, independent of the active watch strategy.",
	}, s.handleReindexFile)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_index",
		Description: "Deletes all indexed data for this project. The project's configuration is left untouched.",
	}, s.handleDeleteIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Semantic search over indexed source code. Finds functions, types, and implementations by meaning rather than literal text.",
	}, s.handleSearchCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_docs",
		Description: "Semantic search over indexed documentation. Finds design rationale, guides, and explanations by meaning.",
	}, s.handleSearchDocs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_by_path",
		Description: "Lists indexed files matching a glob pattern, without ranking by content relevance.",
	}, s.handleSearchByPath)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Reports the project's current index state: project type, indexing state, chunk and file counts, storage size, and the active watch strategy. Embedding model identity is not reported.",
	}, s.handleGetIndexStatus)

	s.logger.Info("mcp tools registered", slog.Int("count", 8))
}

// loggingProgress adapts each indexmanager.ProgressEvent into a debug log
// line; no MCP progress notifications are sent to the client.
func (s *Server) loggingProgress(op string) indexmanager.ProgressFunc {
	return func(ev indexmanager.ProgressEvent) {
		s.logger.Debug("indexing progress",
			slog.String("op", op),
			slog.Int("files_scanned", ev.FilesScanned),
			slog.Int("files_indexed", ev.FilesIndexed),
			slog.Int("chunks_indexed", ev.ChunksIndexed),
			slog.String("current_file", ev.CurrentFile))
	}
}

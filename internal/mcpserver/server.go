// Package mcpserver exposes the Query Engine and Git Indexer as an MCP tool surface.
// The server itself owns no transport: Run takes an mcp.Transport so the caller decides
// whether tools are served over stdio, an in-process pipe, or anything else the SDK
// supports.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/ctxmemd/internal/gitindexer"
	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
	"github.com/fyrsmithlabs/ctxmemd/internal/query"
	"github.com/fyrsmithlabs/ctxmemd/internal/store"
)

// Server dispatches the 8 MCP tools to the Query Engine and Git Indexer.
type Server struct {
	mcp     *mcp.Server
	query   *query.Engine
	git     *gitindexer.Indexer
	store   *store.Store
	log     *logging.Logger
	metrics *toolMetrics
}

// Config names the server to MCP clients.
type Config struct {
	Name    string
	Version string
}

// DefaultConfig returns the server identity advertised to clients.
func DefaultConfig() *Config {
	return &Config{Name: "ctxmemd", Version: "0.1.0"}
}

// New builds a Server with all 8 tools registered. queryEngine, gitIndexer, and st are
// required; log may be logging.Noop() in tests.
func New(cfg *Config, queryEngine *query.Engine, gitIndexer *gitindexer.Indexer, st *store.Store, log *logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if queryEngine == nil {
		return nil, fmt.Errorf("query engine is required")
	}
	if gitIndexer == nil {
		return nil, fmt.Errorf("git indexer is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if log == nil {
		log = logging.Noop()
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: cfg.Name, Version: cfg.Version},
			nil,
		),
		query:   queryEngine,
		git:     gitIndexer,
		store:   st,
		log:     log,
		metrics: newToolMetrics(),
	}

	s.registerConversationTools()
	s.registerGitTools()

	return s, nil
}

// Run serves the registered tools over transport until ctx is canceled or the
// transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.log.Info(ctx, "starting MCP server")
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server run: %w", err)
	}
	return nil
}

// ABOUTME: MCP server initialization and configuration for dreamscribe.
// ABOUTME: Sets up the server with dream journal tools for AI agent access.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/2389-research/dreamscribe/internal/orchestrator"
	"github.com/2389-research/dreamscribe/internal/storage"
)

// Server wraps the MCP server with the journal store and orchestrator.
type Server struct {
	mcp     *gomcp.Server
	store   *storage.EntryStore
	orch    *orchestrator.Orchestrator
	log     zerolog.Logger
	version string
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithLogger sets the logger for tool calls.
func WithLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithVersion sets the version advertised to clients.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer creates an MCP server exposing the dream journal.
func NewServer(store *storage.EntryStore, orch *orchestrator.Orchestrator, opts ...ServerOption) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("entry store is required")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	s := &Server{
		store:   store,
		orch:    orch,
		log:     zerolog.Nop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "dreamscribe",
			Version: s.version,
		},
		nil,
	)
	s.registerDreamTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info().Str("version", s.version).Msg("mcp server listening on stdio")
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

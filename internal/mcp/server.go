// Package mcp exposes the forecasting engine as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"time"

	"lighthouse/internal/archive"
	"lighthouse/internal/simulation"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Server holds the state shared by all tool handlers.
type Server struct {
	engine              *simulation.Engine
	archive             archive.Store
	percentiles         []int
	enableMermaidCharts bool
	now                 func() time.Time
}

// NewServer creates a new MCP server. A nil store disables archiving.
func NewServer(engine *simulation.Engine, store archive.Store, percentiles []int, enableMermaidCharts bool) *Server {
	return &Server{
		engine:              engine,
		archive:             store,
		percentiles:         percentiles,
		enableMermaidCharts: enableMermaidCharts,
		now:                 time.Now,
	}
}

// Build registers every tool on a new protocol server.
func (s *Server) Build(version string) *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: "lighthouse", Version: version}, nil)
	s.registerTools(server)
	return server
}

// Start runs the stdio loop until the client disconnects or ctx is cancelled.
func (s *Server) Start(ctx context.Context, version string) error {
	log.Info().Str("version", version).Msg("MCP Server starting Stdio loop")
	return s.Build(version).Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) resolvePercentiles(requested []int) []int {
	if len(requested) > 0 {
		return requested
	}
	return s.percentiles
}

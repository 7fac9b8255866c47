// Package mcp exposes the translation pipeline as Model Context
// Protocol tools so agent clients can query the datasource in natural
// language.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
	"github.com/asksql-labs/asksql-engine/pkg/pipeline"
	"github.com/asksql-labs/asksql-engine/pkg/schema"
)

// QueryRunner is the pipeline surface the tools need; satisfied by
// *pipeline.Pipeline.
type QueryRunner interface {
	Run(ctx context.Context, question string, opts pipeline.Options) (*pipeline.ExecutionResult, error)
}

// ToolDeps carries the collaborators the tools close over.
type ToolDeps struct {
	Runner QueryRunner
	Conn   datasource.Conn
	Cache  *schema.Cache
	Opts   pipeline.Options
	Logger *zap.Logger
}

// NewServer builds the MCP server with the ask_database and get_schema
// tools registered.
func NewServer(version string, deps *ToolDeps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := server.NewMCPServer("asksql-engine", version,
		server.WithToolCapabilities(true),
	)
	registerAskDatabaseTool(s, deps)
	registerGetSchemaTool(s, deps)
	return s
}

// ServeStdio runs the server over stdin/stdout until the client
// disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// NewStreamableHTTPServer wraps the MCP server in an HTTP transport for
// mounting at /mcp. Stateless so any replica can serve any request.
func NewStreamableHTTPServer(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s,
		server.WithStateLess(true),
	)
}

// Package server exposes the Legifrance tools and prompts over MCP, on stdio
// or streamable HTTP.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-training/mcp-legifrance/pkg/core"
	"github.com/go-training/mcp-legifrance/pkg/operation"
	"github.com/go-training/mcp-legifrance/pkg/prompt"
	"github.com/go-training/mcp-legifrance/pkg/ratelimit"

	"github.com/mark3labs/mcp-go/server"
)

const (
	Name    = "legifrance-mcp"
	Version = "1.0.0"
)

// Deps are the collaborators of the MCP server.
type Deps struct {
	// Consulter receives every search tool call.
	Consulter core.Consulter
	// Prompts is the prompt catalog. Nil registers no prompt.
	Prompts *prompt.Catalog
	// Limiter bounds tool calls. Nil disables rate limiting.
	Limiter *ratelimit.Limiter
	// Ready reports whether the upstream API is usable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// MCPServer wraps the underlying MCP server instance.
type MCPServer struct {
	server *server.MCPServer
	ready  func(ctx context.Context) error
}

// NewMCPServer creates and configures a new MCPServer instance.
// Registers the Legifrance search tools and the prompt catalog.
func NewMCPServer(deps Deps) *MCPServer {
	middlewares := []server.ServerOption{
		server.WithToolHandlerMiddleware(operation.ObservabilityMiddleware()),
	}
	if deps.Limiter != nil {
		middlewares = append(middlewares,
			server.WithToolHandlerMiddleware(operation.RateLimitMiddleware(deps.Limiter)))
	}

	opts := append([]server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	}, middlewares...)

	mcpServer := server.NewMCPServer(Name, Version, opts...)

	operation.RegisterLegalTools(mcpServer, deps.Consulter)
	if deps.Prompts != nil {
		prompt.Register(mcpServer, deps.Prompts)
	}

	ready := deps.Ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}

	return &MCPServer{
		server: mcpServer,
		ready:  ready,
	}
}

// MCP returns the underlying MCP server.
func (s *MCPServer) MCP() *server.MCPServer {
	return s.server
}

// ServeHTTP returns a streamable HTTP server that attaches a request ID to
// every request context.
func (s *MCPServer) ServeHTTP() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.server,
		server.WithHeartbeatInterval(30*time.Second),
		server.WithHTTPContextFunc(func(
			ctx context.Context,
			r *http.Request,
		) context.Context {
			if core.RequestIDFromCtx(ctx) != "" {
				return ctx
			}
			return core.RequestIDFromRequest(ctx, r)
		}),
	)
}

// ServeStdio serves MCP over in and out until ctx is done or in is closed.
func (s *MCPServer) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.server)
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return core.WithRequestID(ctx)
	})
	return stdio.Listen(ctx, in, out)
}

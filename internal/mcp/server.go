// Package mcp serves checks and catalog lookups to AI agents over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/service"
)

// Transports accepted by Run.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// MCPServer exposes the check service as MCP tools and resources. Agents
// use it to check a change before proposing it and to look up the real
// names of tables and columns.
type MCPServer struct {
	checks *service.CheckService
	store  *config.Store
	logger *slog.Logger
	server *server.MCPServer
}

func NewMCPServer(checks *service.CheckService, store *config.Store, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MCPServer{checks: checks, store: store, logger: logger}
	s.server = server.NewMCPServer("driftguard", version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.registerTools(s.server)
	s.registerResources(s.server)
	return s
}

// Run serves over transport until ctx is cancelled. Stdio talks JSON-RPC on
// in and out; HTTP listens on addr with the Streamable HTTP transport.
func (s *MCPServer) Run(ctx context.Context, transport, addr string, in io.Reader, out io.Writer) error {
	switch transport {
	case TransportStdio:
		s.logger.Info("MCP server reading stdio")
		stdio := server.NewStdioServer(s.server)
		stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
		if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case TransportHTTP:
		return s.runHTTP(ctx, addr)
	default:
		return fmt.Errorf("unsupported transport %q; use %q or %q", transport, TransportStdio, TransportHTTP)
	}
}

func (s *MCPServer) runHTTP(ctx context.Context, addr string) error {
	httpSrv := server.NewStreamableHTTPServer(s.server)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP HTTP server starting", "addr", addr)
		if err := httpSrv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return httpSrv.Shutdown(context.WithoutCancel(ctx))
	})
	return g.Wait()
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}
}

// recordingAnnotation marks tools that append to the run history but change
// nothing the caller owns.
func recordingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(false), DestructiveHint: boolPtr(false)}
}

func boolPtr(b bool) *bool { return &b }

// Package mcpserver exposes the Workflow Executor and Layered Artifact
// Store as an MCP tool surface (§6): list_prompts, render_prompt,
// list_workflows, run_workflow, and cancel_run. It is grounded on
// githubnext-gh-aw's pkg/cli/mcp_server.go (mcp.NewServer + mcp.AddTool
// registration against one server, stdio by default with an optional HTTP
// listener), narrowed from a subprocess-spawning gateway in front of a CLI
// down to a single in-process server driving this repository's own engine
// directly — there is no secrets-isolation concern here, so no subprocess
// boundary is needed.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/engine"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/logger"
)

var log = logger.New("mcpserver:server")

// Server owns the catalog store, executor, and run registry behind the
// tool surface.
type Server struct {
	store    *catalog.Store
	executor *engine.Executor
	runs     *engine.Registry
	input    engine.InputProvider
	mcp      *mcp.Server
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithInputProvider attaches an InputProvider for Wait-for-user-input and
// UserChoice actions. Without one, those actions fail with NoInputProvider
// (§6's null-provider default).
func WithInputProvider(p engine.InputProvider) Option {
	return func(s *Server) { s.input = p }
}

// New builds a Server backed by store, registering all five tools on a
// fresh mcp.Server. version is reported in the MCP Implementation handshake.
func New(store *catalog.Store, version string, opts ...Option) *Server {
	s := &Server{
		store:    store,
		executor: engine.NewExecutor(),
		runs:     engine.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "swissarmyhammer",
		Version: version,
	}, nil)

	s.registerListPrompts()
	s.registerRenderPrompt()
	s.registerListWorkflows()
	s.registerRunWorkflow()
	s.registerCancelRun()

	return s
}

// RunStdio serves the MCP protocol over stdio until ctx is canceled or the
// transport closes.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP protocol over streamable HTTP on addr, blocking
// until ctx is canceled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
	httpServer := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("mcp server listening on %s (streamable http)", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func textResult(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, a...)}},
	}
}

func secondsToDuration(n int) time.Duration {
	return time.Duration(n) * time.Second
}

package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/engine"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/liquid"
)

// emptyArgs is used for tools that take no parameters.
type emptyArgs struct{}

// --- list_prompts ---

// PromptSummary is one entry in list_prompts' result (§3's Prompt,
// narrowed to the fields a caller needs before deciding to render it).
type PromptSummary struct {
	Name        string                      `json:"name"`
	Title       string                      `json:"title,omitempty"`
	Description string                      `json:"description,omitempty"`
	SourceTier  string                      `json:"source_tier"`
	Arguments   []catalog.ArgumentDescriptor `json:"arguments,omitempty"`
}

// ListPromptsResult wraps the list in an object, since MCP output schemas
// must describe an object, not a bare array (mirrors the teacher's
// status-tool comment about the same constraint).
type ListPromptsResult struct {
	Prompts []PromptSummary `json:"prompts"`
}

func (s *Server) registerListPrompts() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_prompts",
		Description: "List every prompt artifact resolved by the current catalog snapshot",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args emptyArgs) (*mcp.CallToolResult, *ListPromptsResult, error) {
		snap := s.store.Load()
		out := &ListPromptsResult{}
		for _, p := range snap.ListPrompts() {
			out.Prompts = append(out.Prompts, PromptSummary{
				Name:        p.Name,
				Title:       p.Title,
				Description: p.Description,
				SourceTier:  p.SourceTier.String(),
				Arguments:   p.Arguments,
			})
		}
		return nil, out, nil
	})
}

// --- render_prompt ---

type renderPromptArgs struct {
	Name      string            `json:"name" jsonschema:"Name of the prompt to render"`
	Arguments map[string]string `json:"arguments,omitempty" jsonschema:"Argument values keyed by argument name"`
}

// RenderPromptResult is render_prompt's output.
type RenderPromptResult struct {
	Text       string `json:"text"`
	SourceTier string `json:"source_tier"`
}

func (s *Server) registerRenderPrompt() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "render_prompt",
		Description: "Render a named prompt against the given argument values",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args renderPromptArgs) (*mcp.CallToolResult, *RenderPromptResult, error) {
		snap := s.store.Load()
		prompt, ok := snap.Prompt(args.Name)
		if !ok {
			return textResult("prompt not found: %s", args.Name), nil, nil
		}
		text, actErr := engine.RenderPrompt(snap, prompt, args.Arguments, nil)
		if actErr != nil {
			return textResult("%s: %s", actErr.Kind, actErr.Message), nil, nil
		}
		return nil, &RenderPromptResult{Text: text, SourceTier: prompt.SourceTier.String()}, nil
	})
}

// --- list_workflows ---

// WorkflowSummary is one entry in list_workflows' result.
type WorkflowSummary struct {
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	SourceTier  string   `json:"source_tier"`
}

// ListWorkflowsResult wraps the list in an object (see ListPromptsResult).
type ListWorkflowsResult struct {
	Workflows []WorkflowSummary `json:"workflows"`
}

func (s *Server) registerListWorkflows() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_workflows",
		Description: "List every workflow artifact resolved by the current catalog snapshot",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args emptyArgs) (*mcp.CallToolResult, *ListWorkflowsResult, error) {
		snap := s.store.Load()
		out := &ListWorkflowsResult{}
		for _, w := range snap.ListWorkflows() {
			out.Workflows = append(out.Workflows, WorkflowSummary{
				Name:        w.Name,
				Title:       w.Title,
				Description: w.Description,
				Tags:        w.Tags,
				SourceTier:  catalog.Tier(w.SourceTier).String(),
			})
		}
		return nil, out, nil
	})
}

// --- run_workflow ---

type runWorkflowArgs struct {
	Name           string            `json:"name" jsonschema:"Name of the workflow to run"`
	Arguments      map[string]string `json:"arguments,omitempty" jsonschema:"Initial variable values keyed by name"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" jsonschema:"Optional wall-clock timeout in seconds"`
}

// RunWorkflowResult is run_workflow's output: the terminal result and
// final state (§6), plus the run id so a caller can correlate a
// concurrent cancel_run call.
type RunWorkflowResult struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	Value      any    `json:"value,omitempty"`
	FinalState string `json:"final_state,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (s *Server) registerRunWorkflow() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "run_workflow",
		Description: "Run a named workflow to completion, failure, or cancellation",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args runWorkflowArgs) (*mcp.CallToolResult, *RunWorkflowResult, error) {
		snap := s.store.Load()
		wf, ok := snap.Workflow(args.Name)
		if !ok {
			return textResult("workflow not found: %s", args.Name), nil, nil
		}

		vars := map[string]liquid.Value{}
		for k, v := range args.Arguments {
			vars[k] = v
		}
		execCtx := engine.NewExecutionContext(vars, nil)

		runCtx, cancel := context.WithCancel(ctx)
		s.runs.Register(execCtx.RunID, cancel)
		defer func() {
			cancel()
			s.runs.Unregister(execCtx.RunID)
		}()

		opts := engine.RunOptions{Snapshot: snap, InputProvider: s.input}
		if args.TimeoutSeconds > 0 {
			opts.Timeout = secondsToDuration(args.TimeoutSeconds)
		}

		result, err := s.executor.Run(runCtx, wf, execCtx, opts)
		if err != nil {
			return textResult("workflow run failed: %v", err), nil, nil
		}

		return nil, &RunWorkflowResult{
			RunID:      execCtx.RunID,
			Status:     result.Status.String(),
			Value:      result.Value,
			FinalState: result.FinalState,
			ErrorKind:  result.ErrorKind,
			Message:    result.Message,
		}, nil
	})
}

// --- cancel_run ---

type cancelRunArgs struct {
	RunID string `json:"run_id" jsonschema:"Run id returned by run_workflow"`
}

// CancelRunResult reports whether a matching active run was found and
// signaled.
type CancelRunResult struct {
	Found bool `json:"found"`
}

func (s *Server) registerCancelRun() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cancel_run",
		Description: "Request cancellation of an active workflow run by id",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args cancelRunArgs) (*mcp.CallToolResult, *CancelRunResult, error) {
		found := s.runs.Cancel(args.RunID)
		return nil, &CancelRunResult{Found: found}, nil
	})
}

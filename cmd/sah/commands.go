package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/config"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/engine"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/liquid"
	"github.com/swissarmyhammer-go/swissarmyhammer/internal/watcher"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/console"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/mcpserver"
)

// resolveConfig builds a config.Config from the root command's persistent
// --home/--project-root/--debug flags.
func resolveConfig(cmd *cobra.Command) config.Config {
	home, _ := cmd.Flags().GetString("home")
	projectRoot, _ := cmd.Flags().GetString("project-root")
	debug, _ := cmd.Flags().GetBool("debug")
	return config.Resolve(home, projectRoot, debug)
}

// loadSnapshotOnce resolves the config, loads all three tiers exactly once,
// and prints any diagnostics to stderr. Used by the one-shot commands
// (list/render/run) that don't need live reload.
func loadSnapshotOnce(cmd *cobra.Command) *catalog.Snapshot {
	cfg := resolveConfig(cmd)
	loader := cfg.Loader()
	snap := loader.Load()
	for _, d := range snap.Diagnostics {
		fmt.Fprintln(os.Stderr, console.FormatDiagnostic(d))
	}
	return snap
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list {prompts|workflows}",
		Short: "List resolved artifacts in the current catalog snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := loadSnapshotOnce(cmd)
			switch strings.ToLower(args[0]) {
			case "prompts", "prompt":
				return listPrompts(snap)
			case "workflows", "workflow":
				return listWorkflows(snap)
			default:
				return fmt.Errorf("unknown artifact kind %q (want \"prompts\" or \"workflows\")", args[0])
			}
		},
	}
	return cmd
}

func listPrompts(snap *catalog.Snapshot) error {
	cfg := console.TableConfig{Headers: []string{"Name", "Tier", "Title", "Description"}}
	for _, p := range snap.ListPrompts() {
		cfg.Rows = append(cfg.Rows, []string{p.Name, p.SourceTier.String(), p.Title, p.Description})
	}
	fmt.Print(console.RenderTable(cfg))
	return nil
}

func listWorkflows(snap *catalog.Snapshot) error {
	cfg := console.TableConfig{Headers: []string{"Name", "Tier", "Title", "Tags"}}
	for _, w := range snap.ListWorkflows() {
		cfg.Rows = append(cfg.Rows, []string{w.Name, catalog.Tier(w.SourceTier).String(), w.Title, strings.Join(w.Tags, ", ")})
	}
	fmt.Print(console.RenderTable(cfg))
	return nil
}

func newRenderCommand() *cobra.Command {
	var argPairs map[string]string
	cmd := &cobra.Command{
		Use:   "render <prompt-name>",
		Short: "Render a prompt against the given argument values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := loadSnapshotOnce(cmd)
			prompt, ok := snap.Prompt(args[0])
			if !ok {
				return fmt.Errorf("prompt not found: %s", args[0])
			}
			text, actErr := engine.RenderPrompt(snap, prompt, argPairs, nil)
			if actErr != nil {
				return fmt.Errorf("%s: %s", actErr.Kind, actErr.Message)
			}
			fmt.Println(text)
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&argPairs, "arg", "a", nil, "Argument value as name=value (repeatable)")
	return cmd
}

func newRunCommand() *cobra.Command {
	var argPairs map[string]string
	var timeoutSeconds int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "run <workflow-name>",
		Short: "Run a workflow to completion, failure, or cancellation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := loadSnapshotOnce(cmd)
			wf, ok := snap.Workflow(args[0])
			if !ok {
				return fmt.Errorf("workflow not found: %s", args[0])
			}

			vars := map[string]liquid.Value{}
			for k, v := range argPairs {
				vars[k] = v
			}
			execCtx := engine.NewExecutionContext(vars, nil)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := engine.RunOptions{Snapshot: snap}
			if timeoutSeconds > 0 {
				opts.Timeout = time.Duration(timeoutSeconds) * time.Second
			}

			result, err := engine.NewExecutor().Run(ctx, wf, execCtx, opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			switch result.Status {
			case engine.RunCompleted:
				fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("completed in state %q: %v", result.FinalState, result.Value)))
			case engine.RunCancelled:
				fmt.Println(console.FormatWarningMessage("run cancelled"))
			default:
				fmt.Println(console.FormatErrorMessage(fmt.Sprintf("%s: %s (state %q)", result.ErrorKind, result.Message, result.FinalState)))
			}
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&argPairs, "arg", "a", nil, "Initial variable value as name=value (repeatable)")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Wall-clock timeout in seconds (0 disables)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run result as JSON")
	return cmd
}

func newServeCommand() *cobra.Command {
	var port int
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose prompts and workflows as MCP tools (stdio by default, or --port for HTTP)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(cmd)
			store := catalog.NewStore()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if noWatch {
				store.Publish(cfg.Loader().Load())
			} else {
				w, err := watcher.New(cfg.Loader(), store)
				if err != nil {
					return fmt.Errorf("starting file watcher: %w", err)
				}
				go func() {
					if err := w.Run(ctx); err != nil && ctx.Err() == nil {
						fmt.Fprintln(os.Stderr, console.FormatWarningMessage("file watcher stopped: "+err.Error()))
					}
				}()
			}

			server := mcpserver.New(store, version)
			if port > 0 {
				return server.RunHTTP(ctx, fmt.Sprintf(":%d", port))
			}
			return server.RunStdio(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to serve streamable HTTP on (uses stdio if unset)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable the file watcher; load the catalog once at startup")
	return cmd
}

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the user and project tiers, reprinting the resolved catalog on every reload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(cmd)
			store := catalog.NewStore()
			w, err := watcher.New(cfg.Loader(), store)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Println(console.FormatInfoMessage("watching for changes; press Ctrl-C to stop"))
			return w.Run(ctx)
		},
	}
	return cmd
}

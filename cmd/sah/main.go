// Command sah is the thin CLI embedding harness around the Layered
// Artifact Store and Workflow Execution Engine: it resolves the three
// artifact tiers, then lets a developer list, render, and run prompts and
// workflows directly, or expose them to an external agent over the MCP
// tool protocol (§6). Grounded on githubnext-gh-aw's cmd/gh-aw/main.go +
// pkg/cli command-group registration style, narrowed to this spec's much
// smaller command surface (spec.md §1 scopes the full CLI front-end out of
// the core).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/console"
)

// version is set at build time via -ldflags; "dev" otherwise.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sah",
	Short: "SwissArmyHammer: a layered prompt and workflow engine",
	Long: `SwissArmyHammer loads prompt and workflow artifacts from a layered set
of directories (builtin, user, project) and drives them directly or over
the MCP tool protocol.

Common tasks:
  sah list prompts            # List resolved prompts
  sah list workflows          # List resolved workflows
  sah render greet -a name=Ada  # Render a prompt
  sah run hello               # Run a workflow to completion
  sah serve                   # Expose prompts/workflows as MCP tools
`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Recorded in the resolved config; debug logging itself is enabled only by the DEBUG env var")
	rootCmd.PersistentFlags().String("home", "", "Override the user tier root (defaults to $SAH_HOME or ~/.swissarmyhammer)")
	rootCmd.PersistentFlags().String("project-root", "", "Override the project tier root (defaults to the nearest ancestor .swissarmyhammer directory)")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newWatchCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/astview/tui"
	"github.com/spf13/cobra"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Open the interactive editor with a live syntax tree.",
	Long: `The 'explore' command opens a terminal editor on the working text. The tree is rebuilt
shortly after you stop typing; select a node to see the span it covers.
The working text is saved automatically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return errConfig
		}
		defer rootDependencies.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
		defer cancel()

		return handleExploreCommand(ctx, rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}

func handleExploreCommand(ctx context.Context, deps *RootDependencies) error {
	deps.Session.Load(ctx)
	return tui.Run(ctx, deps.Session, deps.Config.ParseDelay, deps.Config.Theme)
}

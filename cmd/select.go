package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/astview/constants/lipgloss"
	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/meysamhadeli/astview/utils"
	"github.com/meysamhadeli/astview/workspace"
	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select [file|-]",
	Short: "Print the source with the span of one tree node highlighted.",
	Long: `The 'select' command clicks the node with the given pre-order index (0 is the Program node)
and prints the source with the span covered by that node highlighted.
Without a file the saved working text is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return errConfig
		}
		defer rootDependencies.Store.Close()

		index, _ := cmd.Flags().GetInt("node")

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return handleSelectCommand(ctx, cmd, rootDependencies, args, index)
	},
}

func init() {
	selectCmd.Flags().IntP("node", "n", 0, "Pre-order index of the node to select.")

	rootCmd.AddCommand(selectCmd)
}

func handleSelectCommand(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, args []string, index int) error {
	var source string
	if len(args) == 0 {
		text, err := deps.History.CurrentText(ctx)
		if err != nil {
			return err
		}
		source = text
	} else {
		text, err := readInput(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		source = text
	}

	// a detached session so selecting never touches the saved working text
	session := workspace.NewSession(deps.Analyzer, nil, deps.Config.SessionOptions(), deps.Logger)
	result := session.SetText(ctx, source)
	if result.Err != nil {
		return result.Err
	}

	node, ok := session.Select(index)
	if !ok {
		return fmt.Errorf("no node with index %d (the tree has %d nodes)", index, hierarchy.Count(result.Hierarchy))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, lipgloss.Info.Render(fmt.Sprintf("#%d %s [%d,%d)", node.Index, node.Label.Text, node.Start, node.End)))

	if err := utils.HighlightSpan(out, source, node.Start, node.End, deps.Config.Theme); err != nil {
		deps.Logger.Debug("falling back to plain highlighting", "error", err)
		fmt.Fprint(out, utils.MarkPlain(source, node.Start, node.End, "[[", "]]"))
	}
	fmt.Fprintln(out)
	return nil
}

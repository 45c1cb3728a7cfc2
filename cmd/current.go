package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/astview/constants/lipgloss"
	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Read or replace the saved working text.",
}

var currentGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the saved working text.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return errConfig
		}
		defer rootDependencies.Close()

		text, err := rootDependencies.History.CurrentText(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var currentSetCmd = &cobra.Command{
	Use:   "set [file|-]",
	Short: "Replace the saved working text with a file or stdin.",
	Long: `The 'set' command stores new working text. Text that does not parse is stored too;
the parse error is reported as a warning.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return errConfig
		}
		defer rootDependencies.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return handleCurrentSetCommand(ctx, cmd, rootDependencies, inputArg(args))
	},
}

func init() {
	currentCmd.AddCommand(currentGetCmd, currentSetCmd)
	rootCmd.AddCommand(currentCmd)
}

func handleCurrentSetCommand(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, input string) error {
	text, err := readInput(ctx, cmd, input)
	if err != nil {
		return err
	}

	result := deps.Session.SetText(ctx, text)
	if err := deps.Session.Close(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Err != nil {
		fmt.Fprintln(out, lipgloss.Yellow.Render(fmt.Sprintf("Saved, but the text does not parse: %v", result.Err)))
		return nil
	}
	fmt.Fprintln(out, lipgloss.Green.Render("✓ Working text saved."))
	return nil
}

package cmd

import (
	"bufio"
	"fmt"

	"github.com/meysamhadeli/astview/constants/lipgloss"
	"github.com/meysamhadeli/astview/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the parse tree cache",
	Long: `The 'reset-cache' command removes every cached parse tree from the '.cache' directory.
Use this command to clear corrupted cache entries or to reclaim disk space.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")

		return handleResetCacheCommand(force, stats, cmd)
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(force bool, showStats bool, cmd *cobra.Command) error {
	rootDependencies := handleRootCommand(cmd)
	if rootDependencies == nil {
		return errConfig
	}
	out := cmd.OutOrStdout()

	if !rootDependencies.Config.EnableCache {
		fmt.Fprintln(out, lipgloss.Yellow.Render("Cache is disabled. No cache to reset."))
		return nil
	}

	if showStats {
		return printCacheStats(cmd, rootDependencies)
	}

	if !force {
		reader := bufio.NewReader(cmd.InOrStdin())
		if !utils.ConfirmPrompt(out, reader, "Are you sure you want to reset the parse cache?") {
			fmt.Fprintln(out, lipgloss.Yellow.Render("Cache reset cancelled."))
			return nil
		}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true).WithWriter(out)

	spinnerInstance, _ := spinner.Start("Resetting parse cache...")

	err := rootDependencies.Analyzer.ClearCache()
	spinnerInstance.Stop()
	if err != nil {
		return fmt.Errorf("error resetting cache: %w", err)
	}

	fmt.Fprintln(out, lipgloss.Green.Render("✓ Parse cache has been successfully reset!"))
	return nil
}

func printCacheStats(cmd *cobra.Command, deps *RootDependencies) error {
	out := cmd.OutOrStdout()

	cacheStats, err := deps.Analyzer.GetCacheStats()
	if err != nil {
		return fmt.Errorf("could not read cache statistics: %w", err)
	}
	if enabled, ok := cacheStats["cache_enabled"].(bool); !ok || !enabled {
		fmt.Fprintln(out, "  Cache is disabled")
		return nil
	}

	fmt.Fprintln(out, lipgloss.Info.Render("Cache Statistics:"))
	if dir, ok := cacheStats["cache_dir"].(string); ok {
		fmt.Fprintf(out, "  Cache Directory: %s\n", dir)
	}
	if files, ok := cacheStats["cache_files"].(int); ok {
		fmt.Fprintf(out, "  Cached Trees: %d\n", files)
	}
	if size, ok := cacheStats["total_size"].(int64); ok {
		fmt.Fprintf(out, "  Total Size: %.2f MB\n", float64(size)/(1024*1024))
	}
	if hitRate, ok := cacheStats["hit_rate"].(float64); ok {
		fmt.Fprintf(out, "  Hit Rate: %.1f%%\n", hitRate)
	}
	if skipped, ok := cacheStats["bytes_skipped"].(int64); ok {
		fmt.Fprintf(out, "  Source Bytes Not Reparsed: %d\n", skipped)
	}
	return nil
}

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meysamhadeli/astview/constants/lipgloss"
	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/meysamhadeli/astview/snapshot_store"
	"github.com/meysamhadeli/astview/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save, list, show, delete and restore snapshots of the working text.",
	Long: `A snapshot keeps a copy of the working text together with its normalized tree.
Snapshots live in the same SQLite file as the working text.`,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save [file|-]",
	Short: "Snapshot the working text, or a file after making it the working text.",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, args []string) error {
		if len(args) > 0 {
			text, err := readInput(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			deps.Session.SetText(ctx, text)
		}

		id, err := deps.Session.SaveSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("snapshot not saved: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), lipgloss.Green.Render(fmt.Sprintf("✓ Snapshot #%d saved.", id)))
		return nil
	}),
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest last.",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, args []string) error {
		records := deps.Session.Snapshots()
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), lipgloss.Muted.Render("No snapshots yet."))
			return nil
		}

		data := pterm.TableData{{"ID", "Saved", "Nodes", "Text"}}
		for _, record := range records {
			data = append(data, []string{
				strconv.FormatInt(record.ID, 10),
				record.Time().Format(time.DateTime),
				strconv.Itoa(hierarchy.Count(record.Value)),
				preview(record.Key, 48),
			})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), table)
		return nil
	}),
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one snapshot as YAML or JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, args []string) error {
		id, err := parseSnapshotID(args[0])
		if err != nil {
			return err
		}
		record, err := deps.Store.GetSnapshot(ctx, id)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		return writeRecord(cmd, record, format)
	}),
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one snapshot.",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, args []string) error {
		id, err := parseSnapshotID(args[0])
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			reader := bufio.NewReader(cmd.InOrStdin())
			if !utils.ConfirmPrompt(cmd.OutOrStdout(), reader, fmt.Sprintf("Delete snapshot #%d?", id)) {
				fmt.Fprintln(cmd.OutOrStdout(), lipgloss.Yellow.Render("Delete cancelled."))
				return nil
			}
		}

		if err := deps.Session.DeleteSnapshot(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), lipgloss.Green.Render(fmt.Sprintf("✓ Snapshot #%d deleted.", id)))
		return nil
	}),
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Make a snapshot's text the working text.",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, args []string) error {
		id, err := parseSnapshotID(args[0])
		if err != nil {
			return err
		}
		result, err := deps.Session.RestoreSnapshot(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), lipgloss.Green.Render(
			fmt.Sprintf("✓ Restored snapshot #%d (%d nodes).", id, hierarchy.Count(result.Hierarchy))))
		return nil
	}),
}

func init() {
	snapshotShowCmd.Flags().StringP("format", "f", "yaml", "Output format: yaml or json.")
	snapshotDeleteCmd.Flags().BoolP("force", "f", false, "Delete without confirmation.")

	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotListCmd, snapshotShowCmd, snapshotDeleteCmd, snapshotRestoreCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// withSession builds the dependencies, loads the session and closes everything afterwards.
func withSession(run func(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return errConfig
		}
		defer rootDependencies.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rootDependencies.Session.Load(ctx)
		return run(ctx, cmd, rootDependencies, args)
	}
}

func parseSnapshotID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid snapshot id %q", arg)
	}
	return id, nil
}

func writeRecord(cmd *cobra.Command, record snapshot_store.SnapshotRecord, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(record)
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(record)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

// preview flattens text onto one line and cuts it at limit runes.
func preview(text string, limit int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit-3]) + "..."
}

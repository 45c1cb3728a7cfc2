package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/meysamhadeli/astview/code_analyzer"
	"github.com/meysamhadeli/astview/code_analyzer/contracts"
	"github.com/meysamhadeli/astview/config"
	"github.com/meysamhadeli/astview/constants/lipgloss"
	"github.com/meysamhadeli/astview/history"
	"github.com/meysamhadeli/astview/snapshot_store"
	"github.com/meysamhadeli/astview/utils"
	"github.com/meysamhadeli/astview/workspace"
	"github.com/spf13/cobra"
)

// RootDependencies is everything a subcommand needs, built once from the configuration.
type RootDependencies struct {
	Config   *config.Config
	Logger   *slog.Logger
	Analyzer contracts.ICodeAnalyzer
	Store    *snapshot_store.Store
	History  *history.Controller
	Session  *workspace.Session
	Cwd      string
}

var rootCmd = &cobra.Command{
	Use:   "astview",
	Short: "Explore the syntax tree of JavaScript source as an interactive tree.",
	Long: `astview parses JavaScript into an abstract syntax tree, lays it out as a tidy tree
and lets you click nodes to see which part of the source they cover.
The working text and named snapshots are kept in a local SQLite file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Fprintln(cmd.OutOrStdout(), lipgloss.Info.Render("astview version "+config.DefaultConfig.Version))
			return
		}
		_ = cmd.Help()
	},
}

// errConfig is returned after handleRootCommand already reported why setup failed.
var errConfig = errors.New("configuration could not be loaded")

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errConfig) {
			fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error: %v", err)))
		}
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd)
}

// handleRootCommand loads the configuration and builds the shared dependencies.
// Errors are printed and nil is returned.
func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	deps, err := newRootDependencies(cmd, cmd.ErrOrStderr())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), lipgloss.Red.Render(err.Error()))
		return nil
	}
	return deps
}

func newRootDependencies(cmd *cobra.Command, logOutput io.Writer) (*RootDependencies, error) {
	cwd := config.WorkingDir()

	cfg, err := config.LoadConfigs(cmd.Root(), cwd)
	if err != nil {
		return nil, err
	}

	logger := utils.NewLogger(logOutput, cfg.LogLevel)
	slog.SetDefault(logger)
	if used := config.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used, "type", config.GetConfigFileType(used))
	}

	analyzer := code_analyzer.NewCodeAnalyzer(cfg.CacheDir, cfg.EnableCache, logger)

	storeOptions := cfg.StoreOptions()
	storeOptions.Logger = logger
	store := snapshot_store.New(cfg.StoragePath, storeOptions)

	controller := history.NewController(store, cfg.AutosaveDelay, logger)
	session := workspace.NewSession(analyzer, controller, cfg.SessionOptions(), logger)

	return &RootDependencies{
		Config:   cfg,
		Logger:   logger,
		Analyzer: analyzer,
		Store:    store,
		History:  controller,
		Session:  session,
		Cwd:      cwd,
	}, nil
}

// Close flushes the autosave and closes the database.
func (d *RootDependencies) Close() {
	if err := d.Session.Close(); err != nil {
		d.Logger.Warn("failed to save current text", "error", err)
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.Warn("failed to close storage", "error", err)
	}
}

// readInput reads the named file, or stdin when name is empty or "-".
func readInput(ctx context.Context, cmd *cobra.Command, name string) (string, error) {
	if name == "" || name == "-" {
		return utils.ReadSource(ctx, cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

func inputArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/astview/constants/lipgloss"
	"github.com/meysamhadeli/astview/server"
	"github.com/meysamhadeli/astview/utils"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editor and tree view over HTTP.",
	Long: `The 'serve' command starts a local web page with an editor and the drawn tree.
Clicking a node highlights its span; scrolling zooms the view.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return errConfig
		}
		defer rootDependencies.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = rootDependencies.Config.Server.Addr
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		go utils.GracefulShutdown(ctx, cancel, nil)

		return handleServeCommand(ctx, cmd, rootDependencies, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address; defaults to server.addr from the configuration.")

	rootCmd.AddCommand(serveCmd)
}

func handleServeCommand(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, addr string) error {
	deps.Session.Load(ctx)

	fmt.Fprintln(cmd.OutOrStdout(), lipgloss.BoxStyle.Render(fmt.Sprintf("astview on http://%s", addr)))
	return server.New(deps.Session, deps.Logger).ListenAndServe(ctx, addr)
}

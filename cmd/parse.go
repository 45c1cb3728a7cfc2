package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/astview/code_analyzer/contracts"
	"github.com/meysamhadeli/astview/code_analyzer/models"
	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/meysamhadeli/astview/layout"
	"github.com/meysamhadeli/astview/renderer"
	"github.com/meysamhadeli/astview/workspace"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Parse JavaScript and print its syntax tree.",
	Long: `The 'parse' command parses a JavaScript file (or stdin) and prints the normalized tree.
Formats: 'tree' (indented), 'json' and 'yaml' ({name,start,end,children}) or 'svg' (the drawn tree).
With --estree the input is an ESTree JSON document produced by another parser.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return errConfig
		}
		defer rootDependencies.Store.Close()

		format, _ := cmd.Flags().GetString("format")
		estree, _ := cmd.Flags().GetBool("estree")
		noLocations, _ := cmd.Flags().GetBool("no-locations")

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return handleParseCommand(ctx, cmd, rootDependencies, inputArg(args), format, estree, noLocations)
	},
}

func init() {
	parseCmd.Flags().StringP("format", "f", "tree", "Output format: tree, json, yaml or svg.")
	parseCmd.Flags().Bool("estree", false, "Treat the input as ESTree JSON instead of JavaScript source.")
	parseCmd.Flags().Bool("no-locations", false, "Drop source offsets from the output.")

	rootCmd.AddCommand(parseCmd)
}

func handleParseCommand(ctx context.Context, cmd *cobra.Command, deps *RootDependencies, input, format string, estree, noLocations bool) error {
	source, err := readInput(ctx, cmd, input)
	if err != nil {
		return err
	}

	root, err := buildHierarchy(ctx, deps, source, estree, !noLocations)
	if err != nil {
		return err
	}

	options := deps.Config.SessionOptions()
	return writeHierarchy(cmd.OutOrStdout(), root, format, options)
}

// buildHierarchy parses and normalizes source with the configured depth cap.
func buildHierarchy(ctx context.Context, deps *RootDependencies, source string, estree, trackLocations bool) (*hierarchy.Node, error) {
	var (
		raw *models.RawNode
		err error
	)
	if estree {
		raw, err = deps.Analyzer.ParseESTree([]byte(source))
	} else {
		raw, err = deps.Analyzer.Parse(ctx, source, contracts.ParseOptions{
			TrackLocations: trackLocations,
			MaxDepth:       deps.Config.MaxDepth,
		})
	}
	if err != nil {
		return nil, err
	}

	root, err := hierarchy.NewNormalizer(deps.Config.MaxDepth).Normalize(raw)
	if err != nil {
		return nil, err
	}
	if !trackLocations {
		hierarchy.Walk(root, func(node *hierarchy.Node, _ int) bool {
			node.Start, node.End = 0, 0
			return true
		})
	}
	return root, nil
}

func writeHierarchy(w io.Writer, root *hierarchy.Node, format string, options workspace.Options) error {
	switch format {
	case "tree":
		return writeTree(w, root)
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(root)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(root)
	case "svg":
		r := renderer.New(options.Width, options.Height, options.ScaleExtent)
		r.Render(layout.Layout(root, options.Layout))
		return r.WriteSVG(w)
	default:
		return fmt.Errorf("unknown format %q (want tree, json, yaml or svg)", format)
	}
}

// writeTree prints the hierarchy with pterm's tree printer, one node per line with its span.
func writeTree(w io.Writer, root *hierarchy.Node) error {
	var list pterm.LeveledList
	hierarchy.Walk(root, func(node *hierarchy.Node, depth int) bool {
		list = append(list, pterm.LeveledListItem{
			Level: depth,
			Text:  fmt.Sprintf("%s [%d,%d)", node.Label, node.Start, node.End),
		})
		return true
	})

	out, err := pterm.DefaultTree.WithRoot(putils.TreeFromLeveledList(list)).Srender()
	if err != nil {
		return fmt.Errorf("failed to render tree: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

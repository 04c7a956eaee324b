package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/docker/mcp-widgets/cmd/mcp-widgets/formatting"
	"github.com/docker/mcp-widgets/cmd/mcp-widgets/hints"
	"github.com/docker/mcp-widgets/pkg/build"
	"github.com/docker/mcp-widgets/pkg/config"
	"github.com/docker/mcp-widgets/pkg/terminal"
	"github.com/docker/mcp-widgets/pkg/widget"
)

func widgetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "Inspect the configured widgets",
	}

	configFile := envOr("MCP_WIDGETS_CONFIG", "")
	cmd.PersistentFlags().StringVar(&configFile, "config", configFile, "Widgets file (yaml, toml or json); built-in widgets when empty")

	var outputJSON bool
	lsCommand := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the configured widgets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			collections, err := loadCollections(configFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				definitions := make([]widget.Definition, 0, len(collections))
				for _, c := range collections {
					definitions = append(definitions, c.Widget)
				}
				buf, err := json.Marshal(definitions)
				if err != nil {
					return err
				}
				_, _ = out.Write(buf)
				return nil
			}

			if len(collections) == 0 {
				fmt.Fprintln(out, "No widget is configured")
				return nil
			}

			var rows [][]string
			for _, c := range collections {
				rows = append(rows, []string{c.Widget.ID, c.Widget.Title, c.Widget.AssetName, c.Widget.TemplateURI})
			}
			widths := formatting.FitWidths(terminal.GetWidthFrom(out), 20, 24, 16, 0)
			formatting.PrettyPrintTable(out, rows, widths, []string{"ID", "TITLE", "ASSET", "URI"})

			if hints.Enabled() {
				fmt.Fprintln(out, "")
				hints.TipGreen.Fprint(out, "Tip: Describe a widget's tool and resource with ")
				hints.TipCyanBoldItalic.Fprintln(out, "mcp-widgets widgets inspect <id>")
			}
			return nil
		},
	}
	lsCommand.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	cmd.AddCommand(lsCommand)

	outDir := envOr("MCP_WIDGETS_OUTPUT", config.DefaultOutputDir)
	inspectCommand := &cobra.Command{
		Use:   "inspect <id>",
		Short: "Show the MCP tool and resource descriptors of a widget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collections, err := loadCollections(configFile)
			if err != nil {
				return err
			}
			widgets, err := widget.New(filepath.Join(outDir, build.AssetsDir), collections)
			if err != nil {
				return err
			}

			info, err := inspect(widgets, args[0])
			if err != nil {
				return err
			}
			buf, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			_, _ = cmd.OutOrStdout().Write(append(buf, '\n'))
			return nil
		},
	}
	inspectCommand.Flags().StringVar(&outDir, "out", outDir, "Build output directory")
	cmd.AddCommand(inspectCommand)

	return cmd
}

type widgetInfo struct {
	Tool             *mcp.Tool             `json:"tool"`
	Resource         *mcp.Resource         `json:"resource"`
	ResourceTemplate *mcp.ResourceTemplate `json:"resourceTemplate"`
}

func inspect(widgets *widget.Provider, id string) (widgetInfo, error) {
	item, ok := widgets.ItemByID(id)
	if !ok {
		return widgetInfo{}, fmt.Errorf("widget %q not found", id)
	}

	var info widgetInfo
	for _, tool := range widgets.Tools() {
		if tool.Name == id {
			info.Tool = tool
		}
	}
	for _, resource := range widgets.Resources() {
		if resource.URI == item.Widget.TemplateURI {
			info.Resource = resource
		}
	}
	for _, template := range widgets.ResourceTemplates() {
		if template.URITemplate == item.Widget.TemplateURI {
			info.ResourceTemplate = template
		}
	}
	return info, nil
}

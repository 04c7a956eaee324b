package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docker/mcp-widgets/pkg/app"
	"github.com/docker/mcp-widgets/pkg/build"
	"github.com/docker/mcp-widgets/pkg/config"
	"github.com/docker/mcp-widgets/pkg/i18n"
	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/mcpserver"
	"github.com/docker/mcp-widgets/pkg/telemetry"
	"github.com/docker/mcp-widgets/pkg/widget"
)

type serveOptions struct {
	LogCalls     bool
	Instructions string
}

func serveCommand(catalog *i18n.Catalog) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the widgets over streamable HTTP",
		Long: `Serve the built widgets as MCP tools and resources over streamable HTTP.

Configuration is read from the environment and from a .env file in the working directory:
HOST and PORT are required; REMOTE_URL, BASE_URL, MCP_SERVER_NAME, MCP_SERVER_VERSION,
MCP_WIDGETS_OUTPUT, MCP_WIDGETS_CONFIG, MCP_WIDGETS_AUTH_TOKEN and MCP_WIDGETS_STATELESS are optional.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				if errors.Is(err, config.ErrInvalid) {
					// A misconfigured server is not a crash.
					fmt.Fprintln(cmd.ErrOrStderr(), "Invalid configuration:", err)
					return nil
				}
				return err
			}
			return runServe(cmd.Context(), cfg, catalog, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.LogCalls, "log-calls", true, "Log calls to the tools")
	flags.StringVar(&opts.Instructions, "instructions", "", "Instructions sent to clients on initialization")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, catalog *i18n.Catalog, opts serveOptions) error {
	collections, err := loadCollections(cfg.WidgetsFile)
	if err != nil {
		return err
	}

	var widgetOpts []widget.Option
	if cfg.RemoteURL != "" {
		widgetOpts = append(widgetOpts, widget.WithWidgetDomain(cfg.Origin()))
	}
	widgets, err := widget.New(filepath.Join(cfg.OutputDir, build.AssetsDir), collections, widgetOpts...)
	if err != nil {
		return err
	}
	log.Logf("- %d widgets registered", widgets.Len())

	provider := telemetry.Setup(cfg.ServerName, cfg.ServerVersion)
	defer func() {
		if telemetry.Debug() {
			log.Log("- Telemetry:")
			_ = provider.Summary(context.WithoutCancel(ctx), log.Writer())
		}
		_ = provider.Shutdown(context.WithoutCancel(ctx))
	}()

	a, err := app.New(cfg, mcpserver.NewRouter(widgets, catalog), app.Options{
		LogCalls:     opts.LogCalls,
		Instructions: opts.Instructions,
	})
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/docker/mcp-widgets/pkg/i18n"
	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/widget"
)

// Root returns the mcp-widgets command tree.
func Root(version string) *cobra.Command {
	catalog := i18n.Default()

	var (
		logFile string
		lang    string
		closer  io.Closer
	)
	cmd := &cobra.Command{
		Use:           "mcp-widgets",
		Short:         "Build and serve UI widgets as MCP tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := catalog.ChangeLanguage(lang); err != nil {
				return err
			}
			if logFile == "" {
				return nil
			}
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			closer = f
			log.SetLogWriter(io.MultiWriter(cmd.ErrOrStderr(), f))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if closer == nil {
				return nil
			}
			log.SetLogWriter(os.Stderr)
			return closer.Close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
	cmd.PersistentFlags().StringVar(&lang, "lang", envOr("MCP_WIDGETS_LANG", i18n.DefaultLanguage), "Language of user-facing messages (en, zh)")

	cmd.AddCommand(serveCommand(catalog))
	cmd.AddCommand(buildCommand(catalog))
	cmd.AddCommand(widgetsCommand())
	cmd.AddCommand(versionCommand(version))

	return cmd
}

// loadCollections reads the widgets file, or returns the built-in widgets when path is empty.
func loadCollections(path string) ([]widget.Collection, error) {
	if path == "" {
		return widget.Defaults(), nil
	}
	return widget.LoadFile(path)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

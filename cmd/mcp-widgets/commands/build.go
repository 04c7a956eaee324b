package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/docker/mcp-widgets/cmd/mcp-widgets/formatting"
	"github.com/docker/mcp-widgets/cmd/mcp-widgets/hints"
	"github.com/docker/mcp-widgets/pkg/build"
	"github.com/docker/mcp-widgets/pkg/config"
	"github.com/docker/mcp-widgets/pkg/i18n"
	"github.com/docker/mcp-widgets/pkg/toast"
)

type buildOptions struct {
	Root          string
	Entries       string
	Out           string
	BaseURL       string
	Version       string
	ClientCommand string
	ServerCommand string
	SkipServer    bool
	Watch         bool
}

func buildCommand(catalog *i18n.Catalog) *cobra.Command {
	opts := buildOptions{
		Root:          ".",
		Entries:       build.DefaultEntriesDir,
		Out:           envOr("MCP_WIDGETS_OUTPUT", config.DefaultOutputDir),
		ClientCommand: build.DefaultClientCommand,
		ServerCommand: build.DefaultServerCommand,
	}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Bundle the widgets and write their HTML shells",
		Long: `Bundle every widget entry (<entries>/<name>/index.{tsx,ts,jsx,js}) and write
<out>/assets/<name>.html for each of them.

The bundler commands may use the ${name}, ${entry}, ${outDir} and ${root} placeholders.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("base-url") {
				opts.BaseURL = config.AssetsBaseURL(os.Getenv)
			}
			return runBuild(cmd, catalog, opts)
		},
	}

	opts.addFlags(cmd.Flags())

	return cmd
}

func (o *buildOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.Root, "root", o.Root, "Project root")
	flags.StringVar(&o.Entries, "entries", o.Entries, "Directory holding one sub-directory per widget, relative to the root")
	flags.StringVar(&o.Out, "out", o.Out, "Output directory, relative to the root")
	flags.StringVar(&o.BaseURL, "base-url", "", "URL prefix of the assets in the HTML shells (default: BASE_URL, REMOTE_URL or http://localhost:$PORT)")
	flags.StringVar(&o.Version, "version", "", "Token appended to asset names instead of their content digest")
	flags.StringVar(&o.ClientCommand, "client-cmd", o.ClientCommand, "Command bundling one widget entry")
	flags.StringVar(&o.ServerCommand, "server-cmd", o.ServerCommand, "Command building the server")
	flags.BoolVar(&o.SkipServer, "skip-server", false, "Don't build the server")
	flags.BoolVar(&o.Watch, "watch", false, "Rebuild when the widget sources change")
}

func runBuild(cmd *cobra.Command, catalog *i18n.Catalog, opts buildOptions) error {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return err
	}
	outDir := opts.Out
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}

	p := &build.Pipeline{
		Fs:         afero.NewOsFs(),
		Root:       root,
		EntriesDir: opts.Entries,
		OutDir:     outDir,
		BaseURL:    opts.BaseURL,
		Version:    opts.Version,
		Bundler: &build.CommandBundler{
			Root:          root,
			OutDir:        outDir,
			ClientCommand: opts.ClientCommand,
			ServerCommand: opts.ServerCommand,
			Stdout:        cmd.OutOrStdout(),
			Stderr:        cmd.ErrOrStderr(),
		},
		SkipServer: opts.SkipServer,
		Catalog:    catalog,
	}

	if opts.Watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		container := toast.Mount(cmd.ErrOrStderr())
		defer container.Unmount()
		return build.Watch(ctx, p, filepath.Join(root, opts.Entries))
	}

	result, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	printBuilt(cmd, outDir, result)
	return nil
}

func printBuilt(cmd *cobra.Command, outDir string, result *build.Result) {
	out := cmd.OutOrStdout()
	var rows [][]string
	for _, w := range result.Widgets {
		rows = append(rows, []string{w.Name, filepath.Join(outDir, build.AssetsDir, w.Name+".html")})
	}
	formatting.PrettyPrintTable(out, rows, nil, []string{"WIDGET", "HTML"})

	if hints.Enabled() {
		fmt.Fprintln(out, "")
		hints.TipCyan.Fprint(out, "Tip: Serve the widgets with ")
		hints.TipCyanBoldItalic.Fprintln(out, "mcp-widgets serve")
	}
}

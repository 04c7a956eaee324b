package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/docker/mcp-widgets/pkg/log"
)

const (
	DefaultClientCommand = "npx vite build --manifest --emptyOutDir=false --outDir ${outDir}"
	DefaultServerCommand = "go build -o ${outDir}/server ./cmd/mcp-widgets"
	// DefaultManifest is where vite writes its manifest, relative to the output directory.
	DefaultManifest = ".vite/manifest.json"
)

// Bundler produces the server binary and the client bundles.
type Bundler interface {
	BundleServer(ctx context.Context) error
	// BundleClient bundles one entry and returns the path of the manifest it wrote.
	BundleClient(ctx context.Context, entry Entry) (string, error)
}

// CommandBundler runs external commands. Arguments may use the ${name},
// ${entry}, ${outDir} and ${root} placeholders.
type CommandBundler struct {
	Root          string
	OutDir        string
	ClientCommand string
	ServerCommand string
	Manifest      string
	Stdout        io.Writer
	Stderr        io.Writer
}

func (b *CommandBundler) BundleServer(ctx context.Context) error {
	if b.ServerCommand == "" {
		return nil
	}
	log.Log("- Bundling server")
	return b.run(ctx, b.ServerCommand, Entry{}, nil)
}

func (b *CommandBundler) BundleClient(ctx context.Context, entry Entry) (string, error) {
	if b.ClientCommand == "" {
		return "", errors.New("no client bundler command configured")
	}
	log.Logf("- Bundling %s", entry.Name)
	env := []string{"WIDGET_NAME=" + entry.Name, "WIDGET_ENTRY=" + entry.AbsPath}
	if err := b.run(ctx, b.ClientCommand, entry, env); err != nil {
		return "", err
	}

	manifest := b.Manifest
	if manifest == "" {
		manifest = DefaultManifest
	}
	return filepath.Join(b.OutDir, manifest), nil
}

func (b *CommandBundler) run(ctx context.Context, command string, entry Entry, env []string) error {
	args, err := b.expand(command, entry)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = b.Root
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = orDefault(b.Stdout, os.Stdout)
	cmd.Stderr = orDefault(b.Stderr, os.Stderr)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", args[0], err)
	}
	return nil
}

func (b *CommandBundler) expand(command string, entry Entry) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command %q", command)
	}

	replacer := strings.NewReplacer(
		"${name}", entry.Name,
		"${entry}", entry.AbsPath,
		"${outDir}", b.OutDir,
		"${root}", b.Root,
	)
	for i, arg := range args {
		args[i] = replacer.Replace(arg)
	}
	return args, nil
}

func orDefault(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}

package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPlaceholders(t *testing.T) {
	b := &CommandBundler{Root: "/proj", OutDir: "/proj/output"}

	args, err := b.expand(`npx vite build --outDir ${outDir} --config "${root}/vite config.ts" --entry=${entry} ${name}`,
		Entry{Name: "greeting", AbsPath: "/proj/src/widget/greeting/index.tsx"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"npx", "vite", "build",
		"--outDir", "/proj/output",
		"--config", "/proj/vite config.ts",
		"--entry=/proj/src/widget/greeting/index.tsx",
		"greeting",
	}, args)

	_, err = b.expand("   ", Entry{})
	require.Error(t, err)
}

func TestCommandBundlerRunsClientCommand(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	b := &CommandBundler{
		Root:          dir,
		OutDir:        filepath.Join(dir, "output"),
		ClientCommand: `sh -c 'mkdir -p ${outDir}/.vite && echo "{\"$WIDGET_NAME\": {}}" > ${outDir}/.vite/manifest.json && echo built ${name}'`,
		Stdout:        &stdout,
	}

	manifest, err := b.BundleClient(context.Background(), Entry{Name: "greeting", AbsPath: "/proj/index.tsx"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "output", DefaultManifest), manifest)
	buf, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"greeting": {}}`, string(buf))
	assert.Equal(t, "built greeting\n", stdout.String())
}

func TestCommandBundlerFailure(t *testing.T) {
	b := &CommandBundler{Root: t.TempDir(), ServerCommand: "sh -c 'exit 3'", Stderr: &bytes.Buffer{}}

	err := b.BundleServer(context.Background())
	require.ErrorContains(t, err, "running sh")

	_, err = (&CommandBundler{}).BundleClient(context.Background(), Entry{Name: "x"})
	require.Error(t, err)
}

func TestCommandBundlerWithoutServerCommand(t *testing.T) {
	require.NoError(t, (&CommandBundler{}).BundleServer(context.Background()))
}

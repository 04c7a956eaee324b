package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/docker/mcp-widgets/pkg/i18n"
	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/telemetry"
)

// AssetsDir is the sub-directory of the output directory holding the HTML shells.
const AssetsDir = "assets"

// Pipeline bundles every widget entry and writes one HTML shell per widget.
type Pipeline struct {
	Fs         afero.Fs
	Root       string
	EntriesDir string
	OutDir     string
	// BaseURL prefixes every asset referenced from the HTML shells.
	BaseURL string
	// Version replaces the content digest in renamed files when set.
	Version    string
	Bundler    Bundler
	SkipServer bool
	Catalog    *i18n.Catalog
}

// Built describes one widget's output.
type Built struct {
	Name    string
	HTML    string
	Scripts []string
	Styles  []string
}

type Result struct {
	Widgets  []Built
	Renamed  int
	Duration time.Duration
}

// Run performs one build. The first missing entry, manifest record or file aborts it.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	fs := p.fs()

	entries, err := DiscoverEntries(fs, p.Root, p.entriesDir())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no widget entries under %s", ErrMissingEntry, filepath.Join(p.Root, p.entriesDir()))
	}

	ctx, span := telemetry.StartBuildSpan(ctx, len(entries))
	defer span.End()

	result, err := p.run(ctx, fs, entries)
	elapsed := time.Since(start)
	telemetry.RecordBuild(ctx, span, len(entries), elapsed, err)
	if err != nil {
		log.Log(p.t("build.failed", i18n.Vars{"error": err}))
		return nil, err
	}

	result.Duration = elapsed
	log.Log(p.t("build.done", i18n.Vars{"duration": elapsed.Round(time.Millisecond)}))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, fs afero.Fs, entries []Entry) (*Result, error) {
	log.Log(p.t("build.started", i18n.Vars{"count": len(entries)}))

	if !p.SkipServer {
		if err := p.Bundler.BundleServer(ctx); err != nil {
			return nil, fmt.Errorf("bundling server: %w", err)
		}
	}

	// Every entry is bundled and resolved before anything is renamed or written,
	// so a failing entry leaves no output behind.
	plans := make([]plan, 0, len(entries))
	for _, entry := range entries {
		pl, err := p.planEntry(ctx, fs, entry)
		if err != nil {
			return nil, err
		}
		plans = append(plans, pl)
	}

	if err := fs.MkdirAll(filepath.Join(p.OutDir, AssetsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	renamer := NewRenamer(fs, p.OutDir, p.Version)
	result := &Result{}
	for _, pl := range plans {
		built, err := p.writeEntry(fs, renamer, pl)
		if err != nil {
			p.rollback(fs, renamer, result.Widgets)
			return nil, err
		}
		result.Widgets = append(result.Widgets, built)
		log.Log(p.t("build.widget", i18n.Vars{"name": pl.entry.Name}))
	}
	result.Renamed = renamer.Renamed()

	return result, nil
}

// plan is what one entry resolved to in the bundler manifest.
type plan struct {
	entry  Entry
	script string
	styles []string
}

func (p *Pipeline) planEntry(ctx context.Context, fs afero.Fs, entry Entry) (plan, error) {
	manifestPath, err := p.Bundler.BundleClient(ctx, entry)
	if err != nil {
		return plan{}, fmt.Errorf("bundling %s: %w", entry.Name, err)
	}

	manifest, err := LoadManifest(fs, manifestPath)
	if err != nil {
		return plan{}, err
	}
	// Each client bundle writes its own manifest.
	if err := fs.Remove(manifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return plan{}, fmt.Errorf("removing manifest: %w", err)
	}

	key, chunk, err := manifest.Lookup(entry)
	if err != nil {
		return plan{}, err
	}
	styles, err := manifest.CollectCSS(key)
	if err != nil {
		return plan{}, err
	}

	for _, file := range append([]string{chunk.File}, styles...) {
		path := filepath.Join(p.OutDir, filepath.FromSlash(file))
		if ok, err := afero.Exists(fs, path); err != nil || !ok {
			return plan{}, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
	}

	return plan{entry: entry, script: chunk.File, styles: styles}, nil
}

func (p *Pipeline) writeEntry(fs afero.Fs, renamer *Renamer, pl plan) (Built, error) {
	// Only the entry chunk and the CSS are renamed: shared JS chunks are imported
	// by name from the entry chunk and keep theirs.
	script, err := renamer.Rename(pl.script)
	if err != nil {
		return Built{}, err
	}
	var styles []string
	for _, css := range pl.styles {
		renamed, err := renamer.Rename(css)
		if err != nil {
			return Built{}, err
		}
		styles = append(styles, renamed)
	}

	name := pl.entry.Name
	html, err := RenderHTML(name, p.BaseURL, []string{script}, styles)
	if err != nil {
		return Built{}, fmt.Errorf("rendering %s: %w", name, err)
	}
	htmlPath := filepath.Join(p.OutDir, AssetsDir, name+".html")
	if err := afero.WriteFile(fs, htmlPath, []byte(html), 0o644); err != nil {
		_ = fs.Remove(htmlPath)
		return Built{}, fmt.Errorf("writing %s: %w", htmlPath, err)
	}

	return Built{Name: name, HTML: htmlPath, Scripts: []string{script}, Styles: styles}, nil
}

// rollback removes the shells already written and restores the renamed files.
func (p *Pipeline) rollback(fs afero.Fs, renamer *Renamer, written []Built) {
	for _, built := range written {
		if err := fs.Remove(built.HTML); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Logf("! Could not remove %s: %v", built.HTML, err)
		}
	}
	if err := renamer.Undo(); err != nil {
		log.Logf("! Could not restore renamed files: %v", err)
	}
}

func (p *Pipeline) fs() afero.Fs {
	if p.Fs == nil {
		return afero.NewOsFs()
	}
	return p.Fs
}

func (p *Pipeline) entriesDir() string {
	if p.EntriesDir == "" {
		return DefaultEntriesDir
	}
	return p.EntriesDir
}

var defaultCatalog = i18n.Default()

func (p *Pipeline) t(key string, vars i18n.Vars) string {
	if p.Catalog == nil {
		return defaultCatalog.T(key, vars)
	}
	return p.Catalog.T(key, vars)
}

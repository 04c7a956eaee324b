package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docker/mcp-widgets/pkg/i18n"
	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/toast"
)

const DefaultDebounce = 300 * time.Millisecond

// Watch runs the pipeline once, then again after every burst of changes under dirs,
// until ctx is cancelled. Each outcome is shown as a toast.
func Watch(ctx context.Context, p *Pipeline, dirs ...string) error {
	return watch(ctx, dirs, DefaultDebounce, func(ctx context.Context) error {
		result, err := p.Run(ctx)
		if err != nil {
			toast.Publish(toast.Failure, p.t("build.failed", i18n.Vars{"error": err}), 0)
			return err
		}
		toast.Publish(toast.Success, p.t("build.done", i18n.Vars{"duration": result.Duration.Round(time.Millisecond)}), 0)
		return nil
	})
}

// watch calls rebuild once, then once per debounce window in which files changed.
// Watching continues past rebuild errors; reporting them is up to rebuild.
func watch(ctx context.Context, dirs []string, debounce time.Duration, rebuild func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := addRecursive(watcher, dir); err != nil {
			return err
		}
	}

	_ = rebuild(ctx)
	log.Log("> Watching for changes in", strings.Join(dirs, ", "))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Logf("! Watch error: %v", err)

		case <-timer.C:
			_ = rebuild(ctx)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

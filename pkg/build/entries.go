package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

var (
	ErrMissingEntry   = errors.New("missing entry")
	ErrManifestRecord = errors.New("missing manifest record")
	ErrMissingFile    = errors.New("missing file")
)

// DefaultEntriesDir is where widget entry points live, relative to the project root.
const DefaultEntriesDir = "src/widget"

// entryFiles are tried in order inside each widget directory.
var entryFiles = []string{"index.tsx", "index.ts", "index.jsx", "index.js"}

// Entry is one widget's client entry point.
type Entry struct {
	Name string
	// AbsPath is the entry file path as seen by the bundler.
	AbsPath string
	// RelPath is AbsPath relative to the project root.
	RelPath string
}

// DiscoverEntries returns one Entry per sub-directory of <root>/<dir> that holds
// an index file, sorted by name. Directories without one are skipped.
func DiscoverEntries(fs afero.Fs, root, dir string) ([]Entry, error) {
	base := filepath.Join(root, dir)
	infos, err := afero.ReadDir(fs, base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: entries directory %s not found", ErrMissingEntry, base)
		}
		return nil, fmt.Errorf("reading entries directory %s: %w", base, err)
	}

	var entries []Entry
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		for _, name := range entryFiles {
			path := filepath.Join(base, info.Name(), name)
			if ok, _ := afero.Exists(fs, path); !ok {
				continue
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Name: info.Name(), AbsPath: abs, RelPath: rel})
			break
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

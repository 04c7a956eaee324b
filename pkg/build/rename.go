package build

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
)

const tokenLength = 8

// Renamer gives emitted files a versioned name. Each file is renamed at most
// once per Renamer, however many widgets reference it.
type Renamer struct {
	fs      afero.Fs
	outDir  string
	version string
	renamed map[string]string
	moves   []move
}

type move struct {
	src, dst string
}

// NewRenamer renames files under outDir. With an empty version, the token is the
// first 8 hex characters of the file's sha256 digest.
func NewRenamer(fs afero.Fs, outDir, version string) *Renamer {
	return &Renamer{
		fs:      fs,
		outDir:  outDir,
		version: version,
		renamed: map[string]string{},
	}
}

// Rename moves file, a slash-separated path relative to the output directory, to
// <stem>-<token><ext> and returns the new relative path.
func (r *Renamer) Rename(file string) (string, error) {
	if renamed, ok := r.renamed[file]; ok {
		return renamed, nil
	}

	src := filepath.Join(r.outDir, filepath.FromSlash(file))
	buf, err := afero.ReadFile(r.fs, src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrMissingFile, src)
		}
		return "", fmt.Errorf("reading %s: %w", src, err)
	}

	token := r.version
	if token == "" {
		token = digest.FromBytes(buf).Encoded()[:tokenLength]
	}

	ext := path.Ext(file)
	renamed := strings.TrimSuffix(file, ext) + "-" + token + ext
	dst := filepath.Join(r.outDir, filepath.FromSlash(renamed))
	if err := r.fs.Rename(src, dst); err != nil {
		return "", fmt.Errorf("renaming %s: %w", src, err)
	}

	r.renamed[file] = renamed
	r.moves = append(r.moves, move{src: src, dst: dst})
	return renamed, nil
}

// Undo moves every renamed file back to its original name, latest first, and
// forgets them. It keeps going past failures and returns them joined.
func (r *Renamer) Undo() error {
	var errs []error
	for i := len(r.moves) - 1; i >= 0; i-- {
		m := r.moves[i]
		if err := r.fs.Rename(m.dst, m.src); err != nil {
			errs = append(errs, fmt.Errorf("restoring %s: %w", m.src, err))
		}
	}
	r.moves = nil
	r.renamed = map[string]string{}
	return errors.Join(errs...)
}

// Renamed returns how many distinct files were renamed.
func (r *Renamer) Renamed() int {
	return len(r.renamed)
}

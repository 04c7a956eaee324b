package build

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Chunk is one record of a bundler manifest.
type Chunk struct {
	File    string   `json:"file"`
	Name    string   `json:"name,omitempty"`
	Src     string   `json:"src,omitempty"`
	IsEntry bool     `json:"isEntry,omitempty"`
	CSS     []string `json:"css,omitempty"`
	Imports []string `json:"imports,omitempty"`
}

// Manifest maps source keys to emitted chunks.
type Manifest map[string]Chunk

func LoadManifest(fs afero.Fs, path string) (Manifest, error) {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Lookup finds the record of entry. Bundlers key records by absolute or
// root-relative paths, with or without a leading "./", so every variant is tried.
func (m Manifest) Lookup(entry Entry) (string, Chunk, error) {
	for _, key := range keyCandidates(entry) {
		if chunk, ok := m[key]; ok {
			return key, chunk, nil
		}
	}
	return "", Chunk{}, fmt.Errorf("%w: %s", ErrManifestRecord, entry.RelPath)
}

func keyCandidates(entry Entry) []string {
	rel := filepath.ToSlash(entry.RelPath)
	candidates := []string{
		entry.AbsPath,
		filepath.ToSlash(entry.AbsPath),
		entry.RelPath,
		rel,
		strings.TrimPrefix(rel, "./"),
		"./" + strings.TrimPrefix(rel, "./"),
	}

	seen := map[string]bool{}
	var unique []string
	for _, c := range candidates {
		if c != "" && !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	return unique
}

// CollectCSS returns the CSS files of the chunk at key followed by those of every chunk it
// imports, transitively, depth first. Import cycles are followed once and each file appears once.
// A key or import without a manifest record is an ErrManifestRecord.
func (m Manifest) CollectCSS(key string) ([]string, error) {
	var files []string
	seenFiles := map[string]bool{}
	visited := map[string]bool{}

	var walk func(key, importer string) error
	walk = func(key, importer string) error {
		if visited[key] {
			return nil
		}
		visited[key] = true

		chunk, ok := m[key]
		if !ok {
			if importer == "" {
				return fmt.Errorf("%w: %s", ErrManifestRecord, key)
			}
			return fmt.Errorf("%w: %s (imported by %s)", ErrManifestRecord, key, importer)
		}
		for _, css := range chunk.CSS {
			if !seenFiles[css] {
				seenFiles[css] = true
				files = append(files, css)
			}
		}
		for _, imported := range chunk.Imports {
			if err := walk(imported, key); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(key, ""); err != nil {
		return nil, err
	}

	return files, nil
}

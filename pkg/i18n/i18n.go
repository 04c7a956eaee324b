// Package i18n loads translation bundles on demand and tracks the active language.
//
// Bundles are JSON objects (comments and trailing commas allowed) keyed by
// language code, e.g. locales/en.json. Nested objects are flattened to dotted
// keys, so {"build": {"done": "..."}} is looked up as "build.done".
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/tailscale/hujson"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when no language is set and as the lookup fallback.
const DefaultLanguage = "en"

// Languages lists the bundles shipped in locales/.
var Languages = []string{"en", "zh"}

//go:embed locales/*.json
var embedded embed.FS

// Vars are interpolated into {{name}} placeholders.
type Vars map[string]any

type Catalog struct {
	fsys      fs.FS
	supported []string
	fallback  string

	mu      sync.RWMutex
	bundles map[string]map[string]string
	active  string
}

// New returns a catalog reading <lang>.json files from fsys. Nothing is read
// until a language is first used.
func New(fsys fs.FS, supported []string, fallback string) *Catalog {
	var codes []string
	for _, lang := range supported {
		if code, ok := Normalize(lang); ok && !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}
	fallbackCode, ok := Normalize(fallback)
	if !ok {
		fallbackCode = DefaultLanguage
	}
	return &Catalog{
		fsys:      fsys,
		supported: codes,
		fallback:  fallbackCode,
		bundles:   map[string]map[string]string{},
		active:    fallbackCode,
	}
}

// Default returns a catalog over the embedded bundles.
func Default() *Catalog {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		panic(err)
	}
	return New(sub, Languages, DefaultLanguage)
}

// Normalize reduces a BCP 47 tag to its base language ("en-US" -> "en").
func Normalize(lang string) (string, bool) {
	if strings.TrimSpace(lang) == "" {
		return "", false
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", false
	}
	return base.String(), true
}

// IsSupported reports whether lang normalizes to a language with a bundle.
func (c *Catalog) IsSupported(lang string) bool {
	code, ok := Normalize(lang)
	return ok && slices.Contains(c.supported, code)
}

// Language returns the active language code.
func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// ChangeLanguage switches the active language, loading its bundle on first use.
// Unsupported codes are ignored and leave the current language active.
func (c *Catalog) ChangeLanguage(lang string) error {
	if !c.IsSupported(lang) {
		return nil
	}
	code, _ := Normalize(lang)
	if _, err := c.Load(code); err != nil {
		return err
	}

	c.mu.Lock()
	c.active = code
	c.mu.Unlock()
	return nil
}

// Load returns the flattened bundle for lang, reading it once and caching it.
func (c *Catalog) Load(lang string) (map[string]string, error) {
	code, ok := Normalize(lang)
	if !ok || !slices.Contains(c.supported, code) {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}

	c.mu.RLock()
	bundle, loaded := c.bundles[code]
	c.mu.RUnlock()
	if loaded {
		return bundle, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if bundle, loaded := c.bundles[code]; loaded {
		return bundle, nil
	}

	bundle, err := readBundle(c.fsys, code)
	if err != nil {
		return nil, err
	}
	c.bundles[code] = bundle
	return bundle, nil
}

// T translates key in the active language.
func (c *Catalog) T(key string, vars ...Vars) string {
	return c.Translate(c.Language(), key, vars...)
}

// Translate looks key up in lang, then in the fallback language, and finally returns the key itself.
func (c *Catalog) Translate(lang, key string, vars ...Vars) string {
	msg, ok := c.Lookup(lang, key)
	if !ok {
		msg = key
	}
	for _, v := range vars {
		msg = interpolate(msg, v)
	}
	return msg
}

// Lookup is Translate without the key-as-message fallback.
func (c *Catalog) Lookup(lang, key string) (string, bool) {
	for _, candidate := range []string{lang, c.fallback} {
		bundle, err := c.Load(candidate)
		if err != nil {
			continue
		}
		if msg, ok := bundle[key]; ok {
			return msg, true
		}
	}
	return "", false
}

func readBundle(fsys fs.FS, code string) (map[string]string, error) {
	name := path.Join(".", code+".json")
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading locale %s: %w", code, err)
	}
	data, err = hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %s: %w", code, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing locale %s: %w", code, err)
	}

	flat := map[string]string{}
	flatten("", raw, flat)
	return flat, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(key, v, out)
		case string:
			out[key] = v
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}

func interpolate(msg string, vars Vars) string {
	if len(vars) == 0 || !strings.Contains(msg, "{{") {
		return msg
	}
	pairs := make([]string, 0, 2*len(vars))
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", fmt.Sprint(value))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

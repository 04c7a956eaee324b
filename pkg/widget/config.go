package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Definition  `yaml:",inline"`
	InputSchema map[string]any `json:"inputSchema" yaml:"inputSchema" toml:"inputSchema"`
}

type file struct {
	Widgets []fileEntry `json:"widgets" yaml:"widgets" toml:"widgets"`
}

// LoadFile reads widget collections from a YAML, TOML or JSON file, chosen by extension.
func LoadFile(path string) ([]Collection, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading widgets file: %w", err)
	}

	var f file
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(buf, &f)
	case ".toml":
		err = toml.Unmarshal(buf, &f)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(buf))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	default:
		return nil, fmt.Errorf("unsupported widgets file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	collections := make([]Collection, 0, len(f.Widgets))
	for _, entry := range f.Widgets {
		schema, err := toSchema(entry.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("widget %q: %w", entry.ID, err)
		}
		collections = append(collections, Collection{Widget: entry.Definition, InputSchema: schema})
	}
	return collections, nil
}

func toSchema(raw map[string]any) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding input schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(buf, &schema); err != nil {
		return nil, fmt.Errorf("decoding input schema: %w", err)
	}
	return &schema, nil
}

// Defaults returns the widgets registered when no widgets file is configured.
func Defaults() []Collection {
	return []Collection{
		{
			Widget: Definition{
				ID:           "greeting",
				Title:        "Greeting",
				TemplateURI:  "ui://widget/greeting.html",
				Invoking:     "Preparing a greeting…",
				Invoked:      "Greeting ready",
				AssetName:    "greeting",
				ResponseText: "Rendered a greeting!",
			},
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"message": {Type: "string", Description: "Message to greet the user with"},
				},
				Required: []string{"message"},
			},
		},
	}
}

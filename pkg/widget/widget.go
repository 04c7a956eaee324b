package widget

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MIMEType is the MIME type of widget HTML served as an MCP resource.
const MIMEType = "text/html+skybridge"

var (
	ErrAssetsDirNotFound  = errors.New("assets folder not found")
	ErrWidgetHTMLNotFound = errors.New("widget HTML not found")
	ErrDuplicateWidget    = errors.New("duplicate widget")
	ErrInvalidInput       = errors.New("invalid tool input")
)

// Definition is the static description of a widget.
type Definition struct {
	ID           string `json:"id" yaml:"id" toml:"id" validate:"required"`
	Title        string `json:"title" yaml:"title" toml:"title" validate:"required"`
	TemplateURI  string `json:"templateUri" yaml:"templateUri" toml:"templateUri" validate:"required,uri"`
	Invoking     string `json:"invoking" yaml:"invoking" toml:"invoking" validate:"required"`
	Invoked      string `json:"invoked" yaml:"invoked" toml:"invoked" validate:"required"`
	AssetName    string `json:"assetName" yaml:"assetName" toml:"assetName" validate:"required"`
	ResponseText string `json:"responseText" yaml:"responseText" toml:"responseText" validate:"required"`
}

// Widget is a Definition with the HTML read from the assets directory.
type Widget struct {
	Definition
	HTML string
}

// Collection pairs a Definition with the JSON Schema of its tool input.
type Collection struct {
	Widget      Definition
	InputSchema *jsonschema.Schema
}

// Item is what the registry stores per widget.
type Item struct {
	Widget      Widget
	InputSchema *jsonschema.Schema

	resolved *jsonschema.Resolved
}

// ParseInput validates raw tool arguments against the input schema and returns
// them with schema defaults applied. Absent arguments are treated as {}.
func (it *Item) ParseInput(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("%w: %s: arguments must be a JSON object: %w", ErrInvalidInput, it.Widget.ID, err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	if err := it.resolved.ApplyDefaults(&args); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, it.Widget.ID, err)
	}
	if err := it.resolved.Validate(args); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, it.Widget.ID, err)
	}
	return args, nil
}

// Meta is the metadata shared by a widget's tool and resource descriptors.
type Meta struct {
	OutputTemplate         string
	Invoking               string
	Invoked                string
	WidgetAccessible       bool
	ResultCanProduceWidget bool
}

func newMeta(def Definition) Meta {
	return Meta{
		OutputTemplate:         def.TemplateURI,
		Invoking:               def.Invoking,
		Invoked:                def.Invoked,
		WidgetAccessible:       true,
		ResultCanProduceWidget: true,
	}
}

// MCP renders the metadata with the keys hosts read from _meta.
func (m Meta) MCP() mcp.Meta {
	return mcp.Meta{
		"openai/outputTemplate":          m.OutputTemplate,
		"openai/toolInvocation/invoking": m.Invoking,
		"openai/toolInvocation/invoked":  m.Invoked,
		"openai/widgetAccessible":        m.WidgetAccessible,
		"openai/resultCanProduceWidget":  m.ResultCanProduceWidget,
	}
}

// WithLabels returns a copy with the invocation labels replaced, keeping
// the current ones where a replacement is empty.
func (m Meta) WithLabels(invoking, invoked string) Meta {
	if invoking != "" {
		m.Invoking = invoking
	}
	if invoked != "" {
		m.Invoked = invoked
	}
	return m
}

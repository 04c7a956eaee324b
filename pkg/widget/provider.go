package widget

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/afero"
)

// Provider is the widget registry. It is built once and never modified, so
// it is safe for concurrent use.
type Provider struct {
	assetsDir    string
	widgetDomain string

	itemsByID  map[string]*Item
	itemsByURI map[string]*Item
	metaByID   map[string]Meta
	metaByURI  map[string]Meta

	tools             []*mcp.Tool
	resources         []*mcp.Resource
	resourceTemplates []*mcp.ResourceTemplate
}

type Option func(*options)

type options struct {
	fs           afero.Fs
	widgetDomain string
}

// WithFs reads widget HTML from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithWidgetDomain declares the origin serving the widget assets. Resource
// contents then carry the domain and a CSP allowing it.
func WithWidgetDomain(origin string) Option {
	return func(o *options) { o.widgetDomain = origin }
}

// New reads <assetsDir>/<assetName>.html for every collection and builds the lookup tables
// and descriptor lists, in input order.
func New(assetsDir string, collections []Collection, opts ...Option) (*Provider, error) {
	o := options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}

	if ok, err := afero.DirExists(o.fs, assetsDir); err != nil || !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetsDirNotFound, assetsDir)
	}

	p := &Provider{
		assetsDir:    assetsDir,
		widgetDomain: o.widgetDomain,
		itemsByID:    make(map[string]*Item, len(collections)),
		itemsByURI:   make(map[string]*Item, len(collections)),
		metaByID:     make(map[string]Meta, len(collections)),
		metaByURI:    make(map[string]Meta, len(collections)),
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	for _, c := range collections {
		def := c.Widget
		if err := validate.Struct(def); err != nil {
			return nil, fmt.Errorf("invalid widget %q: %w", def.ID, err)
		}
		if _, exists := p.itemsByID[def.ID]; exists {
			return nil, fmt.Errorf("%w: id %q", ErrDuplicateWidget, def.ID)
		}
		if _, exists := p.itemsByURI[def.TemplateURI]; exists {
			return nil, fmt.Errorf("%w: uri %q", ErrDuplicateWidget, def.TemplateURI)
		}

		schema := c.InputSchema
		if schema == nil {
			schema = &jsonschema.Schema{Type: "object"}
		}
		if schema.Type != "object" {
			return nil, fmt.Errorf("invalid widget %q: input schema must have type \"object\"", def.ID)
		}
		resolved, err := schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
		if err != nil {
			return nil, fmt.Errorf("invalid widget %q: resolving input schema: %w", def.ID, err)
		}

		html, err := p.readHTML(o.fs, def.AssetName)
		if err != nil {
			return nil, err
		}

		item := &Item{
			Widget:      Widget{Definition: def, HTML: html},
			InputSchema: schema,
			resolved:    resolved,
		}
		meta := newMeta(def)

		p.itemsByID[def.ID] = item
		p.itemsByURI[def.TemplateURI] = item
		p.metaByID[def.ID] = meta
		p.metaByURI[def.TemplateURI] = meta

		// The structured result of a call echoes its validated arguments.
		p.tools = append(p.tools, &mcp.Tool{
			Name:         def.ID,
			Title:        def.Title,
			Description:  def.Title,
			InputSchema:  schema,
			OutputSchema: schema,
			// Read-only, closed-world tools don't need an approval prompt.
			Annotations: &mcp.ToolAnnotations{
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(false),
				ReadOnlyHint:    true,
			},
			Meta: meta.MCP(),
		})
		p.resources = append(p.resources, &mcp.Resource{
			URI:         def.TemplateURI,
			Name:        def.Title,
			Description: def.Title + " widget markup",
			MIMEType:    MIMEType,
			Meta:        meta.MCP(),
		})
		p.resourceTemplates = append(p.resourceTemplates, &mcp.ResourceTemplate{
			URITemplate: def.TemplateURI,
			Name:        def.Title,
			Description: def.Title + " widget markup",
			MIMEType:    MIMEType,
			Meta:        meta.MCP(),
		})
	}

	return p, nil
}

func (p *Provider) readHTML(fs afero.Fs, assetName string) (string, error) {
	path := filepath.Join(p.assetsDir, assetName+".html")
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrWidgetHTMLNotFound, assetName)
		}
		return "", fmt.Errorf("reading widget %s: %w", assetName, err)
	}
	return string(buf), nil
}

func (p *Provider) ItemByID(id string) (*Item, bool) {
	item, ok := p.itemsByID[id]
	return item, ok
}

func (p *Provider) ItemByURI(uri string) (*Item, bool) {
	item, ok := p.itemsByURI[uri]
	return item, ok
}

func (p *Provider) MetaByID(id string) (Meta, bool) {
	meta, ok := p.metaByID[id]
	return meta, ok
}

func (p *Provider) MetaByURI(uri string) (Meta, bool) {
	meta, ok := p.metaByURI[uri]
	return meta, ok
}

// Tools returns the tool descriptors. Callers must not modify them.
func (p *Provider) Tools() []*mcp.Tool { return p.tools }

// Resources returns the resource descriptors. Callers must not modify them.
func (p *Provider) Resources() []*mcp.Resource { return p.resources }

// ResourceTemplates returns the resource template descriptors. Callers must not modify them.
func (p *Provider) ResourceTemplates() []*mcp.ResourceTemplate { return p.resourceTemplates }

// Len is the number of registered widgets.
func (p *Provider) Len() int { return len(p.tools) }

// ResourceContentsMeta is attached to every resources/read result content.
func (p *Provider) ResourceContentsMeta() mcp.Meta {
	meta := mcp.Meta{"openai/widgetPrefersBorder": true}
	if p.widgetDomain != "" {
		meta["openai/widgetDomain"] = p.widgetDomain
		meta["openai/widgetCSP"] = map[string]any{
			"connect_domains":  []string{p.widgetDomain},
			"resource_domains": []string{p.widgetDomain},
		}
	}
	return meta
}

func boolPtr(b bool) *bool { return &b }

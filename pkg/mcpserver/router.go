package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docker/mcp-widgets/pkg/i18n"
	"github.com/docker/mcp-widgets/pkg/widget"
)

// LocaleMetaKey is the request _meta key hosts use to pass the user's locale.
const LocaleMetaKey = "openai/locale"

var ErrUnknownTool = errors.New("unknown tool")

// Router answers MCP requests from a widget registry.
type Router struct {
	widgets *widget.Provider
	catalog *i18n.Catalog
}

// NewRouter returns a router over widgets. catalog may be nil, in which case
// invocation labels are never localized.
func NewRouter(widgets *widget.Provider, catalog *i18n.Catalog) *Router {
	return &Router{widgets: widgets, catalog: catalog}
}

func (r *Router) ListTools() []*mcp.Tool {
	return r.widgets.Tools()
}

func (r *Router) ListResources() []*mcp.Resource {
	return r.widgets.Resources()
}

func (r *Router) ListResourceTemplates() []*mcp.ResourceTemplate {
	return r.widgets.ResourceTemplates()
}

// CallTool validates the arguments against the widget's input schema and returns
// the widget's response text. Invalid arguments produce a tool error result.
func (r *Router) CallTool(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name
	item, ok := r.widgets.ItemByID(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args, err := item.ParseInput(req.Params.Arguments)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			IsError: true,
		}, nil
	}

	meta, _ := r.widgets.MetaByID(name)
	meta = r.localize(name, meta, locale(req.Params.Meta))

	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: item.Widget.ResponseText}},
		StructuredContent: args,
		Meta:              meta.MCP(),
	}, nil
}

// ReadResource returns the cached HTML of the widget registered under the URI.
func (r *Router) ReadResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	item, ok := r.widgets.ItemByURI(uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: widget.MIMEType,
			Text:     item.Widget.HTML,
			Meta:     r.widgets.ResourceContentsMeta(),
		}},
	}, nil
}

// localize swaps the invocation labels for the widget.<id>.invoking|invoked
// translations of lang, when that bundle has them.
func (r *Router) localize(id string, meta widget.Meta, lang string) widget.Meta {
	if r.catalog == nil || lang == "" || !r.catalog.IsSupported(lang) {
		return meta
	}
	bundle, err := r.catalog.Load(lang)
	if err != nil {
		return meta
	}
	return meta.WithLabels(bundle["widget."+id+".invoking"], bundle["widget."+id+".invoked"])
}

func locale(meta mcp.Meta) string {
	lang, _ := meta[LocaleMetaKey].(string)
	return lang
}

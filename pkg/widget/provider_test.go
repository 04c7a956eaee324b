package widget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func definition(id string) Definition {
	return Definition{
		ID:           id,
		Title:        id + " Title",
		TemplateURI:  "ui://widget/" + id + ".html",
		Invoking:     "Loading " + id,
		Invoked:      "Loaded " + id,
		AssetName:    id,
		ResponseText: "Rendered " + id,
	}
}

func writeAssets(t *testing.T, html map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range html {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".html"), []byte(content), 0o644))
	}
	return dir
}

func TestNewBuildsLookups(t *testing.T) {
	ids := []string{"alpha", "beta", "gamma"}
	html := map[string]string{}
	var collections []Collection
	for _, id := range ids {
		html[id] = fmt.Sprintf("<div>%s</div>", id)
		collections = append(collections, Collection{Widget: definition(id)})
	}
	dir := writeAssets(t, html)

	p, err := New(dir, collections)
	require.NoError(t, err)

	assert.Equal(t, len(ids), p.Len())
	assert.Len(t, p.Tools(), len(ids))
	assert.Len(t, p.Resources(), len(ids))
	assert.Len(t, p.ResourceTemplates(), len(ids))

	for i, id := range ids {
		byID, ok := p.ItemByID(id)
		require.True(t, ok)
		byURI, ok := p.ItemByURI("ui://widget/" + id + ".html")
		require.True(t, ok)

		assert.Same(t, byID, byURI)
		assert.Equal(t, html[id], byID.Widget.HTML)

		assert.Equal(t, id, p.Tools()[i].Name)
		assert.Equal(t, byID.Widget.TemplateURI, p.Resources()[i].URI)
		assert.Equal(t, byID.Widget.TemplateURI, p.ResourceTemplates()[i].URITemplate)
	}
}

func TestLookupMissing(t *testing.T) {
	dir := writeAssets(t, map[string]string{"alpha": "<div/>"})
	p, err := New(dir, []Collection{{Widget: definition("alpha")}})
	require.NoError(t, err)

	_, ok := p.ItemByID("nope")
	assert.False(t, ok)
	_, ok = p.ItemByURI("ui://widget/nope.html")
	assert.False(t, ok)
	_, ok = p.MetaByID("nope")
	assert.False(t, ok)
	_, ok = p.MetaByURI("")
	assert.False(t, ok)
}

func TestDescriptors(t *testing.T) {
	dir := writeAssets(t, map[string]string{"alpha": "<div/>"})
	p, err := New(dir, []Collection{{Widget: definition("alpha")}})
	require.NoError(t, err)

	tool := p.Tools()[0]
	assert.Equal(t, "alpha Title", tool.Title)
	assert.Equal(t, "alpha Title", tool.Description)
	assert.Same(t, tool.InputSchema, tool.OutputSchema)
	require.NotNil(t, tool.Annotations)
	assert.True(t, tool.Annotations.ReadOnlyHint)
	assert.False(t, *tool.Annotations.DestructiveHint)
	assert.False(t, *tool.Annotations.OpenWorldHint)
	assert.Equal(t, "ui://widget/alpha.html", tool.Meta["openai/outputTemplate"])
	assert.Equal(t, "Loading alpha", tool.Meta["openai/toolInvocation/invoking"])
	assert.Equal(t, "Loaded alpha", tool.Meta["openai/toolInvocation/invoked"])
	assert.Equal(t, true, tool.Meta["openai/widgetAccessible"])
	assert.Equal(t, true, tool.Meta["openai/resultCanProduceWidget"])

	resource := p.Resources()[0]
	assert.Equal(t, "alpha Title widget markup", resource.Description)
	assert.Equal(t, MIMEType, resource.MIMEType)
	assert.Equal(t, tool.Meta, resource.Meta)

	meta, ok := p.MetaByURI("ui://widget/alpha.html")
	require.True(t, ok)
	assert.Equal(t, Meta{
		OutputTemplate:         "ui://widget/alpha.html",
		Invoking:               "Loading alpha",
		Invoked:                "Loaded alpha",
		WidgetAccessible:       true,
		ResultCanProduceWidget: true,
	}, meta)
}

func TestNewErrors(t *testing.T) {
	dir := writeAssets(t, map[string]string{"alpha": "<div/>"})

	tests := []struct {
		name        string
		assetsDir   string
		collections []Collection
		want        error
	}{
		{
			name:        "missing assets dir",
			assetsDir:   filepath.Join(dir, "missing"),
			collections: []Collection{{Widget: definition("alpha")}},
			want:        ErrAssetsDirNotFound,
		},
		{
			name:        "missing html",
			assetsDir:   dir,
			collections: []Collection{{Widget: definition("beta")}},
			want:        ErrWidgetHTMLNotFound,
		},
		{
			name:        "duplicate id",
			assetsDir:   dir,
			collections: []Collection{{Widget: definition("alpha")}, {Widget: definition("alpha")}},
			want:        ErrDuplicateWidget,
		},
		{
			name:      "duplicate uri",
			assetsDir: dir,
			collections: func() []Collection {
				other := definition("other")
				other.AssetName = "alpha"
				other.TemplateURI = "ui://widget/alpha.html"
				return []Collection{{Widget: definition("alpha")}, {Widget: other}}
			}(),
			want: ErrDuplicateWidget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.assetsDir, tt.collections)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRejectsInvalidDefinition(t *testing.T) {
	dir := writeAssets(t, map[string]string{"alpha": "<div/>"})
	def := definition("alpha")
	def.ResponseText = ""

	_, err := New(dir, []Collection{{Widget: def}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ResponseText")
}

func TestNewWithMemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/assets/alpha.html", []byte("<p>mem</p>"), 0o644))

	p, err := New("/assets", []Collection{{Widget: definition("alpha")}}, WithFs(fs), WithWidgetDomain("https://cdn.example.com"))
	require.NoError(t, err)

	item, ok := p.ItemByID("alpha")
	require.True(t, ok)
	assert.Equal(t, "<p>mem</p>", item.Widget.HTML)

	meta := p.ResourceContentsMeta()
	assert.Equal(t, true, meta["openai/widgetPrefersBorder"])
	assert.Equal(t, "https://cdn.example.com", meta["openai/widgetDomain"])
	assert.Equal(t, map[string]any{
		"connect_domains":  []string{"https://cdn.example.com"},
		"resource_domains": []string{"https://cdn.example.com"},
	}, meta["openai/widgetCSP"])
}

func TestResourceContentsMetaWithoutDomain(t *testing.T) {
	dir := writeAssets(t, map[string]string{"alpha": "<div/>"})
	p, err := New(dir, []Collection{{Widget: definition("alpha")}})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"openai/widgetPrefersBorder": true}, map[string]any(p.ResourceContentsMeta()))
}

func TestParseInput(t *testing.T) {
	dir := writeAssets(t, map[string]string{"alpha": "<div/>"})
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"message": {Type: "string"},
			"count":   {Type: "integer", Default: json.RawMessage(`1`)},
		},
		Required: []string{"message"},
	}
	p, err := New(dir, []Collection{{Widget: definition("alpha"), InputSchema: schema}})
	require.NoError(t, err)
	item, _ := p.ItemByID("alpha")

	args, err := item.ParseInput(json.RawMessage(`{"message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", args["message"])
	assert.EqualValues(t, 1, args["count"])

	for name, raw := range map[string]string{
		"missing required": `{}`,
		"wrong type":       `{"message": 42}`,
		"not an object":    `[1, 2]`,
		"absent":           ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := item.ParseInput(json.RawMessage(raw))
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/mcp-widgets/pkg/i18n"
	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/telemetry"
	"github.com/docker/mcp-widgets/pkg/widget"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func greetingProvider(t *testing.T) *widget.Provider {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.html"), []byte("<div>hi</div>"), 0o644))

	p, err := widget.New(dir, widget.Defaults())
	require.NoError(t, err)
	return p
}

func connect(t *testing.T, router *Router, opts *Options) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(&mcp.Implementation{Name: "demo-server", Version: "1.0.0"}, router, opts)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func TestReadGreetingResource(t *testing.T) {
	session := connect(t, NewRouter(greetingProvider(t), nil), nil)

	result, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: "ui://widget/greeting.html"})
	require.NoError(t, err)

	require.Len(t, result.Contents, 1)
	assert.Equal(t, "<div>hi</div>", result.Contents[0].Text)
	assert.Equal(t, "text/html+skybridge", result.Contents[0].MIMEType)
	assert.Equal(t, "ui://widget/greeting.html", result.Contents[0].URI)
	assert.Equal(t, true, result.Contents[0].Meta["openai/widgetPrefersBorder"])
}

func TestReadUnknownResource(t *testing.T) {
	session := connect(t, NewRouter(greetingProvider(t), nil), nil)

	_, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: "ui://widget/missing.html"})
	require.ErrorContains(t, err, "not found")
}

func TestListings(t *testing.T) {
	session := connect(t, NewRouter(greetingProvider(t), nil), nil)
	ctx := context.Background()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, "greeting", tools.Tools[0].Name)
	assert.Equal(t, "ui://widget/greeting.html", tools.Tools[0].Meta["openai/outputTemplate"])
	assert.True(t, tools.Tools[0].Annotations.ReadOnlyHint)
	assert.Equal(t, tools.Tools[0].InputSchema, tools.Tools[0].OutputSchema)

	resources, err := session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, resources.Resources, 1)
	assert.Equal(t, "Greeting widget markup", resources.Resources[0].Description)

	templates, err := session.ListResourceTemplates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, templates.ResourceTemplates, 1)
	assert.Equal(t, "ui://widget/greeting.html", templates.ResourceTemplates[0].URITemplate)
}

func TestCallTool(t *testing.T) {
	session := connect(t, NewRouter(greetingProvider(t), nil), nil)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "greeting",
		Arguments: map[string]any{"message": "hello"},
	})
	require.NoError(t, err)

	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "Rendered a greeting!", result.Content[0].(*mcp.TextContent).Text)
	assert.Equal(t, map[string]any{"message": "hello"}, result.StructuredContent)
	assert.Equal(t, "Greeting ready", result.Meta["openai/toolInvocation/invoked"])
}

func TestCallToolInvalidArguments(t *testing.T) {
	session := connect(t, NewRouter(greetingProvider(t), nil), nil)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "greeting",
		Arguments: map[string]any{"message": 42},
	})
	require.NoError(t, err)

	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, "invalid tool input")
}

func TestCallUnknownTool(t *testing.T) {
	session := connect(t, NewRouter(greetingProvider(t), nil), nil)

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "missing"})
	require.ErrorContains(t, err, "unknown tool")
}

func TestUnknownToolKeepsSessionAlive(t *testing.T) {
	buf := &lockedBuffer{}
	log.SetLogWriter(buf)
	t.Cleanup(func() { log.SetLogWriter(os.Stderr) })

	session := connect(t, NewRouter(greetingProvider(t), nil), &Options{LogCalls: true})
	ctx := context.Background()

	for range 2 {
		_, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "missing"})
		require.ErrorContains(t, err, "unknown tool")
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "greeting", Arguments: map[string]any{"message": "hi"}})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	assert.Contains(t, buf.String(), "! tools/call missing failed after")
}

func TestIsErrorResult(t *testing.T) {
	var typedNil *mcp.CallToolResult

	assert.False(t, isErrorResult(typedNil))
	assert.False(t, isErrorResult(nil))
	assert.False(t, isErrorResult(&mcp.CallToolResult{}))
	assert.False(t, isErrorResult(&mcp.ReadResourceResult{}))
	assert.True(t, isErrorResult(&mcp.CallToolResult{IsError: true}))
}

func TestCallToolLocalizedLabels(t *testing.T) {
	session := connect(t, NewRouter(greetingProvider(t), i18n.Default()), nil)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Meta:      mcp.Meta{LocaleMetaKey: "zh-CN"},
		Name:      "greeting",
		Arguments: map[string]any{"message": "你好"},
	})
	require.NoError(t, err)

	assert.Equal(t, "问候已生成", result.Meta["openai/toolInvocation/invoked"])
	assert.Equal(t, "正在生成问候…", result.Meta["openai/toolInvocation/invoking"])
}

func TestRouterDirect(t *testing.T) {
	router := NewRouter(greetingProvider(t), nil)
	ctx := context.Background()

	_, err := router.CallTool(ctx, &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Name: "missing"}})
	require.ErrorIs(t, err, ErrUnknownTool)

	result, err := router.CallTool(ctx, &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Name:      "greeting",
		Arguments: json.RawMessage(`{"message":"hi"}`),
	}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "hi"}, result.StructuredContent)

	_, err = router.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "ui://widget/missing.html"}})
	require.Error(t, err)

	assert.Len(t, router.ListTools(), 1)
	assert.Len(t, router.ListResources(), 1)
	assert.Len(t, router.ListResourceTemplates(), 1)
}

func TestMiddlewareRecordsAndLogs(t *testing.T) {
	provider := telemetry.Setup("demo-server", "1.0.0")
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	buf := &lockedBuffer{}
	log.SetLogWriter(buf)
	t.Cleanup(func() { log.SetLogWriter(os.Stderr) })

	session := connect(t, NewRouter(greetingProvider(t), nil), &Options{LogCalls: true})
	ctx := context.Background()

	_, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "greeting", Arguments: map[string]any{"message": "hi"}})
	require.NoError(t, err)
	_, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "greeting", Arguments: map[string]any{}})
	require.NoError(t, err)
	_, err = session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "ui://widget/greeting.html"})
	require.NoError(t, err)
	_, err = session.ListTools(ctx, nil)
	require.NoError(t, err)

	rm, err := provider.Collect(ctx)
	require.NoError(t, err)
	totals := telemetry.Totals(rm)
	assert.Equal(t, int64(2), totals["mcp.widgets.tool.calls"])
	assert.Equal(t, int64(1), totals["mcp.widgets.tool.errors"])
	assert.Equal(t, int64(1), totals["mcp.widgets.resource.reads"])
	assert.Equal(t, int64(1), totals["mcp.widgets.list"])

	logs := buf.String()
	assert.Contains(t, logs, "- tools/call greeting")
	assert.Contains(t, logs, "! tools/call greeting returned an error result")
	assert.Contains(t, logs, "- resources/read ui://widget/greeting.html")
}

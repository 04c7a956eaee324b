package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docker/mcp-widgets/pkg/log"
)

type Options struct {
	// LogCalls logs every tool call and resource read.
	LogCalls     bool
	Instructions string
}

// NewServer returns an MCP server exposing every widget of the router as a
// tool, a resource and a resource template.
func NewServer(impl *mcp.Implementation, router *Router, opts *Options) *mcp.Server {
	if opts == nil {
		opts = &Options{}
	}

	server := mcp.NewServer(impl, &mcp.ServerOptions{
		Instructions: opts.Instructions,
		InitializedHandler: func(_ context.Context, req *mcp.InitializedRequest) {
			clientInfo := req.Session.InitializeParams().ClientInfo
			log.Log(fmt.Sprintf("- Client initialized %s@%s %s", clientInfo.Name, clientInfo.Version, clientInfo.Title))
		},
		HasResources: true,
		HasTools:     true,
	})

	for _, tool := range router.ListTools() {
		server.AddTool(tool, router.CallTool)
	}
	for _, resource := range router.ListResources() {
		server.AddResource(resource, router.ReadResource)
	}
	for _, template := range router.ListResourceTemplates() {
		server.AddResourceTemplate(template, router.ReadResource)
	}

	server.AddReceivingMiddleware(telemetryMiddleware())
	if opts.LogCalls {
		server.AddReceivingMiddleware(logCallsMiddleware())
	}

	return server
}

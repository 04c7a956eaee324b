package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/telemetry"
)

// RequestIDHeader carries the id assigned to each HTTP request.
const RequestIDHeader = "X-Request-Id"

func telemetryMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			switch r := req.(type) {
			case *mcp.CallToolRequest:
				start := time.Now()
				ctx, span := telemetry.StartToolCallSpan(ctx, r.Params.Name)
				defer span.End()

				result, err := next(ctx, method, req)

				isError := err != nil || isErrorResult(result)
				telemetry.RecordToolCall(ctx, span, r.Params.Name, clientName(r.Session), time.Since(start), isError)
				return result, err

			case *mcp.ReadResourceRequest:
				ctx, span := telemetry.StartResourceReadSpan(ctx, r.Params.URI)
				defer span.End()

				result, err := next(ctx, method, req)
				telemetry.RecordResourceRead(ctx, span, r.Params.URI, err == nil)
				return result, err
			}

			result, err := next(ctx, method, req)
			if err == nil {
				switch res := result.(type) {
				case *mcp.ListToolsResult:
					if res != nil {
						telemetry.RecordList(ctx, "tools", len(res.Tools))
					}
				case *mcp.ListResourcesResult:
					if res != nil {
						telemetry.RecordList(ctx, "resources", len(res.Resources))
					}
				case *mcp.ListResourceTemplatesResult:
					if res != nil {
						telemetry.RecordList(ctx, "resourceTemplates", len(res.ResourceTemplates))
					}
				}
			}
			return result, err
		}
	}
}

func logCallsMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			var target string
			switch r := req.(type) {
			case *mcp.CallToolRequest:
				target = r.Params.Name
			case *mcp.ReadResourceRequest:
				target = r.Params.URI
			default:
				return next(ctx, method, req)
			}

			start := time.Now()
			log.Logf("  - %s %s%s", method, target, requestID(req))
			result, err := next(ctx, method, req)
			if err != nil {
				log.Logf("  ! %s %s failed after %s: %v", method, target, time.Since(start).Round(time.Millisecond), err)
				return result, err
			}
			if isErrorResult(result) {
				log.Logf("  ! %s %s returned an error result", method, target)
			}
			return result, err
		}
	}
}

// isErrorResult reports whether result is a tool result flagged as an error.
// The SDK may hand back a typed nil result alongside an error.
func isErrorResult(result mcp.Result) bool {
	res, ok := result.(*mcp.CallToolResult)
	return ok && res != nil && res.IsError
}

func clientName(session *mcp.ServerSession) string {
	if session == nil {
		return ""
	}
	params := session.InitializeParams()
	if params == nil || params.ClientInfo == nil {
		return ""
	}
	return params.ClientInfo.Name
}

func requestID(req mcp.Request) string {
	extra := req.GetExtra()
	if extra == nil || extra.Header == nil {
		return ""
	}
	if id := extra.Header.Get(RequestIDHeader); id != "" {
		return " (" + id + ")"
	}
	return ""
}

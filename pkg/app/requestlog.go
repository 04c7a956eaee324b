package app

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/docker/mcp-widgets/pkg/contextkeys"
	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/mcpserver"
)

// requestLogMiddleware assigns every request an id, exposes it to handlers
// through the context and the X-Request-Id header, and logs the request line.
func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(mcpserver.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(mcpserver.RequestIDHeader, id)
		}
		w.Header().Set(mcpserver.RequestIDHeader, id)

		log.Request(r.Method, requestURL(r), id)

		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

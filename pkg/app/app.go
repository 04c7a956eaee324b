package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/docker/mcp-widgets/pkg/config"
	"github.com/docker/mcp-widgets/pkg/health"
	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/mcpserver"
	"github.com/docker/mcp-widgets/pkg/telemetry"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	LogCalls     bool
	Instructions string
	// Fs holds the build output served under the assets path. Defaults to the OS filesystem.
	Fs afero.Fs
}

// App is the HTTP front of the widget server: the MCP endpoint, the built
// assets and a health check.
type App struct {
	cfg       config.Config
	router    *mcpserver.Router
	opts      Options
	authToken string
	generated bool
	health    health.State
}

func New(cfg config.Config, router *mcpserver.Router, opts Options) (*App, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	token, generated, err := resolveAuthToken(cfg.AuthToken)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:       cfg,
		router:    router,
		opts:      opts,
		authToken: token,
		generated: generated,
	}, nil
}

// Endpoint is the public URL of the streamable HTTP endpoint.
func (a *App) Endpoint() string {
	return a.cfg.Origin() + a.cfg.MCPPath()
}

// Handler routes <prefix>/mcp, <prefix>/assets/ and /health.
func (a *App) Handler() http.Handler {
	impl := &mcp.Implementation{Name: a.cfg.ServerName, Version: a.cfg.ServerVersion}
	serverOpts := &mcpserver.Options{LogCalls: a.opts.LogCalls, Instructions: a.opts.Instructions}

	// A fresh MCP server per session, all sharing the same registry.
	streamHandler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return mcpserver.NewServer(impl, a.router, serverOpts)
	}, &mcp.StreamableHTTPOptions{Stateless: a.cfg.Stateless})

	withCORS := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Mcp-Session-Id", mcpserver.RequestIDHeader},
	}).Handler

	assets := http.FileServer(afero.NewHttpFs(a.opts.Fs).Dir(a.cfg.OutputDir))

	r := mux.NewRouter()
	r.Handle("/health", healthHandler(&a.health))
	r.Handle(a.cfg.MCPPath(), withCORS(streamHandler))
	r.PathPrefix(a.cfg.AssetsPath()).Handler(withCORS(http.StripPrefix(a.cfg.PathPrefix(), assets)))

	var handler http.Handler = r
	if a.authToken != "" {
		handler = authenticationMiddleware(a.authToken, handler)
	}
	return requestLogMiddleware(handler)
}

// Run listens on the configured address and serves until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	telemetry.RecordServerStart(ctx, "streamable")
	a.health.SetHealthy()

	log.Log("> MCP widgets server started:")
	log.Log("  - Streamable HTTP Endpoint:", a.Endpoint())
	log.Log("  - Assets:", a.cfg.Origin()+a.cfg.AssetsPath())
	if a.generated {
		log.Log("  - Use this header to connect:", formatBearerToken(a.authToken))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.health.SetUnhealthy()
		log.Log("> Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			// Streaming sessions can outlive the timeout.
			log.Logf("! Graceful shutdown incomplete: %v", err)
			return httpServer.Close()
		}
		return nil
	})

	return g.Wait()
}

func healthHandler(state *health.State) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if state.IsHealthy() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}
}

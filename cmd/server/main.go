package main

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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/multistage-demo/internal/http/health"
	"github.com/janisto/multistage-demo/internal/http/routes"
	"github.com/janisto/multistage-demo/internal/platform/config"
	applog "github.com/janisto/multistage-demo/internal/platform/logging"
	appmiddleware "github.com/janisto/multistage-demo/internal/platform/middleware"
	"github.com/janisto/multistage-demo/internal/platform/respond"
	greetingsvc "github.com/janisto/multistage-demo/internal/service/greeting"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const (
	apiTitle = "Docker Multistage Demo API"
	docsPath = "/api-docs"
)

func main() {
	ctx := context.Background()
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(ctx, "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(ctx, "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogFatal(ctx, "invalid configuration", err)
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogFatal(ctx, "invalid configuration", err)
	}

	greeter := greetingsvc.NewGreeter(cfg.AppName)
	srv := newServer(cfg.Addr(), newRouter(cfg, greeter))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		applog.LogError(ctx, "listen failed", err, zap.String("addr", srv.Addr))
		os.Exit(1)
	}
	applog.LogInfo(ctx, "server listening",
		zap.String("addr", srv.Addr),
		zap.String("app", greeter.AppName()),
		zap.String("version", Version),
		zap.String("hostname", greeter.Greet(ctx).Hostname),
	)
	if err := serve(ctx, srv, ln, cfg.ShutdownTimeout); err != nil {
		applog.LogError(context.Background(), "server error", err, zap.String("addr", srv.Addr))
		os.Exit(1)
	}
	applog.LogInfo(context.Background(), "server exited")
}

// newRouter builds the HTTP handler tree: middleware, operational routes and
// the Huma API.
func newRouter(cfg config.Config, greeter greetingsvc.Service) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	router.Use(
		appmiddleware.Security(docsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(cfg.AllowedOrigins...),
		appmiddleware.RequestID(),
		// RealIP trusts X-Real-IP / X-Forwarded-For; only deploy behind a trusted proxy.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1<<20), // 1 MB limit
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
		chimiddleware.GetHead,
	)

	router.Get("/health", health.Handler)

	routes.Register(newAPI(router), greeter)
	return router
}

// newAPI configures Huma on the router. Schema links are disabled so response
// bodies carry only their declared fields.
func newAPI(router chi.Router) huma.API {
	hcfg := huma.DefaultConfig(apiTitle, Version)
	hcfg.DocsPath = docsPath
	hcfg.CreateHooks = nil
	api := humachi.New(router, hcfg)
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)
	return api
}

// addCBORContent documents application/cbor next to every JSON body.
func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
}

// serve runs srv on ln until ctx is cancelled, then drains in-flight requests
// for at most shutdownTimeout.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	listenErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		applog.LogInfo(context.Background(), "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

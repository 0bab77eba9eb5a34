// Command server is the entry point for the Inkwell API.
package main

//go:generate swag init -g main.go -d ./,../../internal/server,../../internal/models -o ../../docs --outputTypes go

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/observability"
	"inkwell/internal/server"
	"inkwell/internal/supervisor"
)

// @title Inkwell API
// @version 1.0
// @description Publishing platform API with threaded comments, likes, bookmarks and related content
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@inkwell.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.SetGlobalLogger(middleware.Logger)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "inkwell-api",
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	app := srv.NewApp()

	tree := supervisor.NewTree(middleware.Logger, supervisor.TreeConfig{ShutdownTimeout: shutdownTimeout})
	tree.AddBackground(srv.Reconciler())
	tree.AddBackground(srv.Hub())
	tree.AddAPI(supervisor.NewHTTPService(app, ":"+cfg.Port, shutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	middleware.Logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		middleware.Logger.Error("supervisor exited", "error", err)
	}

	middleware.Logger.Info("shutting down server")
	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, u := range unstopped {
			middleware.Logger.Warn("service did not stop in time", "service", u.Name)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		middleware.Logger.Error("server resource shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		middleware.Logger.Error("tracing shutdown error", "error", err)
	}
}

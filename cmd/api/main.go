// Package main starts the taxonomy HTTP API: CRUD over stored taxonomies plus
// the stateless migrate, validate and convert tools. Settings come from an
// optional YAML file (-config) and the environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/modelopt/taxonomy/cmd/api/middleware"
	"github.com/modelopt/taxonomy/internal/config"
	"github.com/modelopt/taxonomy/internal/handlers"
	"github.com/modelopt/taxonomy/internal/logger"
	"github.com/modelopt/taxonomy/internal/metrics"
	"github.com/modelopt/taxonomy/internal/service"
	"github.com/modelopt/taxonomy/internal/store"
)

// DefaultTreeID is the id the seed file is loaded under.
const DefaultTreeID = "default"

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	repo, err := store.Open(ctx, store.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
	}, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := service.New(repo, log, m)
	if err := seed(ctx, svc, cfg.SeedFile, log); err != nil {
		return err
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := newRouter(cfg, handlers.New(svc, log), m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("addr", cfg.Server.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("server shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// seed loads the configured file as the default taxonomy. A missing setting
// is not an error.
func seed(ctx context.Context, svc *service.Service, path string, log *zap.Logger) error {
	if path == "" {
		return nil
	}
	result, err := svc.LoadFile(ctx, DefaultTreeID, path)
	if err != nil {
		return fmt.Errorf("failed to load seed file: %w", err)
	}
	log.Info("seed taxonomy loaded",
		zap.String("id", result.ID),
		zap.String("path", path),
		zap.Int("legacy_nodes", len(result.Warnings)),
	)
	return nil
}

func newRouter(cfg *config.Config, h *handlers.Handler, m *metrics.Metrics, metricsHandler http.Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(log),
		m.Middleware(),
		middleware.Cors(cfg.Server.CORSAllowedOrigin),
	)
	router.GET("/metrics", gin.WrapH(metricsHandler))

	api := router.Group("/api/v1", middleware.APIKey(cfg.Server.APIKey))
	h.Register(router, api)
	return router
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/flexsearch/indexer/internal/bulk"
	"github.com/flexsearch/indexer/internal/cache"
	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/engine"
	"github.com/flexsearch/indexer/internal/events"
	"github.com/flexsearch/indexer/internal/handler"
	"github.com/flexsearch/indexer/internal/lifecycle"
	"github.com/flexsearch/indexer/internal/middleware"
	"github.com/flexsearch/indexer/internal/server"
	"github.com/flexsearch/indexer/internal/service"
	"github.com/flexsearch/indexer/internal/util"
)

const (
	serviceName = "indexer"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metrics := util.NewMetrics(serviceName, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := middleware.InitTracing(cfg.Tracing, serviceName, logger)
	if err != nil {
		logger.Fatalw("Failed to initialize tracing", "error", err)
	}

	client, err := engine.Dial(ctx, cfg.Elasticsearch, logger.Named("engine"), metrics)
	if err != nil {
		logger.Fatalw("Elasticsearch is not reachable", "url", cfg.Elasticsearch.URL, "error", err)
	}
	metrics.SetEngineUp(true)

	manager := lifecycle.NewManager(client, cfg.Elasticsearch, lifecycle.NewKeyedMutex(), logger.Named("lifecycle"), metrics)
	if _, err := manager.EnsureIndex(ctx, ""); err != nil {
		logger.Fatalw("Failed to ensure index", "index", cfg.Elasticsearch.Index, "error", err)
	}

	indexer := bulk.NewIndexer(client, cfg.Elasticsearch.Index, cfg.Elasticsearch.Fields,
		cfg.Bulk.MaxConcurrent, logger.Named("bulk"), metrics)

	redisClient := setupRedis(ctx, cfg, logger)
	searchCache := cache.NewRedisCache(redisClient, cfg.Cache, logger.Named("cache"), metrics)

	svc := service.NewSearchService(&service.SearchServiceConfig{
		Config:    cfg,
		Logger:    logger,
		Engine:    client,
		Cache:     searchCache,
		Indexer:   indexer,
		Lifecycle: manager,
		Metrics:   metrics,
	})

	if cfg.Events.Enabled && redisClient != nil {
		subscriber := events.NewSubscriber(redisClient, cfg.Events.HardDeletedChannel, svc, logger.Named("events"))
		go func() {
			if err := subscriber.Run(ctx); err != nil {
				logger.Errorw("Document event subscriber stopped", "error", err)
			}
		}()
	}

	httpServer := setupHTTPServer(cfg, svc, logger, metrics)
	go func() {
		logger.Infow("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("HTTP server error", "error", err)
		}
	}()

	var healthServer *server.HealthServer
	if cfg.GRPC.Enabled {
		healthServer = server.NewHealthServer(cfg.GRPC, serviceName, client, logger.Named("grpc"), metrics)
		go healthServer.Watch(ctx)
		go func() {
			addr := cfg.GetGRPCAddress()
			logger.Infow("Starting gRPC health server", "address", addr)
			listener, err := net.Listen("tcp", addr)
			if err != nil {
				logger.Fatalw("Failed to listen", "address", addr, "error", err)
			}
			if err := healthServer.Serve(listener); err != nil {
				logger.Fatalw("Failed to serve", "error", err)
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = setupMetricsServer(cfg)
		go func() {
			logger.Infow("Starting metrics server", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorw("Metrics server error", "error", err)
			}
		}()
	}

	logger.Infof("%s service started successfully", serviceName)

	waitForShutdown(cancel, cfg, httpServer, healthServer, metricsServer, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := searchCache.Close(); err != nil {
		logger.Warnw("Failed to close Redis client", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warnw("Failed to flush traces", "error", err)
	}
	logger.Infof("%s service stopped", serviceName)
}

// setupRedis connects when the cache or the event subscription needs Redis.
// The service runs without both when Redis is down.
func setupRedis(ctx context.Context, cfg *config.Config, logger *util.Logger) *redis.Client {
	if !cfg.Cache.Enabled && !cfg.Events.Enabled {
		return nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warnw("Redis unavailable, continuing without cache and events",
			"address", cfg.GetRedisAddress(),
			"error", err,
		)
		return nil
	}
	logger.Infow("Connected to Redis", "address", cfg.GetRedisAddress())
	return client
}

func setupHTTPServer(cfg *config.Config, svc *service.SearchService, logger *util.Logger, metrics *util.Metrics) *http.Server {
	if cfg.HTTP.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.NewTracingMiddleware(serviceName, cfg.Tracing.Enabled).Middleware())
	router.Use(middleware.NewLoggingMiddleware(logger.Named("http"), metrics).Middleware())
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.ErrorHandlerMiddleware(logger))

	handler.NewHandler(svc, logger).Register(router)

	return &http.Server{
		Addr:           cfg.GetHTTPAddress(),
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func setupMetricsServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())

	return &http.Server{
		Addr:    cfg.GetMetricsAddress(),
		Handler: mux,
	}
}

func waitForShutdown(cancel context.CancelFunc, cfg *config.Config, httpServer *http.Server, healthServer *server.HealthServer, metricsServer *http.Server, logger *util.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Infof("Received signal: %v", sig)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("Shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	if metricsServer != nil {
		logger.Info("Shutting down metrics server...")
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Metrics server shutdown error: %v", err)
		}
	}

	if healthServer != nil {
		logger.Info("Shutting down gRPC server...")
		healthServer.Shutdown(shutdownCtx)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flagdeck/internal/config"
	"github.com/kailas-cloud/flagdeck/internal/db"
	dbMemory "github.com/kailas-cloud/flagdeck/internal/db/memory"
	dbRedis "github.com/kailas-cloud/flagdeck/internal/db/redis"
	logpkg "github.com/kailas-cloud/flagdeck/internal/logger"
	"github.com/kailas-cloud/flagdeck/internal/metrics"
	datasetrepo "github.com/kailas-cloud/flagdeck/internal/repository/dataset"
	"github.com/kailas-cloud/flagdeck/internal/repository/imgcache"
	chiTransport "github.com/kailas-cloud/flagdeck/internal/transport/chi"
	"github.com/kailas-cloud/flagdeck/internal/transport/imagehttp"
	galleryuc "github.com/kailas-cloud/flagdeck/internal/usecase/gallery"
	healthuc "github.com/kailas-cloud/flagdeck/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/flagdeck/internal/usecase/session"
	"github.com/kailas-cloud/flagdeck/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting flagdeck API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("dataset", cfg.Dataset.Path),
	)

	// The dataset is loaded once; a missing or malformed source aborts startup.
	dataset, err := datasetrepo.Load(cfg.Dataset.Path, datasetrepo.Format(cfg.Dataset.Format))
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}
	logger.Info("Dataset loaded", zap.Int("records", dataset.Len()))

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()

	// Image fetch chain: HTTP -> Cached
	userAgent := cfg.Images.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	var fetcher imgcache.Fetcher = imagehttp.NewFetcher(imagehttp.Config{
		Timeout:   cfg.FetchTimeout(),
		MaxBytes:  cfg.Images.MaxBytes,
		UserAgent: userAgent,
		Logger:    logger,
	})
	if *cfg.Images.CacheEnabled {
		fetcher = imgcache.New(fetcher, store, cfg.CacheTTL(), metrics.ImageCacheTotal, logger)
	}

	sessionSvc := sessionuc.New(dataset, sessionuc.Config{
		IdleTTL:     cfg.SessionIdleTTL(),
		MaxSessions: cfg.Sessions.MaxSessions,
	})
	gallerySvc := galleryuc.New(sessionSvc, fetcher, cfg.Gallery.FetchConcurrency)
	healthSvc := healthuc.New(store, dataset, sessionSvc)

	server := chiTransport.NewServer(sessionSvc, gallerySvc, healthSvc, chiTransport.Paging{
		DefaultLimit: cfg.Gallery.DefaultPageSize,
		MaxLimit:     cfg.Gallery.MaxPageSize,
	}, cfg.Export.Filename, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully",
		zap.Int("sessions_dropped", sessionSvc.Active()),
	)
}

// openStore creates the image cache store for the configured driver.
func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "memory":
		return dbMemory.NewStore(0), nil
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Addrs,
			Username:  cfg.Username,
			Password:  cfg.Password,
			DB:        cfg.DB,
			Namespace: cfg.Namespace,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("session", chi.URLParam(r, "session")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

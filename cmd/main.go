package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/mindwell/adapters/memory"
	mongostore "github.com/satriahrh/mindwell/adapters/mongo"
	"github.com/satriahrh/mindwell/adapters/sqlite"
	"github.com/satriahrh/mindwell/adapters/stt"
	"github.com/satriahrh/mindwell/adapters/transport/cli"
	"github.com/satriahrh/mindwell/adapters/transport/cloud"
	"github.com/satriahrh/mindwell/adapters/transport/direct"
	"github.com/satriahrh/mindwell/adapters/transport/fake"
	"github.com/satriahrh/mindwell/domain/repositories"
	"github.com/satriahrh/mindwell/internal/api"
	"github.com/satriahrh/mindwell/internal/auth"
	"github.com/satriahrh/mindwell/internal/config"
	"github.com/satriahrh/mindwell/internal/observability"
	"github.com/satriahrh/mindwell/internal/websocket"
	"github.com/satriahrh/mindwell/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsLocal() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server exited")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	transport, err := newTransport(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create %s transport: %w", cfg.Analyzer.Transport, err)
	}

	moodRepo, closeStore, err := newMoodRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Kind, err)
	}
	defer closeStore()

	quizStore, err := memory.NewQuizStore(cfg.Store.QuizCacheSize)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics(nil)
	hub := websocket.NewHub(logger)

	opts := []usecase.MoodAnalysisOption{
		usecase.WithPublisher(hub),
		usecase.WithMetrics(metrics),
	}
	if cfg.Speech.Enabled {
		speech, err := stt.NewGoogleSpeechToText(ctx, stt.GoogleConfig{Language: cfg.Speech.Language}, logger)
		if err != nil {
			logger.Warn("Speech fallback disabled", zap.Error(err))
		} else {
			defer speech.Close()
			opts = append(opts, usecase.WithSpeechFallback(speech))
		}
	}

	proxyKey := ""
	if cfg.Upstream.ProxyInjectKey {
		proxyKey = cfg.Upstream.APIKey
	}
	proxy, err := cloud.NewProxy(cloud.Config{
		APIKey:  proxyKey,
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	}, cfg.Upstream.ProxyPrefix, logger)
	if err != nil {
		return fmt.Errorf("failed to create proxy: %w", err)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using the local development secret")
		secret = auth.LocalDevSecret
	}
	authenticator, err := auth.NewAuthenticator(secret, auth.DefaultTokenTTL)
	if err != nil {
		return err
	}

	// Initialize usecase services
	moodService := usecase.NewMoodAnalysisService(transport, moodRepo, logger, opts...)
	quizService := usecase.NewQuizService(transport, quizStore, moodService, metrics, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("20M"))
	e.Use(requestLogger(logger))

	// Initialize API routes
	api.InitRoutes(e, api.Dependencies{
		Moods:   moodService,
		Quizzes: quizService,
		Auth:    authenticator,
		Hub:     hub,
		Proxy:   proxy,
		Metrics: metrics,
		Logger:  logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Server started",
			zap.String("port", cfg.Port),
			zap.String("transport", transport.Name()),
			zap.Bool("transport_available", moodService.TransportAvailable()),
			zap.String("store", cfg.Store.Kind))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newTransport(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.Transport, error) {
	switch cfg.Analyzer.Transport {
	case config.TransportCloud:
		return cloud.NewTransport(cloud.Config{
			APIKey:            cfg.Upstream.APIKey,
			BaseURL:           cfg.Upstream.BaseURL,
			Model:             cfg.Analyzer.Model,
			Timeout:           cfg.Upstream.Timeout,
			RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
			Burst:             cfg.Upstream.Burst,
		}, logger)
	case config.TransportDirect:
		return direct.NewGeminiTransport(ctx, direct.GeminiConfig{
			APIKey:  cfg.Upstream.APIKey,
			Model:   cfg.Analyzer.Model,
			Timeout: cfg.Upstream.Timeout,
		}, logger)
	case config.TransportFake:
		logger.Warn("Using the fake transport, results are canned")
		return fake.NewTransport(), nil
	default:
		return cli.NewTransport(cli.Config{
			Binary:       cfg.Analyzer.CLIPath,
			Model:        cfg.Analyzer.Model,
			TempDir:      cfg.Analyzer.TempDir,
			TextTimeout:  cfg.Analyzer.TextTimeout,
			AudioTimeout: cfg.Analyzer.AudioTimeout,
		}, logger)
	}
}

func newMoodRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.MoodRepository, func(), error) {
	switch cfg.Store.Kind {
	case config.StoreMongo:
		client, err := mongostore.NewClient(ctx, mongostore.ClientConfig{
			URI:      cfg.Store.MongoURI,
			Database: cfg.Store.MongoDatabase,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		repo := mongostore.NewMoodRepository(client.Database, logger)
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure mood indexes", zap.Error(err))
		}
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(closeCtx); err != nil {
				logger.Error("Failed to close MongoDB client", zap.Error(err))
			}
		}, nil

	case config.StoreSQLite:
		repo, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using SQLite mood store", zap.String("path", cfg.Store.SQLitePath))
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("Failed to close SQLite store", zap.Error(err))
			}
		}, nil

	default:
		logger.Info("Using in-memory mood store")
		return memory.NewMoodRepository(), func() {}, nil
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Error("Request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("Request", fields...)
			return nil
		},
	})
}

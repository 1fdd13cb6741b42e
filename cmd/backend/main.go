// Package main provides the entry point for the Shortlink service.
//
//	@title			Shortlink API
//	@version		1.0.0
//	@description	URL shortener with asynchronous click analytics.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"context"
	"errors"
	lg "log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"shortlink-backend/internal/analytics"
	"shortlink-backend/internal/auth"
	"shortlink-backend/internal/config"
	"shortlink-backend/internal/database"
	httpHandler "shortlink-backend/internal/handler/http"
	"shortlink-backend/internal/repository"
	"shortlink-backend/internal/repository/cache"
	"shortlink-backend/internal/repository/postgres"
	"shortlink-backend/internal/service"
	"shortlink-backend/pkg/geo"
	"shortlink-backend/pkg/logger"
	"shortlink-backend/pkg/tracing"
	"shortlink-backend/pkg/useragent"

	"go.uber.org/zap"

	_ "shortlink-backend/docs" // Import swagger docs
)

const version = "1.0.0"

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting shortlink service", zap.String("env", cfg.Env), zap.String("version", version))

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.OTLPEndpoint, cfg.Tracing.ServiceName, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, cfg.Env, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	pg := postgres.New(db, log)
	var storage repository.Storage = pg

	// Redis кэш активных ссылок, при пустом адресе отключен
	if cfg.Redis.Address != "" {
		client, err := cache.NewClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, serving lookups from the database", zap.String("address", cfg.Redis.Address), zap.Error(err))
		} else {
			defer client.Close()
			storage = cache.New(pg, client, cfg.Redis.TTL, log)
			log.Info("link cache enabled", zap.String("address", cfg.Redis.Address), zap.Duration("ttl", cfg.Redis.TTL))
		}
	}

	// Initialize User-Agent parser
	uaParser, err := useragent.NewParser(cfg.Analytics.UARegexesPath, log)
	if err != nil {
		log.Warn("failed to load User-Agent regexes, device detection disabled", zap.Error(err))
	}

	locator := geo.Chain{geo.NewHeaderLocator()}
	if cfg.Analytics.GeoIPDBPath != "" {
		mm, err := geo.OpenMaxMind(cfg.Analytics.GeoIPDBPath, log)
		if err != nil {
			log.Warn("failed to open GeoIP database, using CDN headers only", zap.Error(err))
		} else {
			defer mm.Close()
			locator = append(locator, mm)
		}
	}

	extractor := analytics.NewExtractor(uaParser, locator, hostOf(cfg.URLShortener.BaseURL), log)

	var publisher analytics.Publisher
	var kafkaPublisher *analytics.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher = analytics.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		publisher = kafkaPublisher
		log.Info("click stream enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	processorConfig := analytics.DefaultConfig()
	processorConfig.WorkerCount = cfg.Analytics.Workers
	processorConfig.BufferSize = cfg.Analytics.BufferSize
	processorConfig.RetryAttempts = cfg.Analytics.RetryAttempts
	processorConfig.RetryDelay = cfg.Analytics.RetryDelay
	processorConfig.ShutdownTimeout = cfg.Analytics.ShutdownTimeout

	processor := analytics.NewProcessor(pg, publisher, log, processorConfig)
	if err := processor.Start(); err != nil {
		log.Fatal("failed to start analytics processor", zap.Error(err))
	}

	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey:           []byte(cfg.Auth.JWTSecret),
		AccessTokenDuration: cfg.Auth.AccessTokenTTL,
		Issuer:              cfg.Auth.Issuer,
	})

	urlShortener := service.NewURLShortener(storage, &cfg.URLShortener, log)
	linkService := service.NewLinkService(storage, log)
	resolver := service.NewResolver(storage, log)

	httpAPIServer := httpHandler.NewServer(
		httpHandler.NewLinksHandler(urlShortener, linkService, log),
		httpHandler.NewRedirectHandler(resolver, extractor, processor, cfg.URLShortener.HomePath, cfg.URLShortener.NotFoundPath, log),
		httpHandler.NewHealthHandler(storage, processor, version, log),
		auth.NewMiddleware(jwtService, cfg.Auth.AllowedOrigins, log),
		log,
	)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      httpAPIServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down shortlink service", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	// сначала перестаем принимать запросы, затем дописываем очередь кликов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	if err := processor.Stop(); err != nil {
		log.Error("analytics processor did not drain", zap.Error(err))
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error("failed to close click stream writer", zap.Error(err))
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("failed to flush traces", zap.Error(err))
	}
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

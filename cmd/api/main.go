package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authpostgres "github.com/mpetrovic/storefront/internal/auth/postgres"
	cartmemory "github.com/mpetrovic/storefront/internal/cart/adapters/memory"
	cartpostgres "github.com/mpetrovic/storefront/internal/cart/adapters/postgres"
	cartredis "github.com/mpetrovic/storefront/internal/cart/adapters/redis"
	cartapp "github.com/mpetrovic/storefront/internal/cart/app"
	cartports "github.com/mpetrovic/storefront/internal/cart/ports"
	catalogpostgres "github.com/mpetrovic/storefront/internal/catalog/postgres"
	"github.com/mpetrovic/storefront/internal/config"
	"github.com/mpetrovic/storefront/internal/database"
	"github.com/mpetrovic/storefront/internal/httpapi"
	idempostgres "github.com/mpetrovic/storefront/internal/idempotency/postgres"
	inventorypostgres "github.com/mpetrovic/storefront/internal/inventory/postgres"
	"github.com/mpetrovic/storefront/internal/kafka"
	ordersadapters "github.com/mpetrovic/storefront/internal/orders/adapters"
	orderspostgres "github.com/mpetrovic/storefront/internal/orders/adapters/postgres"
	ordersapp "github.com/mpetrovic/storefront/internal/orders/app"
	ordersmetrics "github.com/mpetrovic/storefront/internal/orders/metrics"
	ordersports "github.com/mpetrovic/storefront/internal/orders/ports"
	paymentsgateway "github.com/mpetrovic/storefront/internal/payments/adapters/gateway"
	paymentspostgres "github.com/mpetrovic/storefront/internal/payments/adapters/postgres"
	paymentsapp "github.com/mpetrovic/storefront/internal/payments/app"
	paymentsmetrics "github.com/mpetrovic/storefront/internal/payments/metrics"
	"github.com/mpetrovic/storefront/internal/payments/ports"
	"github.com/mpetrovic/storefront/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(parseLogLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	meter := otel.Meter("github.com/mpetrovic/storefront")

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create database metrics: %w", err)
	}
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create kafka metrics: %w", err)
	}
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create order metrics: %w", err)
	}
	paymentMetrics, err := paymentsmetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create payment metrics: %w", err)
	}
	httpMetrics, err := httpapi.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	var cartCache cartports.CartCache = cartmemory.NewCache()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		cartCache = cartredis.NewCache(redisClient)
	}

	var eventBus ordersports.EventBus = kafka.NewNoopEventBus()
	if len(cfg.Kafka.Brokers) > 0 {
		bus := kafka.NewEventBus(cfg.Kafka.Brokers...)
		defer func() { _ = bus.Close() }()
		eventBus = bus
	}
	eventBus = ordersadapters.NewObservableEventBus(eventBus, kafkaMetrics)

	catalogReader := catalogpostgres.NewReader(pool)
	stockLedger := inventorypostgres.NewLedger(pool)
	cartRepo := cartpostgres.NewRepository(pool)
	orderRepo := ordersadapters.NewObservableRepository(orderspostgres.NewRepository(pool), dbMetrics)
	sessionRepo := paymentspostgres.NewRepository(pool)
	idemStore := idempostgres.NewStore(pool)
	tokenStore := authpostgres.NewStore(pool)

	cartService := cartapp.NewService(cartRepo, cartCache, catalogReader, logger)
	orderService := ordersapp.NewService(orderRepo, cartRepo, catalogReader, stockLedger, eventBus, idemStore, logger, orderMetrics)

	var gateway ports.GatewayClient
	if cfg.Payment.KeyID != "" && cfg.Payment.KeySecret != "" {
		gateway = paymentsgateway.NewClient(cfg.Payment.GatewayURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, logger)
	} else {
		logger.Warn("payment gateway credentials not set, using stub gateway")
		gateway = paymentsgateway.NewStub()
	}

	paymentService := paymentsapp.NewService(
		sessionRepo,
		orderRepo,
		gateway,
		eventBus,
		logger,
		paymentMetrics,
		paymentsapp.Config{
			KeyID:      cfg.Payment.KeyID,
			KeySecret:  cfg.Payment.KeySecret,
			Currency:   cfg.Payment.Currency,
			SessionTTL: cfg.Payment.SessionTTL,
		},
	)

	reaper := paymentsapp.NewReaper(paymentService, time.Minute, logger)
	go reaper.Run(ctx)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Cart:     httpapi.NewCartHandler(cartService),
		Orders:   httpapi.NewOrderHandler(orderService),
		Payments: httpapi.NewPaymentHandler(paymentService),
		Tokens:   tokenStore,
		Metrics:  httpMetrics,
		Logger:   logger,
		Ready: func(ctx context.Context) error {
			return database.CheckHealth(ctx, pool)
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")

	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

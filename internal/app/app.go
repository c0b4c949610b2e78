package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	rediscache "github.com/utafrali/vingo-review/internal/cache/redis"
	"github.com/utafrali/vingo-review/internal/client/order"
	"github.com/utafrali/vingo-review/internal/config"
	"github.com/utafrali/vingo-review/internal/event"
	handler "github.com/utafrali/vingo-review/internal/handler/http"
	"github.com/utafrali/vingo-review/internal/repository"
	"github.com/utafrali/vingo-review/internal/service"
	"github.com/utafrali/vingo-review/pkg/database"
	"github.com/utafrali/vingo-review/pkg/health"
	"github.com/utafrali/vingo-review/pkg/httpclient"
	pkgkafka "github.com/utafrali/vingo-review/pkg/kafka"
	"github.com/utafrali/vingo-review/pkg/middleware"
	"github.com/utafrali/vingo-review/pkg/tracing"
)

// processedEventTTL bounds how long a handled event ID is remembered.
const processedEventTTL = 24 * time.Hour

// closer is one resource released on shutdown.
type closer struct {
	name string
	fn   func(context.Context) error
}

// App wires together all dependencies and runs the review service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	consumer   *pkgkafka.Consumer
	httpServer *http.Server
	// closers run in reverse order of acquisition.
	closers []closer
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.closeAll()
		}
	}()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.addCloser("tracing", shutdownTracing)

	healthHandler := health.NewHandler()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.addCloser(st.backend, st.close)
	healthHandler.RegisterCritical(st.backend, st.ping)

	orders := st.orders
	if cfg.OrderServiceURL != "" {
		breaker := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("order-service"),
			logger,
		)
		orders = order.NewClient(cfg.OrderServiceURL, breaker, logger)
		healthHandler.RegisterNonCritical("order-service", func(context.Context) error {
			if breaker.State() == gobreaker.StateOpen {
				return httpclient.ErrCircuitOpen
			}
			return nil
		})
		logger.Info("reading orders from order service", slog.String("url", cfg.OrderServiceURL))
	}

	// Redis listing cache and consumer dedupe store.
	var (
		pageCache repository.ReviewPageCache = rediscache.Noop{}
		processed pkgkafka.IdempotencyStore
	)
	if cfg.CacheEnabled() {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.addCloser("redis", func(context.Context) error { return client.Close() })
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		pageCache = rediscache.NewPageCache(client, cfg.CacheTTL)
		processed = pkgkafka.NewRedisIdempotencyStore(client, "vingo:reviews:processed:", processedEventTTL)
		logger.Info("redis review cache enabled", slog.String("addr", cfg.RedisAddr), slog.Duration("ttl", cfg.CacheTTL))
	} else {
		processed = pkgkafka.NewMemoryIdempotencyStore(processedEventTTL)
	}

	// Kafka producer.
	var events service.EventPublisher = event.Noop{}
	if cfg.KafkaEnabled() {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.addCloser("kafka producer", func(context.Context) error { return producer.Close() })
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		events = event.NewProducer(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("KAFKA_BROKERS not set; review events are not published")
	}

	// Build the dependency graph.
	eligibility := service.NewEligibilityChecker(orders, st.reviews)
	aggregator := service.NewRatingAggregator(st.reviews, st.items, events, logger)
	reviewService := service.NewReviewService(st.reviews, eligibility, aggregator, st.authors, pageCache, events, logger)
	queryService := service.NewReviewQueryService(st.reviews, st.authors, pageCache, logger)

	if cfg.KafkaEnabled() && cfg.RatingRepairEnabled {
		dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.addCloser("kafka dlq producer", func(context.Context) error { return dlq.Close() })
		a.consumer = newRepairConsumer(cfg, aggregator, processed, dlq, logger)
		a.addCloser("kafka consumer", func(context.Context) error { return a.consumer.Close() })
	}

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RequestTimeout: cfg.HTTPRequestTimeout,
		WriteRPS:       cfg.WriteRateLimitRPS,
		WriteBurst:     cfg.WriteRateLimitBurst,
		Auth:           authMiddleware(cfg, logger),
	}, reviewService, queryService, eligibility, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

func newRepairConsumer(
	cfg *config.Config,
	aggregator *service.RatingAggregator,
	processed pkgkafka.IdempotencyStore,
	dlq *pkgkafka.DLQProducer,
	logger *slog.Logger,
) *pkgkafka.Consumer {
	repair := event.NewRatingRepairConsumer(aggregator, logger)
	consumerCfg := pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaConsumerGroup,
		Topics:   event.ReviewTopics(),
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
		DLQ:      dlq,
	}

	logger.Info("rating repair consumer initialized",
		slog.String("group", consumerCfg.GroupID),
		slog.Any("topics", consumerCfg.Topics),
	)
	return pkgkafka.NewConsumer(consumerCfg, pkgkafka.IdempotentHandler(processed, repair.Handle, logger), logger)
}

func authMiddleware(cfg *config.Config, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.AuthTrustGateway || cfg.JWTSecret == "" {
		if !cfg.AuthTrustGateway {
			logger.Warn("JWT_SECRET not set; trusting gateway identity headers")
		}
		return middleware.GatewayAuth()
	}
	return middleware.Auth(middleware.JWTValidator(cfg.JWTSecret, cfg.JWTIssuer))
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run starts the HTTP server and the repair consumer, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components: HTTP first, then the consumer,
// producers and stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	errs = append(errs, a.closeAllWith(shutdownCtx))

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.closeAllWith(ctx)
}

func (a *App) closeAllWith(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Error("close error", slog.String("component", c.name), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

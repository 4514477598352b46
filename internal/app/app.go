package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/JLTC3111/Quyenhair/internal/auth"
	"github.com/JLTC3111/Quyenhair/internal/config"
	"github.com/JLTC3111/Quyenhair/internal/event"
	handler "github.com/JLTC3111/Quyenhair/internal/handler/http"
	"github.com/JLTC3111/Quyenhair/internal/repository"
	"github.com/JLTC3111/Quyenhair/internal/repository/postgres"
	rediscache "github.com/JLTC3111/Quyenhair/internal/repository/redis"
	"github.com/JLTC3111/Quyenhair/internal/service"
	"github.com/JLTC3111/Quyenhair/migrations"
	"github.com/JLTC3111/Quyenhair/pkg/database"
	"github.com/JLTC3111/Quyenhair/pkg/health"
	pkgkafka "github.com/JLTC3111/Quyenhair/pkg/kafka"
	"github.com/JLTC3111/Quyenhair/pkg/middleware"
	"github.com/JLTC3111/Quyenhair/pkg/tracing"
)

// App wires together all dependencies and runs the review API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.closeClients()
		}
	}()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	if err := database.RegisterPoolMetrics(reg, pool, config.ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	if cfg.SlowQuery > 0 {
		database.SetSlowQueryLogging(cfg.SlowQuery, logger)
	}

	// Run database migrations.
	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// Redis is optional; without it statistics are computed on every request.
	var statsCache repository.StatsCache
	if cfg.RedisEnabled() {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("redis unavailable, statistics cache disabled", slog.String("error", err.Error()))
		} else {
			a.redis = client
			statsCache = rediscache.NewStatsCache(client, cfg.StatsCacheTTL)
			healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
			logger.Info("statistics cache enabled", slog.Duration("ttl", cfg.StatsCacheTTL))
		}
	}

	// Kafka is optional; without brokers events are dropped.
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(
			pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers),
			pkgkafka.NewProducerMetrics(reg),
			logger,
		)
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	eventProducer := event.NewProducer(a.producer, logger)

	reviewService := service.NewReviewService(
		postgres.NewReviewRepository(pool),
		statsCache,
		eventProducer,
		service.NewMetrics(reg),
		service.ReviewOptions{AutoApprove: cfg.AutoApproveReviews},
		logger,
	)
	userService := service.NewUserService(
		postgres.NewUserRepository(pool),
		postgres.NewRefreshTokenRepository(pool),
		jwtManager,
		logger,
	)
	bookingService := service.NewBookingService(postgres.NewBookingRepository(pool), eventProducer, logger)

	httpMetrics, err := middleware.NewHTTPMetrics(reg, config.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}
	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	}

	// HTTP router.
	router := handler.NewRouter(handler.Services{
		Reviews:  reviewService,
		Users:    userService,
		Bookings: bookingService,
		Health:   healthHandler,
		Tokens:   jwtManager.Validator(),
	}, handler.RouterConfig{
		ServiceName:       config.ServiceName,
		CORS:              middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins...),
		PprofCIDRs:        cfg.PprofAllowedCIDRs,
		RateLimiter:       a.limiter,
		Metrics:           httpMetrics,
		Gatherer:          reg,
		PublicMaxAge:      cfg.PublicCacheMaxAge,
		RequestTimeout:    cfg.RequestTimeout,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ok = true
	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if a.limiter != nil {
		go a.limiter.Run(ctx)
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: the HTTP server first so
// in-flight requests drain, then the tracer, Kafka, Redis and PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeClients()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeClients() []error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}

// Package reviewctl is the command line front end of the review engine.
package reviewctl

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JLTC3111/Quyenhair/internal/engine"
	"github.com/JLTC3111/Quyenhair/internal/engine/filestore"
	"github.com/JLTC3111/Quyenhair/internal/engine/redisstore"
	"github.com/JLTC3111/Quyenhair/internal/engine/remote"
	"github.com/JLTC3111/Quyenhair/pkg/database"
	"github.com/JLTC3111/Quyenhair/pkg/httpclient"
)

// App is the application context shared by every command. It is built once
// by NewApp and released with Close.
type App struct {
	cfg    *Config
	logger *slog.Logger
	out    io.Writer

	engine *engine.Engine
	remote *remote.Client
	redis  *goredis.Client

	unsubscribe func()
}

// NewApp opens the configured store, loads the local reviews and prepares
// the API client. Output of commands goes to out.
func NewApp(ctx context.Context, cfg *Config, logger *slog.Logger, out io.Writer) (*App, error) {
	a := &App{cfg: cfg, logger: logger, out: out}

	var store engine.Store
	switch cfg.Store {
	case StoreRedis:
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		store = redisstore.New(client, cfg.RedisKey, cfg.RedisTTL)
	case StoreMemory:
		store = engine.NewMemoryStore()
	default:
		store = filestore.New(cfg.FilePath)
	}

	a.engine = engine.New(store, engine.WithLogger(logger))
	a.unsubscribe = a.engine.Subscribe(func(ev engine.Event) {
		attrs := []any{
			slog.String("event", string(ev.Kind)),
			slog.Int("total_reviews", ev.Stats.TotalReviews),
			slog.Float64("average_rating", ev.Stats.AverageRating),
		}
		if ev.Review != nil {
			attrs = append(attrs, slog.Int64("review_id", ev.Review.ID))
		}
		logger.Debug("reviews changed", attrs...)
	})
	if err := a.engine.Load(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.remote = remote.NewWithBreaker(cfg.APIURL, cfg.HTTPClient(),
		httpclient.DefaultCircuitBreakerConfig("review-api"), logger)

	return a, nil
}

// Engine returns the local review engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Close releases the store connection.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}

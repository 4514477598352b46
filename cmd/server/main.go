// Command server runs the salon review API: review storage, moderation,
// rating statistics and the booking confirmations that unlock reviews.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JLTC3111/Quyenhair/internal/app"
	"github.com/JLTC3111/Quyenhair/internal/config"
	"github.com/JLTC3111/Quyenhair/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.Error("review api exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(config.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)

	a, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	log.Info("review api starting",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.Bool("auto_approve", cfg.AutoApproveReviews),
	)
	if err := a.Run(ctx); err != nil {
		return err
	}
	log.Info("review api stopped")
	return nil
}

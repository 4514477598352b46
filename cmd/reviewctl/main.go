package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JLTC3111/Quyenhair/internal/reviewctl"
	"github.com/JLTC3111/Quyenhair/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "reviewctl:", err)
		if errors.Is(err, reviewctl.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := reviewctl.LoadConfig(".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Diagnostics go to stderr so command output stays pipeable.
	log := logger.NewText(cfg.LogLevel, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := reviewctl.NewApp(ctx, cfg, log, os.Stdout)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			log.Warn("close failed", slog.String("error", cerr.Error()))
		}
	}()

	return app.Run(ctx, args)
}

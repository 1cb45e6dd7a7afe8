package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	notifierapp "github.com/magabrotheeeer/profile-sales-bot/internal/app/notifier"
	"github.com/magabrotheeeer/profile-sales-bot/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting notifier", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := notifierapp.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("notifier stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("notifier stopped gracefully")
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"accounts_service/internal/config"
	sl "accounts_service/internal/lib/logger"
	"accounts_service/internal/mailsender"
	"accounts_service/internal/rabbitmq"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoadMailSender()
	log := setupLogger(cfg.Env)

	log.Info("starting mail sender",
		slog.String("env", cfg.Env),
		slog.String("provider", cfg.Email.Provider),
	)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("mail sender stopped", sl.Err(err))
		os.Exit(1)
	}

	log.Info("mail sender stopped")
}

func run(ctx context.Context, cfg *config.MailSender, log *slog.Logger) error {
	sender, err := mailsender.New(cfg.Email)
	if err != nil {
		return err
	}

	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		return err
	}
	defer r.Close()

	handler := mailsender.NewHandler(log, sender)

	log.Info("consumer started", slog.String("queue", cfg.RabbitMQ.QueueName))

	return r.StartReading(ctx, handler.Handle)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

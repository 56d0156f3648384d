// Command auditlog consumes application events from RabbitMQ and appends
// them to a log file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/recruitment-api/internal/logger"
	"github.com/iliyamo/recruitment-api/internal/queue"
)

func main() {
	_ = godotenv.Load()
	log := logger.Init(os.Getenv("APP_ENV"))

	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	if url == "" {
		log.Error("RABBITMQ_URL or AMQP_URL is required")
		os.Exit(1)
	}
	path := os.Getenv("AUDIT_LOG_PATH")
	if path == "" {
		path = "logs/applications.log"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.AuditConsumer{URL: url, LogPath: path}
	log.Info("audit consumer started", slog.String("log_path", path))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("audit consumer stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

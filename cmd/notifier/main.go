package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/config"
	kafkax "github.com/eventure/ticketing/internal/kafka"
	"github.com/eventure/ticketing/internal/logger"
	"github.com/eventure/ticketing/internal/mail"
	"github.com/eventure/ticketing/internal/notifier"
	"github.com/eventure/ticketing/internal/postgres"
	"github.com/eventure/ticketing/internal/redisx"
	"github.com/eventure/ticketing/internal/ticketing"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := notifier.New(
		&catalog.Repo{DB: db},
		&redisx.Deduper{R: rdb, TTL: redisx.TTLDedup},
		mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom),
		log,
	)

	consumer := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, ticketing.TopicScheduleUpdated, cfg.NotifierWorkers)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		cancel()
	}()

	log.Info("notifier consuming", "topic", ticketing.TopicScheduleUpdated, "group", cfg.NotifierGroup)
	if err := consumer.Start(ctx, svc.Handle); err != nil {
		log.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
}

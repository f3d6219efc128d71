package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eventure/ticketing/internal/catalog"
	"github.com/eventure/ticketing/internal/config"
	"github.com/eventure/ticketing/internal/httpx"
	"github.com/eventure/ticketing/internal/identity"
	kafkax "github.com/eventure/ticketing/internal/kafka"
	"github.com/eventure/ticketing/internal/logger"
	"github.com/eventure/ticketing/internal/mail"
	"github.com/eventure/ticketing/internal/payment"
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

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "error", err)
		os.Exit(1)
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	orderProducer := kafkax.NewProducer(cfg.KafkaBrokers, ticketing.TopicOrderEvents, 1024)
	orderProducer.Start(ctx)
	scheduleProducer := kafkax.NewProducer(cfg.KafkaBrokers, ticketing.TopicScheduleUpdated, 256)
	scheduleProducer.Start(ctx)

	checkout := payment.NewStripeCheckout(cfg.StripeSecretKey)
	mailer := mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)

	engine := ticketing.NewEngine(
		&ticketing.Repo{DB: db},
		checkout,
		mailer,
		orderProducer,
		ticketing.Config{
			Currency:    cfg.Currency,
			SuccessURL:  cfg.SuccessURL(),
			CancelURL:   cfg.CancelURL(),
			ServiceName: cfg.ServiceName,
		},
		log,
	)

	users := &identity.Service{
		Store:    &identity.Repo{DB: db},
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.JWTTTL,
	}
	catalogRepo := &catalog.Repo{DB: db}

	router := httpx.NewRouter([]byte(cfg.JWTSecret), httpx.Handlers{
		Auth:    &httpx.AuthHandler{Users: users},
		Users:   &httpx.UsersHandler{Users: users, Events: catalogRepo, Workflow: engine},
		Events:  &httpx.EventsHandler{Catalog: catalogRepo, Producer: scheduleProducer, Service: cfg.ServiceName},
		Tickets: &httpx.TicketsHandler{Workflow: engine, Catalog: catalogRepo, Redis: rdb},
		Admin:   &httpx.AdminHandler{Users: users, Catalog: catalogRepo},
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	orderProducer.Close()
	scheduleProducer.Close()
	cancel()
	orderProducer.WaitClosed()
	scheduleProducer.WaitClosed()
}

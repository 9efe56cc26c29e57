package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/bootstrap"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/fanout"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/idgen"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/worker"
	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "pentutor-worker",
	})
	logger := pkglog.L()

	if cfg.Redis.Address == "" {
		logger.Fatal().Msg("worker requires redis.address")
	}
	if cfg.Server.InstanceID == "" {
		cfg.Server.InstanceID = "worker-" + idgen.SessionID()
	}
	if cfg.PubSub.Kafka.InstanceID == "" {
		cfg.PubSub.Kafka.InstanceID = cfg.Server.InstanceID
	}

	db, err := bootstrap.OpenDatabase(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}

	redisClient, err := bootstrap.OpenRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	// Publish-only: alerts reach live sessions through the servers' fan-out
	broker, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create pubsub")
	}
	defer broker.Close()
	if cfg.PubSub.Driver == "" || cfg.PubSub.Driver == "memory" {
		logger.Warn().Msg("pubsub driver is memory, alerts are stored but not pushed to live sessions")
	}
	publisher := fanout.New(broker, nil, cfg.Server.InstanceID)

	alertService := service.NewAlertService(
		repository.NewGormAlertRepository(db),
		repository.NewGormMeetingRepository(db),
		bootstrap.NewActivityStore(cfg, redisClient),
		publisher,
		cfg.Alerts,
	)

	redisOpt := bootstrap.AsynqRedisOpt(cfg)
	workerServer := worker.NewWorkerServer(redisOpt, cfg.Worker.Concurrency, alertService)
	scheduler, err := worker.NewScheduler(redisOpt, cfg.Worker.InactivityCron)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create scheduler")
	}

	go func() {
		if err := workerServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("could not run worker server")
		}
	}()
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("could not start scheduler")
	}

	// Health check
	healthAddr := fmt.Sprintf(":%d", cfg.Worker.HealthCheckPort)
	healthSrv := &http.Server{
		Addr: healthAddr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		}),
	}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server error")
		}
	}()
	logger.Info().Str("health_addr", healthAddr).Msg("pentutor-worker started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down pentutor-worker")
	scheduler.Shutdown()
	workerServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	healthSrv.Shutdown(shutdownCtx)

	logger.Info().Msg("pentutor-worker stopped")
}

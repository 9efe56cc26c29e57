package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/bootstrap"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/export"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/fanout"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/grpcserver"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/handler"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/hub"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/idgen"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/kafka"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/jwt"
	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/middleware"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/pubsub"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/storage"
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
		ServiceName: "pentutor-rooms",
	})
	logger := pkglog.L()

	if cfg.Server.InstanceID == "" {
		cfg.Server.InstanceID = idgen.SessionID()
	}
	if cfg.PubSub.Kafka.InstanceID == "" {
		cfg.PubSub.Kafka.InstanceID = cfg.Server.InstanceID
	}
	logger = logger.With().Str("instance_id", cfg.Server.InstanceID).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Relational store
	db, err := bootstrap.OpenDatabase(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// Shared Redis, optional
	redisClient, err := bootstrap.OpenRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis connected")
	}

	// Broker
	broker, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create pubsub")
	}
	defer broker.Close()

	// Room registry
	reg, err := bootstrap.NewRegistry(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create registry")
	}
	if rr, ok := reg.(*registry.RedisRegistry); ok {
		rr.StartHeartbeat(ctx)
	}
	defer reg.Close()

	// Object storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create storage")
	}

	// Hub and fan-out
	h := hub.NewHub(cfg.WebSocket)
	go h.Run()

	fo := fanout.New(broker, h, cfg.Server.InstanceID)
	if err := fo.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start fan-out")
	}

	// Repositories
	meetingRepo := repository.NewGormMeetingRepository(db)
	snapshotRepo := repository.NewGormSnapshotRepository(db)
	chatRepo := repository.NewGormChatRepository(db)
	alertRepo := repository.NewGormAlertRepository(db)

	// Services
	snapshotService := service.NewSnapshotService(snapshotRepo, meetingRepo,
		bootstrap.NewSnapshotCache(cfg, redisClient), cfg.Whiteboard.CacheTTL)

	exporter := export.NewWhiteboardExporter(snapshotService, store, cfg.Whiteboard.ExportPrefix)
	hooks := []service.MeetingHook{exporter}
	var producer *kafka.ConfluentProducer
	if cfg.Kafka.Brokers != "" {
		p, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, meeting events disabled")
		} else {
			producer = p
			hooks = append(hooks, producer)
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka producer started")
		}
	}

	meetingService := service.NewMeetingService(meetingRepo, fo, reg, cfg.Meeting, hooks...)
	roomService := service.NewRoomService(reg, h, fo, meetingService, meetingService)
	chatService := service.NewChatService(chatRepo, fo)
	alertService := service.NewAlertService(alertRepo, meetingRepo,
		bootstrap.NewActivityStore(cfg, redisClient), fo, cfg.Alerts)

	// Auth
	jwtManager, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessDuration, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Handlers
	httpHandler := handler.NewHandler(meetingService, chatService, alertService, exporter, cfg.Whiteboard.ExportURLTTL, authMiddleware)
	wsHandler := handler.NewWSHandler(h, roomService, meetingService, chatService, snapshotService, fo, authMiddleware)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler.NewRouter(httpHandler, wsHandler, logger),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// gRPC health
	healthServer := grpcserver.New(logger, 10*time.Second)
	healthServer.AddChecker("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if redisClient != nil {
		healthServer.AddChecker("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("pentutor-rooms listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info().Int("port", cfg.GRPC.Port).Msg("grpc health listening")
		if err := healthServer.Serve(gctx, cfg.GRPC.Port); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	// Wait for shutdown signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-gctx.Done():
		logger.Error().Msg("server failed, shutting down")
	}

	logger.Info().Msg("shutting down pentutor-rooms")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		cancel() // 1. stop fan-out and registry heartbeat
		<-fo.Done()

		h.Stop() // 2. close all WS clients, stop Hub.Run()

		meetingService.Stop() // 3. cancel grace period timers

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		healthServer.Stop()

		if producer != nil {
			producer.Close() // 4. flush meeting events
		}

		if err := g.Wait(); err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("pentutor-rooms stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}

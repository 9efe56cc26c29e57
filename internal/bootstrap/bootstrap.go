// Package bootstrap builds the infrastructure shared by the server and
// worker binaries from configuration.
package bootstrap

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/activity"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/cache"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/database"
)

// OpenDatabase connects and migrates the relational store.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return db, nil
}

// OpenRedis connects the shared Redis client. It returns nil, nil when no
// address is configured.
func OpenRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Address == "" {
		return nil, nil
	}
	return cache.NewRedisClient(cfg.Redis)
}

// AsynqRedisOpt is the asynq connection for the shared Redis.
func AsynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// NewRegistry picks the room registry backend.
func NewRegistry(cfg *config.Config, client *redis.Client) (registry.Registry, error) {
	switch cfg.Registry.Driver {
	case "", "memory":
		return registry.NewMemoryRegistry(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("registry driver redis requires redis.address")
		}
		return registry.NewRedisRegistry(client, registry.RedisConfig{
			Prefix:            cfg.Registry.Prefix,
			InstanceID:        cfg.Server.InstanceID,
			KeyTTL:            cfg.Registry.KeyTTL,
			HeartbeatInterval: cfg.Registry.HeartbeatInterval,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported registry driver: %s", cfg.Registry.Driver)
	}
}

// NewSnapshotCache uses Redis when available.
func NewSnapshotCache(cfg *config.Config, client *redis.Client) cache.SnapshotCache {
	if client == nil {
		return cache.NewMemorySnapshotCache(cfg.Whiteboard.CachePrefix)
	}
	return cache.NewRedisSnapshotCache(client, cfg.Whiteboard.CachePrefix)
}

// NewActivityStore uses Redis when available.
func NewActivityStore(cfg *config.Config, client *redis.Client) activity.Store {
	if client == nil {
		return activity.NewMemoryStore()
	}
	return activity.NewRedisStore(client, cfg.Alerts.ActivityTTL)
}

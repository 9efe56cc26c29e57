package config

import (
	"time"

	pkgconfig "github.com/saifiimuhammad/Pentutor-Backend/pkg/config"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/pubsub"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/storage"
)

type Config struct {
	Server     ServerConfig
	GRPC       GRPCConfig `mapstructure:"grpc"`
	WebSocket  WebSocketConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	PubSub     pubsub.Config
	Registry   RegistryConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Meeting    MeetingConfig
	Whiteboard WhiteboardConfig
	Storage    storage.Config
	Alerts     AlertsConfig
	Worker     WorkerConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host       string
	Port       int
	InstanceID string `mapstructure:"instance_id"`
}

type GRPCConfig struct {
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	TimeZone        string `mapstructure:"time_zone"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// RedisConfig is the shared Redis used for presence, caches and activity.
// Leaving Address empty keeps those concerns in process.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type RegistryConfig struct {
	Driver            string // memory, redis
	Prefix            string
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// KafkaConfig configures the meeting lifecycle event stream. An empty
// Brokers disables it.
type KafkaConfig struct {
	Brokers    string
	Topic      string
	Partitions int
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	Issuer         string
	AccessDuration time.Duration `mapstructure:"access_duration"`
}

type MeetingConfig struct {
	DisconnectGracePeriod  time.Duration `mapstructure:"disconnect_grace_period"`
	DefaultMaxParticipants int           `mapstructure:"default_max_participants"`
	PasswordCost           int           `mapstructure:"password_cost"`
	LockStripes            int           `mapstructure:"lock_stripes"`
}

type WhiteboardConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CachePrefix  string        `mapstructure:"cache_prefix"`
	ExportPrefix string        `mapstructure:"export_prefix"`
	ExportURLTTL time.Duration `mapstructure:"export_url_ttl"`
}

type AlertsConfig struct {
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold"`
	ActivityTTL         time.Duration `mapstructure:"activity_ttl"`
}

type WorkerConfig struct {
	Concurrency     int
	InactivityCron  string `mapstructure:"inactivity_cron"`
	HealthCheckPort int    `mapstructure:"health_check_port"`
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.instance_id", "")
	v.SetDefault("grpc.port", 9000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 1<<20)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "pentutor")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.time_zone", "UTC")
	v.SetDefault("database.file_path", "./data/pentutor.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("pubsub.driver", "memory")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.topic", "room-events")
	v.SetDefault("pubsub.kafka.group_id", "pentutor-rooms")
	v.SetDefault("pubsub.kafka.partitions", 8)
	v.SetDefault("registry.driver", "memory")
	v.SetDefault("registry.prefix", "pentutor:registry")
	v.SetDefault("registry.key_ttl", "90s")
	v.SetDefault("registry.heartbeat_interval", "30s")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "meeting-events")
	v.SetDefault("kafka.partitions", 4)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.access_duration", "1h")
	v.SetDefault("meeting.disconnect_grace_period", "2m")
	v.SetDefault("meeting.default_max_participants", 100)
	v.SetDefault("meeting.password_cost", 10)
	v.SetDefault("meeting.lock_stripes", 64)
	v.SetDefault("whiteboard.cache_ttl", "10m")
	v.SetDefault("whiteboard.cache_prefix", "pentutor:whiteboard")
	v.SetDefault("whiteboard.export_prefix", "whiteboards")
	v.SetDefault("whiteboard.export_url_ttl", "15m")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./data/storage")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("alerts.inactivity_threshold", "3m")
	v.SetDefault("alerts.activity_ttl", "1h")
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.inactivity_cron", "@every 1m")
	v.SetDefault("worker.health_check_port", 9001)
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.instance_id", "INSTANCE_ID")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.access_key_id", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "AWS_SECRET_ACCESS_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Registry.KeyTTL = pkgconfig.Duration(v, "registry.key_ttl", 90*time.Second)
	cfg.Registry.HeartbeatInterval = pkgconfig.Duration(v, "registry.heartbeat_interval", 30*time.Second)
	cfg.Auth.AccessDuration = pkgconfig.Duration(v, "auth.access_duration", time.Hour)
	cfg.Meeting.DisconnectGracePeriod = pkgconfig.Duration(v, "meeting.disconnect_grace_period", 2*time.Minute)
	cfg.Whiteboard.CacheTTL = pkgconfig.Duration(v, "whiteboard.cache_ttl", 10*time.Minute)
	cfg.Whiteboard.ExportURLTTL = pkgconfig.Duration(v, "whiteboard.export_url_ttl", 15*time.Minute)
	cfg.Alerts.InactivityThreshold = pkgconfig.Duration(v, "alerts.inactivity_threshold", 3*time.Minute)
	cfg.Alerts.ActivityTTL = pkgconfig.Duration(v, "alerts.activity_ttl", time.Hour)

	if cfg.PubSub.Kafka.InstanceID == "" {
		cfg.PubSub.Kafka.InstanceID = cfg.Server.InstanceID
	}

	return &cfg, nil
}

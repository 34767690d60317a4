package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Intake       IntakeConfig
	Chat         ChatConfig
	Bootstrap    BootstrapConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
}

// AuthConfig defines operator API token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig controls outbound delivery of lifecycle notifications.
type NotificationConfig struct {
	WebhookURL         string
	WebhookToken       string
	SendTimeoutSeconds int
	Concurrency        int
	RatePerSecond      float64
	QueueSize          int
	Workers            int
}

// IntakeConfig controls in-flight submission sessions.
type IntakeConfig struct {
	SessionTTLMinutes  int
	SweepIntervalSec   int
	LockTTLSeconds     int
	DistributedLocking bool
}

// ChatConfig configures the chat front-end boundary.
type ChatConfig struct {
	InboundSecret     string
	CatalogPath       string
	InboundRatePerMin int
}

// BootstrapConfig seeds state that has no in-band creation path.
type BootstrapConfig struct {
	AdminIDs []int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	adminIDs, err := parseIDList(os.Getenv("BOOTSTRAP_ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOTSTRAP_ADMIN_IDS: %w", err)
	}

	ratePerSecond, err := strconv.ParseFloat(getEnv("NOTIFY_RATE_PER_SECOND", "25"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_RATE_PER_SECOND: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "marketplace-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "marketplace:"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			WebhookURL:         getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookToken:       os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
			SendTimeoutSeconds: getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 10),
			Concurrency:        getEnvAsInt("NOTIFY_CONCURRENCY", 8),
			RatePerSecond:      ratePerSecond,
			QueueSize:          getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			Workers:            getEnvAsInt("NOTIFY_WORKERS", 2),
		},
		Intake: IntakeConfig{
			SessionTTLMinutes:  getEnvAsInt("INTAKE_SESSION_TTL_MINUTES", 30),
			SweepIntervalSec:   getEnvAsInt("INTAKE_SWEEP_INTERVAL_SECONDS", 60),
			LockTTLSeconds:     getEnvAsInt("INTAKE_LOCK_TTL_SECONDS", 10),
			DistributedLocking: getEnvAsBool("INTAKE_DISTRIBUTED_LOCKING", false),
		},
		Chat: ChatConfig{
			InboundSecret:     os.Getenv("CHAT_INBOUND_SECRET"),
			CatalogPath:       os.Getenv("CHAT_CATALOG_PATH"),
			InboundRatePerMin: getEnvAsInt("CHAT_INBOUND_RATE_PER_MINUTE", 600),
		},
		Bootstrap: BootstrapConfig{
			AdminIDs: adminIDs,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued operator tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// SendTimeout bounds a single outbound delivery.
func (n NotificationConfig) SendTimeout() time.Duration {
	if n.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.SendTimeoutSeconds) * time.Second
}

// SessionTTL is how long an untouched intake session survives.
func (i IntakeConfig) SessionTTL() time.Duration {
	if i.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(i.SessionTTLMinutes) * time.Minute
}

// SweepInterval is how often abandoned in-memory sessions are evicted.
func (i IntakeConfig) SweepInterval() time.Duration {
	if i.SweepIntervalSec <= 0 {
		return time.Minute
	}
	return time.Duration(i.SweepIntervalSec) * time.Second
}

// LockTTL bounds how long a distributed per-user lock may be held.
func (i IntakeConfig) LockTTL() time.Duration {
	if i.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(i.LockTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

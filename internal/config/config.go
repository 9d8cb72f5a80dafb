package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv         string
	DBPath         string
	DBDriver       string
	RedisAddr      string
	RedisKeyPrefix string
	GRPCPort       int
	MetricsPort    int
	// GRPCRateLimit is calls per second across all RPCs; 0 disables limiting.
	GRPCRateLimit float64
	GRPCRateBurst int

	ProfilesPath   string
	BatchCron      string
	BatchWorkers   int
	AccountTimeout time.Duration
	CacheTTL       time.Duration

	// Kafka ingestion is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
}

// Load reads the given dotenv files, if present, then the environment.
// Variables already set in the environment win over file values.
func Load(files ...string) *Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables. Unparseable
// values fall back to their defaults.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		DBPath:         getEnv("DB_PATH", "./data/health.db?_foreign_keys=on&_busy_timeout=5000"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "account-health:"),
		GRPCPort:       getInt("GRPC_PORT", 50051),
		MetricsPort:    getInt("METRICS_PORT", 9090),
		GRPCRateLimit:  getFloat("GRPC_RATE_LIMIT", 0),
		GRPCRateBurst:  getInt("GRPC_RATE_BURST", 50),
		ProfilesPath:   getEnv("PROFILES_PATH", "./configs/profiles.yaml"),
		BatchCron:      getEnv("BATCH_CRON", "0 0 2 * * *"),
		BatchWorkers:   getInt("BATCH_WORKERS", 8),
		AccountTimeout: getDuration("ACCOUNT_TIMEOUT", 10*time.Second),
		CacheTTL:       getDuration("CACHE_TTL", time.Minute),
		KafkaBrokers:   getList("KAFKA_BROKERS"),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "account-signals"),
		KafkaGroupID:   getEnv("KAFKA_GROUP_ID", "account-health"),
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("GRPC_PORT %d out of range", c.GRPCPort))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("METRICS_PORT %d out of range", c.MetricsPort))
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.GRPCPort {
		errs = append(errs, errors.New("METRICS_PORT must differ from GRPC_PORT"))
	}
	if c.BatchWorkers < 1 {
		errs = append(errs, fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.BatchWorkers))
	}
	if c.AccountTimeout <= 0 {
		errs = append(errs, errors.New("ACCOUNT_TIMEOUT must be positive"))
	}
	if len(c.KafkaBrokers) > 0 && (c.KafkaTopic == "" || c.KafkaGroupID == "") {
		errs = append(errs, errors.New("KAFKA_TOPIC and KAFKA_GROUP_ID are required with KAFKA_BROKERS"))
	}
	return errors.Join(errs...)
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

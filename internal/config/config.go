package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPolicyConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	LogLevel  string
	LogFormat string

	OTLPEndpoint      string
	OtelEnabled       bool
	OtelSamplingRatio float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SchedulerEnabled bool

	PublicRateLimitPerMinute int
	PublicRateLimitBurst     int

	Payment PaymentConfig
}

// PaymentConfig carries gateway credentials used by the payment adapters.
type PaymentConfig struct {
	Currency             string
	NativeWebhookSecret  string
	MidtransServerKey    string
	MidtransIsProduction bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:                  getenv("APP_SERVICE", "certihub"),
		AppVersion:               getenv("APP_VERSION", "0.1.0"),
		Environment:              environment,
		HTTPAddr:                 getenv("HTTP_ADDR", ":8080"),
		NodeID:                   getenvInt64("NODE_ID", 1),
		LogLevel:                 strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:                strings.ToLower(getenv("LOG_FORMAT", "json")),
		OTLPEndpoint:             getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelEnabled:              getenvBool("OTEL_ENABLED", false),
		OtelSamplingRatio:        getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		DBType:                   getenv("DATABASE_TYPE", "postgres"),
		DBHost:                   getenv("DATABASE_HOST", "localhost"),
		DBPort:                   getenv("DATABASE_PORT", "5432"),
		DBName:                   getenv("DATABASE_NAME", "certihub"),
		DBUser:                   getenv("DATABASE_USER", "postgres"),
		DBPassword:               getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:                getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:            int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:            int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime:        int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime:        int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBAutoMigrate:            getenvBool("DATABASE_AUTO_MIGRATE", true),
		RedisAddr:                strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:            getenv("REDIS_PASSWORD", ""),
		RedisDB:                  int(getenvInt64("REDIS_DB", 0)),
		SchedulerEnabled:         getenvBool("SCHEDULER_ENABLED", true),
		PublicRateLimitPerMinute: int(getenvInt64("RATE_LIMIT_PUBLIC_PER_MINUTE", 60)),
		PublicRateLimitBurst:     int(getenvInt64("RATE_LIMIT_PUBLIC_BURST", 20)),
		Payment: PaymentConfig{
			Currency:             strings.ToUpper(getenv("PAYMENT_CURRENCY", "IDR")),
			NativeWebhookSecret:  strings.TrimSpace(getenv("PAYMENT_WEBHOOK_SECRET", "")),
			MidtransServerKey:    strings.TrimSpace(getenv("MIDTRANS_SERVER_KEY", "")),
			MidtransIsProduction: getenvBool("MIDTRANS_PRODUCTION", false),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

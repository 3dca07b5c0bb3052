package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the replacement service
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	NATS        NATSConfig        `mapstructure:"nats"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Services    ServicesConfig    `mapstructure:"services"`
	Replacement ReplacementConfig `mapstructure:"replacement"`
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Host          string        `mapstructure:"host"`
	Port          string        `mapstructure:"port"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	OrderCacheTTL time.Duration `mapstructure:"order_cache_ttl"`
}

// Addr returns host:port, or "" when Redis is not configured
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres, mysql or sqlite
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"name"`
	SSLMode      string `mapstructure:"ssl_mode"`
	DSN          string `mapstructure:"dsn"` // sqlite only
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// SentryConfig holds Sentry error tracking configuration
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
	Release     string `mapstructure:"release"`
}

// ServicesConfig holds URLs for the order system and the refund system
type ServicesConfig struct {
	OrderURL  string        `mapstructure:"order_url"`
	RefundURL string        `mapstructure:"refund_url"` // empty when the refund system is not installed
	Timeout   time.Duration `mapstructure:"timeout"`
	// OrderPageSize is the page size used when listing a customer's orders
	OrderPageSize int `mapstructure:"order_page_size"`
}

// ReplacementConfig holds replacement request rules
type ReplacementConfig struct {
	WindowDays   int    `mapstructure:"window_days"`
	OrdersURL    string `mapstructure:"orders_url"`
	RefundStatus string `mapstructure:"refund_status"`
	SubmitRPS    int    `mapstructure:"submit_rps"`
	SubmitBurst  int    `mapstructure:"submit_burst"`
}

// Window returns the replacement window as a duration
func (r ReplacementConfig) Window() time.Duration {
	return time.Duration(r.WindowDays) * 24 * time.Hour
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Automatically load environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("") // No prefix, read exact variable names

	// Bind specific environment variables
	_ = v.BindEnv("app.name", "APP_NAME")
	_ = v.BindEnv("app.env", "APP_ENV")
	_ = v.BindEnv("app.port", "APP_PORT")

	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("database.ssl_mode", "DB_SSLMODE")
	_ = v.BindEnv("database.dsn", "DB_DSN")
	_ = v.BindEnv("database.max_open_conns", "DB_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.max_idle_conns", "DB_MAX_IDLE_CONNS")

	_ = v.BindEnv("nats.url", "NATS_URL")

	// Redis
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("redis.order_cache_ttl", "REDIS_ORDER_CACHE_TTL")

	_ = v.BindEnv("jwt.secret", "JWT_SECRET")

	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")
	_ = v.BindEnv("sentry.environment", "APP_ENV")
	_ = v.BindEnv("sentry.release", "APP_VERSION")

	// Services
	_ = v.BindEnv("services.order_url", "SERVICE_ORDER_URL")
	_ = v.BindEnv("services.refund_url", "SERVICE_REFUND_URL")
	_ = v.BindEnv("services.timeout", "SERVICE_TIMEOUT")
	_ = v.BindEnv("services.order_page_size", "SERVICE_ORDER_PAGE_SIZE")

	// Replacement rules
	_ = v.BindEnv("replacement.window_days", "REPLACEMENT_WINDOW_DAYS")
	_ = v.BindEnv("replacement.orders_url", "REPLACEMENT_ORDERS_URL")
	_ = v.BindEnv("replacement.refund_status", "REPLACEMENT_REFUND_STATUS")
	_ = v.BindEnv("replacement.submit_rps", "REPLACEMENT_SUBMIT_RPS")
	_ = v.BindEnv("replacement.submit_burst", "REPLACEMENT_SUBMIT_BURST")

	// Set defaults
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Replacement.WindowDays <= 0 {
		return nil, fmt.Errorf("replacement window must be positive, got %d days", config.Replacement.WindowDays)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "service-replacement")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8012")

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	// NATS
	v.SetDefault("nats.url", "nats://localhost:4222")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.order_cache_ttl", "2m")

	// Services
	v.SetDefault("services.order_url", "http://localhost:8005")
	v.SetDefault("services.refund_url", "")
	v.SetDefault("services.timeout", "15s")
	v.SetDefault("services.order_page_size", 50)

	// Replacement rules
	v.SetDefault("replacement.window_days", 7)
	v.SetDefault("replacement.orders_url", "/my-account/orders")
	v.SetDefault("replacement.refund_status", "ywcars-pending")
	v.SetDefault("replacement.submit_rps", 1)
	v.SetDefault("replacement.submit_burst", 5)

	// Sentry
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.release", "1.0.0")
}

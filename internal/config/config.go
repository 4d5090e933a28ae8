package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Hot  RedisInstanceConfig `mapstructure:"hot"`
	Warm RedisInstanceConfig `mapstructure:"warm"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		FeedbackIngested string `mapstructure:"feedback_ingested"`
		PriorityUpdated  string `mapstructure:"priority_updated"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds how many mutating calls one operator can make per
// window. Reads are not limited.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScoringConfig tunes the priority scoring engine. The default weights only
// apply until a weight config has been activated through the API.
type ScoringConfig struct {
	DefaultWeights    WeightDefaults `mapstructure:"default_weights"`
	MaxEvidence       int            `mapstructure:"max_evidence"`
	EvidenceQuoteLen  int            `mapstructure:"evidence_quote_len"`
	RecentWindowDays  int            `mapstructure:"recent_window_days"`
	WorkerPoolSize    int            `mapstructure:"worker_pool_size"`
	PreviewSampleSize int            `mapstructure:"preview_sample_size"`
	PriorityCacheTTL  time.Duration  `mapstructure:"priority_cache_ttl"`
	TypicalEnrollment int            `mapstructure:"typical_enrollment"`
	AdequateFeedback  int            `mapstructure:"adequate_feedback"`
}

type WeightDefaults struct {
	Impact    float64 `mapstructure:"impact"`
	Urgency   float64 `mapstructure:"urgency"`
	Effort    float64 `mapstructure:"effort"`
	Strategic float64 `mapstructure:"strategic"`
	Trend     float64 `mapstructure:"trend"`
}

type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RecomputeCron string `mapstructure:"recompute_cron"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.hot.max_retries", 3)
	viper.SetDefault("redis.hot.pool_size", 10)
	viper.SetDefault("redis.hot.timeout", "5s")
	viper.SetDefault("redis.warm.max_retries", 3)
	viper.SetDefault("redis.warm.pool_size", 5)
	viper.SetDefault("redis.warm.timeout", "10s")

	// Kafka defaults
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.topics.feedback_ingested", "feedback-ingested")
	viper.SetDefault("kafka.topics.priority_updated", "priority-updated")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.requests", 60)
	viper.SetDefault("auth.rate_limit.window", "1m")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Scoring defaults
	viper.SetDefault("scoring.default_weights.impact", 0.35)
	viper.SetDefault("scoring.default_weights.urgency", 0.30)
	viper.SetDefault("scoring.default_weights.effort", 0.20)
	viper.SetDefault("scoring.default_weights.strategic", 0.10)
	viper.SetDefault("scoring.default_weights.trend", 0.05)
	viper.SetDefault("scoring.max_evidence", 5)
	viper.SetDefault("scoring.evidence_quote_len", 150)
	viper.SetDefault("scoring.recent_window_days", 7)
	viper.SetDefault("scoring.worker_pool_size", 4)
	viper.SetDefault("scoring.preview_sample_size", 20)
	viper.SetDefault("scoring.priority_cache_ttl", "15m")
	viper.SetDefault("scoring.typical_enrollment", 30)
	viper.SetDefault("scoring.adequate_feedback", 10)

	// Scheduler defaults
	viper.SetDefault("scheduler.enabled", false)
	viper.SetDefault("scheduler.recompute_cron", "0 3 * * *")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}

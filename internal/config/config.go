package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Negotiation NegotiationConfig `mapstructure:"negotiation"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Security    SecurityConfig    `mapstructure:"security"`
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
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		MesoSelections string `mapstructure:"meso_selections"`
		Decisions      string `mapstructure:"decisions"`
	} `mapstructure:"topics"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	APIKeys   []string      `mapstructure:"api_keys"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NegotiationConfig carries the engine-wide tunables. Per-deal
// configuration (targets, weights, thresholds) arrives with each request;
// these are the constants behind scoring and learning.
type NegotiationConfig struct {
	Thresholds ThresholdDefaults `mapstructure:"thresholds"`
	Terms      TermsScaleConfig  `mapstructure:"payment_terms"`
	Learning   LearningConfig    `mapstructure:"learning"`
}

type ThresholdDefaults struct {
	Accept   float64 `mapstructure:"accept"`
	Escalate float64 `mapstructure:"escalate"`
	WalkAway float64 `mapstructure:"walkaway"`
}

// TermsScaleConfig fixes the payment-terms interpolation scale. Reference
// day counts map to default utilities; outside the reference range the
// utility moves by SlopePerDay per day, capped at Cap and floored at Floor.
type TermsScaleConfig struct {
	MinDays     int     `mapstructure:"min_days"`
	MaxDays     int     `mapstructure:"max_days"`
	SlopePerDay float64 `mapstructure:"slope_per_day"`
	Cap         float64 `mapstructure:"cap"`
	Floor       float64 `mapstructure:"floor"`
}

type LearningConfig struct {
	DecayFactor        float64 `mapstructure:"decay_factor"`
	BlendRate          float64 `mapstructure:"blend_rate"`
	BaseConfidence     float64 `mapstructure:"base_confidence"`
	ConfidencePerRound float64 `mapstructure:"confidence_per_round"`
	MaxConfidence      float64 `mapstructure:"max_confidence"`
	MaxMergeConfidence float64 `mapstructure:"max_merge_confidence"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	AdjustmentStrength float64 `mapstructure:"adjustment_strength"`
	HistoryLimit       int     `mapstructure:"history_limit"`
	MergeRecencyFactor float64 `mapstructure:"merge_recency_factor"`
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
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")
	viper.SetDefault("redis.profile_ttl", "1h")

	// Kafka defaults
	viper.SetDefault("kafka.topics.meso_selections", "meso-selections")
	viper.SetDefault("kafka.topics.decisions", "negotiation-decisions")
	viper.SetDefault("kafka.consumer_group", "negotiation-engine")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Threshold defaults
	viper.SetDefault("negotiation.thresholds.accept", 0.70)
	viper.SetDefault("negotiation.thresholds.escalate", 0.50)
	viper.SetDefault("negotiation.thresholds.walkaway", 0.30)

	// Payment-terms scale defaults
	viper.SetDefault("negotiation.payment_terms.min_days", 1)
	viper.SetDefault("negotiation.payment_terms.max_days", 120)
	viper.SetDefault("negotiation.payment_terms.slope_per_day", 0.01)
	viper.SetDefault("negotiation.payment_terms.cap", 1.0)
	viper.SetDefault("negotiation.payment_terms.floor", 0.1)

	// Learning defaults
	viper.SetDefault("negotiation.learning.decay_factor", 0.9)
	viper.SetDefault("negotiation.learning.blend_rate", 0.1)
	viper.SetDefault("negotiation.learning.base_confidence", 0.3)
	viper.SetDefault("negotiation.learning.confidence_per_round", 0.15)
	viper.SetDefault("negotiation.learning.max_confidence", 0.9)
	viper.SetDefault("negotiation.learning.max_merge_confidence", 0.95)
	viper.SetDefault("negotiation.learning.min_confidence", 0.3)
	viper.SetDefault("negotiation.learning.adjustment_strength", 0.3)
	viper.SetDefault("negotiation.learning.history_limit", 20)
	viper.SetDefault("negotiation.learning.merge_recency_factor", 0.9)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}

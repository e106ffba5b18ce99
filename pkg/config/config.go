package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the complete configuration for the application
type AppConfig struct {
	Environment string      `mapstructure:"environment"`
	LogLevel    string      `mapstructure:"log_level"`
	ServiceName string      `mapstructure:"service_name"`
	HTTP        HTTPConfig  `mapstructure:"http"`
	Store       StoreConfig `mapstructure:"store"`
	Redis       RedisConfig `mapstructure:"redis"`
	Kafka       KafkaConfig `mapstructure:"kafka"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type StoreConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnectAttempts int    `mapstructure:"connect_attempts"`
}

// RedisConfig enables the read cache when Addr is set
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	Key  string        `mapstructure:"key"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// KafkaConfig enables change events when Brokers is set
type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
}

var supportedDrivers = map[string]bool{
	"postgres": true,
	"mysql":    true,
	"sqlite":   true,
}

// Load loads configuration from file and environment variables
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	// Default values
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "playerd")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 20)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.connect_attempts", 5)
	v.SetDefault("redis.key", "playerstore:players")
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("kafka.publish_timeout", 10*time.Second)
	v.SetDefault("kafka.queue_size", 256)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Bind nested keys explicitly so Unmarshal picks them up from the environment
	v.BindEnv("service_name", "SERVICE_NAME")
	v.BindEnv("environment", "ENVIRONMENT")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("http.addr", "HTTP_ADDR")
	v.BindEnv("http.max_body_bytes", "HTTP_MAX_BODY_BYTES")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.dsn", "STORE_DSN")
	v.BindEnv("store.max_conns", "STORE_MAX_CONNS")
	v.BindEnv("store.min_conns", "STORE_MIN_CONNS")
	v.BindEnv("store.connect_attempts", "STORE_CONNECT_ATTEMPTS")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.key", "REDIS_KEY")
	v.BindEnv("redis.ttl", "REDIS_TTL")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("kafka.publish_timeout", "KAFKA_PUBLISH_TIMEOUT")
	v.BindEnv("kafka.queue_size", "KAFKA_QUEUE_SIZE")

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Brokers arrive as one comma-separated string from the environment
	brokers := v.GetString("kafka.brokers")
	if brokers != "" && len(config.Kafka.Brokers) <= 1 {
		config.Kafka.Brokers = strings.Split(brokers, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *AppConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if !supportedDrivers[c.Store.Driver] {
		return fmt.Errorf("store.driver %q is not one of postgres, mysql, sqlite", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("store.dsn is required")
	}
	if c.Store.MinConns > c.Store.MaxConns && c.Store.MaxConns > 0 {
		return errors.New("store.min_conns must not exceed store.max_conns")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when kafka.brokers is set")
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.PublishTimeout <= 0 || c.Kafka.QueueSize <= 0) {
		return errors.New("kafka.publish_timeout and kafka.queue_size must be positive")
	}
	if c.Redis.Addr != "" && c.Redis.Key == "" {
		return errors.New("redis.key is required when redis.addr is set")
	}
	return nil
}

// CacheEnabled reports whether a Redis read cache is configured
func (c *AppConfig) CacheEnabled() bool { return c.Redis.Addr != "" }

// EventsEnabled reports whether change events go to Kafka
func (c *AppConfig) EventsEnabled() bool { return len(c.Kafka.Brokers) > 0 }

// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Dictionary, Kafka, Redis, Postgres, Analytics, Client).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Admin      AdminConfig      `yaml:"admin"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Client     ClientConfig     `yaml:"client"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the verification server's listener settings.
// MaxConcurrentConns of 1 serves one connection at a time from the accept
// loop; larger values hand connections to a bounded pool of goroutines.
// ReadTimeout bounds reading the request line, counted from accept.
// WriteTimeout bounds each write of the response. Zero disables either.
type ServerConfig struct {
	Addr               string        `yaml:"addr"`
	PollInterval       time.Duration `yaml:"pollInterval"`
	MaxConcurrentConns int           `yaml:"maxConcurrentConns"`
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"`
}

// DictionaryConfig controls how each backing word list is indexed.
// FilterBits of 0 sizes the membership filter from the file's token count
// and FalsePositiveRate.
type DictionaryConfig struct {
	BaseDir           string   `yaml:"baseDir"`
	FilterBits        uint     `yaml:"filterBits"`
	FalsePositiveRate float64  `yaml:"falsePositiveRate"`
	HashAlgorithms    []string `yaml:"hashAlgorithms"`
	PresentCacheSize  int      `yaml:"presentCacheSize"`
	AbsentCacheSize   int      `yaml:"absentCacheSize"`
	Preload           []string `yaml:"preload"`
}

// AdminConfig controls the HTTP server exposing metrics, health and
// dictionary stats next to the TCP protocol listener.
type AdminConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	VerificationEvents string `yaml:"verificationEvents"`
}

// RedisConfig holds Redis connection parameters and the leaderboard key.
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	PoolSize       int    `yaml:"poolSize"`
	LeaderboardKey string `yaml:"leaderboardKey"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// AnalyticsConfig controls the event collector buffer and the analytics
// service's HTTP API.
type AnalyticsConfig struct {
	Port             int           `yaml:"port"`
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	TopN             int           `yaml:"topN"`
}

// ClientConfig controls the wordcheck batch client.
type ClientConfig struct {
	Addr              string        `yaml:"addr"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	DialTimeout       time.Duration `yaml:"dialTimeout"`
	MaxAttempts       int           `yaml:"maxAttempts"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values the verifier cannot run without.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.PollInterval <= 0 {
		return fmt.Errorf("server.pollInterval must be positive")
	}
	if c.Server.MaxConcurrentConns <= 0 {
		return fmt.Errorf("server.maxConcurrentConns must be positive")
	}
	if len(c.Dictionary.HashAlgorithms) == 0 {
		return fmt.Errorf("dictionary.hashAlgorithms must name at least one algorithm")
	}
	if c.Dictionary.FalsePositiveRate <= 0 || c.Dictionary.FalsePositiveRate >= 1 {
		return fmt.Errorf("dictionary.falsePositiveRate must be in (0, 1)")
	}
	if c.Dictionary.PresentCacheSize <= 0 || c.Dictionary.AbsentCacheSize <= 0 {
		return fmt.Errorf("dictionary cache sizes must be positive")
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":6000",
			PollInterval:       time.Second,
			MaxConcurrentConns: 1,
			ShutdownTimeout:    15 * time.Second,
		},
		Dictionary: DictionaryConfig{
			FalsePositiveRate: 0.01,
			HashAlgorithms:    []string{"SHA1", "MD5"},
			PresentCacheSize:  400,
			AbsentCacheSize:   100,
		},
		Admin: AdminConfig{
			Enabled: true,
			Port:    9090,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "word-verifier-group",
			Topics: KafkaTopics{
				VerificationEvents: "verification-events",
			},
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			PoolSize:       10,
			LeaderboardKey: "wordverifier:rejected",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wordverifier",
			User:            "wordverifier",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			Port:             8081,
			BufferSize:       10000,
			SnapshotInterval: time.Minute,
			TopN:             10,
		},
		Client: ClientConfig{
			Addr:              "localhost:6000",
			RequestsPerSecond: 50,
			Burst:             10,
			DialTimeout:       5 * time.Second,
			MaxAttempts:       3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvOverrides reads WV_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WV_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("WV_SERVER_MAX_CONCURRENT_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxConcurrentConns = n
		}
	}
	if v := os.Getenv("WV_DICTIONARY_BASE_DIR"); v != "" {
		cfg.Dictionary.BaseDir = v
	}
	if v := os.Getenv("WV_DICTIONARY_HASH_ALGORITHMS"); v != "" {
		cfg.Dictionary.HashAlgorithms = strings.Split(v, ",")
	}
	if v := os.Getenv("WV_DICTIONARY_PRELOAD"); v != "" {
		cfg.Dictionary.Preload = strings.Split(v, ",")
	}
	if v := os.Getenv("WV_ADMIN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Admin.Port = port
		}
	}
	if v := os.Getenv("WV_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("WV_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WV_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WV_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WV_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WV_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WV_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WV_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WV_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WV_CLIENT_ADDR"); v != "" {
		cfg.Client.Addr = v
	}
	if v := os.Getenv("WV_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WV_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

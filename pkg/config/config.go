// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Collection, Index, Search, Postgres, Kafka, Redis, etc.).
package config

import (
	"errors"
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
	Collection CollectionConfig `yaml:"collection"`
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Collection sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// CollectionConfig selects where the document collection is loaded from.
type CollectionConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
	Table  string `yaml:"table"`
}

// IndexConfig controls index construction.
type IndexConfig struct {
	PruneTopN    int `yaml:"pruneTopN"`
	ChampionK    int `yaml:"championK"`
	BuildWorkers int `yaml:"buildWorkers"`
}

// SearchConfig controls query execution limits, champion-list mode, and the
// snippet window.
type SearchConfig struct {
	DefaultLimit     int           `yaml:"defaultLimit"`
	MaxResults       int           `yaml:"maxResults"`
	UseChampionLists bool          `yaml:"useChampionLists"`
	QueryTimeout     time.Duration `yaml:"queryTimeout"`
	SnippetBefore    int           `yaml:"snippetBefore"`
	SnippetAfter     int           `yaml:"snippetAfter"`
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnalyticsConfig controls search/index event publishing.
type AnalyticsConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"bufferSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values and rejects invalid combinations.
func Load(path string) (*Config, error) {
	cfg := Default()
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
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Collection: CollectionConfig{
			Source: SourceFile,
			Path:   "data/IR_data_news_12k.json",
			Table:  "documents",
		},
		Index: IndexConfig{
			PruneTopN: 50,
			ChampionK: 10,
		},
		Search: SearchConfig{
			DefaultLimit:     10,
			MaxResults:       100,
			UseChampionLists: true,
			QueryTimeout:     2 * time.Second,
			SnippetBefore:    5,
			SnippetAfter:     6,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "newsrank",
			User:            "newsrank",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "newsrank-group",
			Topics: KafkaTopics{
				AnalyticsEvents: "newsrank-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Analytics: AnalyticsConfig{
			BufferSize: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Collection.Source {
	case SourceFile:
		if c.Collection.Path == "" {
			errs = append(errs, errors.New("collection.path is required for the file source"))
		}
	case SourcePostgres:
		if c.Collection.Table == "" {
			errs = append(errs, errors.New("collection.table is required for the postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("collection.source %q is not one of %q, %q", c.Collection.Source, SourceFile, SourcePostgres))
	}
	if c.Index.PruneTopN < 0 {
		errs = append(errs, fmt.Errorf("index.pruneTopN must not be negative, got %d", c.Index.PruneTopN))
	}
	if c.Index.ChampionK <= 0 {
		errs = append(errs, fmt.Errorf("index.championK must be positive, got %d", c.Index.ChampionK))
	}
	if c.Index.BuildWorkers < 0 {
		errs = append(errs, fmt.Errorf("index.buildWorkers must not be negative, got %d", c.Index.BuildWorkers))
	}
	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, fmt.Errorf("search.defaultLimit must be positive, got %d", c.Search.DefaultLimit))
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		errs = append(errs, fmt.Errorf("search.maxResults (%d) is below search.defaultLimit (%d)", c.Search.MaxResults, c.Search.DefaultLimit))
	}
	if c.Search.SnippetBefore < 0 || c.Search.SnippetAfter < 0 {
		errs = append(errs, errors.New("search snippet window must not be negative"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides reads NR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NR_COLLECTION_SOURCE"); v != "" {
		cfg.Collection.Source = v
	}
	if v := os.Getenv("NR_COLLECTION_PATH"); v != "" {
		cfg.Collection.Path = v
	}
	if v := os.Getenv("NR_INDEX_PRUNE_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.PruneTopN = n
		}
	}
	if v := os.Getenv("NR_INDEX_CHAMPION_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Index.ChampionK = k
		}
	}
	if v := os.Getenv("NR_SEARCH_USE_CHAMPION_LISTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.UseChampionLists = b
		}
	}
	if v := os.Getenv("NR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("NR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("NR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("NR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("NR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("NR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("NR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("NR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("NR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/eventlog/internal/messaging"
)

// Sender backends.
const (
	BackendOpenSearch = "opensearch"
	BackendRedis      = "redis"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Indexer    IndexerConfig    `mapstructure:"indexer"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Sender     SenderConfig     `mapstructure:"sender"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Redis      RedisConfig      `mapstructure:"redis"`
	DLQ        DLQConfig        `mapstructure:"dlq"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type IndexerConfig struct {
	Host              string `mapstructure:"host"`
	Index             string `mapstructure:"index"`
	DocType           string `mapstructure:"doc_type"`
	TimestampProperty string `mapstructure:"timestamp_property"`
	Timezone          string `mapstructure:"timezone"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	Subjects      []string      `mapstructure:"subjects"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Queue         string        `mapstructure:"queue"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Token         string        `mapstructure:"token"`
}

type SenderConfig struct {
	Backend string `mapstructure:"backend"`
}

type OpenSearchConfig struct {
	URL             string `mapstructure:"url"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	TLSSkipVerify   bool   `mapstructure:"tls_skip_verify"`
	InstallTemplate bool   `mapstructure:"install_template"`
	ShardCount      int    `mapstructure:"shard_count"`
	ReplicaCount    int    `mapstructure:"replica_count"`
	RefreshInterval string `mapstructure:"refresh_interval"`
}

type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type DLQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Subject string `mapstructure:"subject"`
	Stream  string `mapstructure:"stream"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}

	// Set defaults
	v.SetDefault("server.port", 8095)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("indexer.host", hostname)
	v.SetDefault("indexer.index", "eventlog")
	v.SetDefault("indexer.doc_type", "event")
	v.SetDefault("indexer.timestamp_property", "timestamp")
	v.SetDefault("indexer.timezone", "UTC")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "eventlog")
	v.SetDefault("nats.subjects", []string{messaging.SubjectAllEvents})
	v.SetDefault("nats.subject_prefix", messaging.SubjectEventsPrefix)
	v.SetDefault("nats.queue", messaging.QueueIndexers)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.timeout", "5s")
	v.SetDefault("sender.backend", BackendOpenSearch)
	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.install_template", true)
	v.SetDefault("opensearch.shard_count", 1)
	v.SetDefault("opensearch.replica_count", 0)
	v.SetDefault("opensearch.refresh_interval", "5s")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.key_prefix", "eventlog:")
	v.SetDefault("dlq.enabled", false)
	v.SetDefault("dlq.subject", messaging.SubjectDeadLetter)
	v.SetDefault("dlq.stream", messaging.StreamDeadLetter)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/eventlog")
	}

	// Environment variables override, e.g. EVENTLOG_INDEXER_INDEX
	v.SetEnvPrefix("EVENTLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Indexer.Host == "" {
		errs = append(errs, errors.New("indexer.host is required"))
	}
	if c.Indexer.Index == "" {
		errs = append(errs, errors.New("indexer.index is required"))
	}
	if c.Indexer.DocType == "" {
		errs = append(errs, errors.New("indexer.doc_type is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if len(c.NATS.Subjects) == 0 {
		errs = append(errs, errors.New("nats.subjects must list at least one subject"))
	}

	switch c.Sender.Backend {
	case BackendOpenSearch:
		if c.OpenSearch.URL == "" {
			errs = append(errs, errors.New("opensearch.url is required"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("sender.backend %q is not one of %s, %s", c.Sender.Backend, BackendOpenSearch, BackendRedis))
	}

	if c.DLQ.Enabled && (c.DLQ.Subject == "" || c.DLQ.Stream == "") {
		errs = append(errs, errors.New("dlq.subject and dlq.stream are required when dlq is enabled"))
	}

	return errors.Join(errs...)
}

// Location loads the configured time zone. An empty zone is UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Indexer.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Indexer.Timezone)
	if err != nil {
		return nil, fmt.Errorf("indexer.timezone: %w", err)
	}
	return loc, nil
}

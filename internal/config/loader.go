package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/leakdex/leakdex/internal/utils"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")            // Current directory
		v.AddConfigPath("./configs")    // Project configs directory
		v.AddConfigPath("/etc/leakdex") // System-wide config
	}

	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("LEAKDEX")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5080)

	// Registry defaults
	v.SetDefault("registry.type", "etcd")
	v.SetDefault("registry.endpoints", []string{"http://localhost:2379"})
	v.SetDefault("registry.dial_timeout", "5s")

	// Cache defaults
	v.SetDefault("cache.snapshot_path", "./data/indices-cache.json")
	v.SetDefault("cache.probe_timeout", utils.ProbeTimeout.String())

	// Search defaults
	v.SetDefault("search.request_timeout", utils.RemoteCallTimeout.String())
	v.SetDefault("search.default_page_size", utils.DefaultPageSize)
	v.SetDefault("search.max_page_size", utils.MaxPageSize)
	v.SetDefault("search.username_mask_ratio", utils.DefaultUsernameMaskRatio)
	v.SetDefault("search.secret_mask_ratio", utils.DefaultSecretMaskRatio)
	v.SetDefault("search.min_visible", utils.DefaultMinVisible)

	// Ingest defaults
	v.SetDefault("ingest.unparsed_dir", "./data/unparsed")
	v.SetDefault("ingest.parsed_dir", "./data/parsed")
	v.SetDefault("ingest.batch_size", utils.DefaultBulkBatchSize)
	v.SetDefault("ingest.default_index", "accounts")

	// Queue defaults
	v.SetDefault("queue.type", "nats")
	v.SetDefault("queue.url", "nats://localhost:4222")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 5080,
		},
		Registry: RegistryConfig{
			Type:        "etcd",
			Endpoints:   []string{"http://localhost:2379"},
			DialTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			SnapshotPath: "./data/indices-cache.json",
			ProbeTimeout: utils.ProbeTimeout,
		},
		Search: SearchConfig{
			RequestTimeout:    utils.RemoteCallTimeout,
			DefaultPageSize:   utils.DefaultPageSize,
			MaxPageSize:       utils.MaxPageSize,
			UsernameMaskRatio: utils.DefaultUsernameMaskRatio,
			SecretMaskRatio:   utils.DefaultSecretMaskRatio,
			MinVisible:        utils.DefaultMinVisible,
		},
		Ingest: IngestConfig{
			UnparsedDir:  "./data/unparsed",
			ParsedDir:    "./data/parsed",
			BatchSize:    utils.DefaultBulkBatchSize,
			DefaultIndex: "accounts",
		},
		Queue: QueueConfig{
			Type: "nats",
			URL:  "nats://localhost:4222",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}

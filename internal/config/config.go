package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Search   SearchConfig   `mapstructure:"search"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
}

// RegistryConfig represents node registry configuration
type RegistryConfig struct {
	Type        string        `mapstructure:"type"`         // Registry backend: etcd (default), memory
	Endpoints   []string      `mapstructure:"endpoints"`    // etcd endpoints
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // etcd dial timeout
	Username    string        `mapstructure:"username"`     // Optional authentication
	Password    string        `mapstructure:"password"`     // Optional authentication
}

// CacheConfig represents index cache configuration
type CacheConfig struct {
	SnapshotPath string        `mapstructure:"snapshot_path"` // On-disk JSON snapshot location
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"` // TCP liveness probe timeout
}

// SearchConfig represents search aggregation and masking configuration
type SearchConfig struct {
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`     // Per-target search call timeout
	DefaultPageSize   int           `mapstructure:"default_page_size"`   // Page size when not requested
	MaxPageSize       int           `mapstructure:"max_page_size"`       // Hard cap on requested page size
	UsernameMaskRatio float64       `mapstructure:"username_mask_ratio"` // Masking ratio for usernames
	SecretMaskRatio   float64       `mapstructure:"secret_mask_ratio"`   // Masking ratio for urls and passwords
	MinVisible        int           `mapstructure:"min_visible"`         // Minimum visible characters after masking
}

// IngestConfig represents ingestion pipeline configuration
type IngestConfig struct {
	UnparsedDir  string `mapstructure:"unparsed_dir"`  // Directory scanned for raw dump files
	ParsedDir    string `mapstructure:"parsed_dir"`    // Directory files are moved to after indexing
	BatchSize    int    `mapstructure:"batch_size"`    // Lines per bulk index request
	DefaultNode  string `mapstructure:"default_node"`  // Target node when a request names none
	DefaultIndex string `mapstructure:"default_index"` // Target index when a request names none
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "leakdex")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "leakdex-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// AuthConfig represents admin authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search config: %w", err)
	}

	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	return nil
}

// Validate validates registry configuration
func (c *RegistryConfig) Validate() error {
	switch c.Type {
	case "etcd":
		if len(c.Endpoints) == 0 {
			return fmt.Errorf("registry.endpoints is required for etcd registry")
		}
		if c.DialTimeout <= 0 {
			return fmt.Errorf("registry.dial_timeout must be positive")
		}
	case "memory":
	default:
		return fmt.Errorf("registry.type must be 'etcd' or 'memory'")
	}

	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	if c.SnapshotPath == "" {
		return fmt.Errorf("cache.snapshot_path is required")
	}

	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("cache.probe_timeout must be positive")
	}

	return nil
}

// Validate validates search configuration
func (c *SearchConfig) Validate() error {
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("search.default_page_size must be at least 1")
	}

	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("search.max_page_size cannot be below search.default_page_size")
	}

	if c.UsernameMaskRatio < 0 || c.UsernameMaskRatio > 1 {
		return fmt.Errorf("search.username_mask_ratio must be between 0 and 1")
	}

	if c.SecretMaskRatio < 0 || c.SecretMaskRatio > 1 {
		return fmt.Errorf("search.secret_mask_ratio must be between 0 and 1")
	}

	if c.MinVisible < 0 {
		return fmt.Errorf("search.min_visible cannot be negative")
	}

	return nil
}

// Validate validates ingest configuration
func (c *IngestConfig) Validate() error {
	if c.UnparsedDir == "" {
		return fmt.Errorf("ingest.unparsed_dir is required")
	}

	if c.ParsedDir == "" {
		return fmt.Errorf("ingest.parsed_dir is required")
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("ingest.batch_size must be at least 1")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// RemoteCallTimeout is the default timeout for a single call to a search node
	RemoteCallTimeout = 10 * time.Second

	// ProbeTimeout bounds the TCP liveness probe so that a refresh over many
	// offline nodes stays fast
	ProbeTimeout = 500 * time.Millisecond

	// PingTimeout is the timeout for the protocol-level ping that follows a
	// successful TCP probe
	PingTimeout = 2 * time.Second

	// RegistryDialTimeout is the timeout for establishing the etcd connection
	RegistryDialTimeout = 5 * time.Second

	// RegistryOpTimeout is the timeout for individual registry operations
	RegistryOpTimeout = 5 * time.Second

	// TaskBodyTimeout caps a single long-running task body
	TaskBodyTimeout = 4 * time.Hour
)

// =============================================================================
// Batch and Page Size Constants
// =============================================================================

const (
	// DefaultBulkBatchSize is the number of lines sent per bulk index request
	DefaultBulkBatchSize = 1000

	// DeleteChunkSize is the number of ids deleted per bulk-delete chunk
	DeleteChunkSize = 1000

	// DefaultPageSize is the default search page size
	DefaultPageSize = 25

	// MaxPageSize is the maximum allowed search page size
	MaxPageSize = 500
)

// =============================================================================
// Masking Constants
// =============================================================================

const (
	// DefaultUsernameMaskRatio masks usernames lightly so results stay
	// recognizable to their owners
	DefaultUsernameMaskRatio = 0.4

	// DefaultSecretMaskRatio masks urls and passwords aggressively
	DefaultSecretMaskRatio = 0.7

	// DefaultMinVisible is the minimum number of characters left visible by
	// the masking transform
	DefaultMinVisible = 2
)

// =============================================================================
// Queue Constants
// =============================================================================

// QueueType represents the type of message queue backend
type QueueType string

const (
	// QueueTypeNATS represents a NATS queue (default)
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents a Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents an Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents an in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)

// Event subjects published on the queue.
const (
	// SubjectIngestCompleted is published when a multi-file ingest finishes;
	// subscribers refresh the index cache so new indices become visible
	SubjectIngestCompleted = "leakdex.ingest.completed"

	// SubjectTaskFailed is published when a task body terminates with an error
	SubjectTaskFailed = "leakdex.task.failed"

	// SubjectCacheRefreshed is published after every successful cache refresh
	SubjectCacheRefreshed = "leakdex.cache.refreshed"
)

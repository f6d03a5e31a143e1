// Package search provides the per-node client for the backing search engine.
// The engine is treated as an opaque remote service: every call can fail,
// time out, or find the node unreachable, and callers are expected to degrade
// rather than abort (see the cache and aggregator packages).
package search

import (
	"context"

	"github.com/leakdex/leakdex/internal/models"
)

// IndexStats is the per-index stats view of one node (primary shards only).
type IndexStats struct {
	DocCount  uint64
	StoreSize int64
}

// CatIndex is one row of the engine's cat-indices listing.
type CatIndex struct {
	Index  string
	Health string
}

// ShardAlloc is one row of the engine's cat-shards listing: which index has
// a shard physically allocated on which node.
type ShardAlloc struct {
	Index   string
	Node    string
	Primary bool
}

// Hit is one search hit: the opaque document id and the raw indexed line.
type Hit struct {
	ID         string
	Line       string
	SourceFile string
}

// Result is the outcome of a single-target search.
type Result struct {
	Total uint64
	Hits  []Hit
}

// DeleteResult reports bulk-delete outcomes. NotFound deletions are not
// errors: deleting something already gone is idempotent.
type DeleteResult struct {
	Deleted  int
	NotFound int
}

// Document is one line to index, with its deterministic id.
type Document struct {
	ID         string
	Line       string
	SourceFile string
}

// Client is the per-node connection to the search engine.
type Client interface {
	// Ping verifies the node answers at protocol level.
	Ping(ctx context.Context) error

	// Stats returns per-index document counts and store sizes.
	Stats(ctx context.Context) (map[string]IndexStats, error)

	// CatIndices returns the index listing with health.
	CatIndices(ctx context.Context) ([]CatIndex, error)

	// CatShards returns the shard allocation listing.
	CatShards(ctx context.Context) ([]ShardAlloc, error)

	// Search runs a paged query against one index.
	Search(ctx context.Context, index, query string, from, size int) (*Result, error)

	// Count returns the matched-document count for a query.
	Count(ctx context.Context, index, query string) (uint64, error)

	// Bulk indexes a batch of documents into one index.
	Bulk(ctx context.Context, index string, docs []Document) error

	// DeleteByIDs deletes documents by id, reporting deleted vs not-found.
	DeleteByIDs(ctx context.Context, index string, ids []string) (*DeleteResult, error)

	// CreateIndex creates an index.
	CreateIndex(ctx context.Context, name string) error

	// DeleteIndex deletes an index.
	DeleteIndex(ctx context.Context, name string) error
}

// Factory builds a Client for a node. The cache, aggregator and ingest
// pipeline take a Factory so tests can substitute fakes.
type Factory func(node models.Node) Client

// Package handlers contains the fiber HTTP handlers for the public search
// surface and the admin surface.
package handlers

import (
	"github.com/leakdex/leakdex/internal/aggregator"
	"github.com/leakdex/leakdex/internal/cache"
	"github.com/leakdex/leakdex/internal/ingest"
	"github.com/leakdex/leakdex/internal/logging"
	"github.com/leakdex/leakdex/internal/queue"
	"github.com/leakdex/leakdex/internal/registry"
	"github.com/leakdex/leakdex/internal/search"
	"github.com/leakdex/leakdex/internal/tasks"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger     *logging.Logger
	registry   registry.Store
	cache      *cache.Store
	aggregator *aggregator.Service
	tasks      *tasks.Registry
	ingest     *ingest.Service
	clients    search.Factory
	publisher  queue.Publisher
}

// New creates a new handler instance
func New(logger *logging.Logger, reg registry.Store, cacheStore *cache.Store,
	agg *aggregator.Service, taskReg *tasks.Registry, ingestSvc *ingest.Service,
	clients search.Factory, publisher queue.Publisher,
) *Handler {
	return &Handler{
		logger:     logger,
		registry:   reg,
		cache:      cacheStore,
		aggregator: agg,
		tasks:      taskReg,
		ingest:     ingestSvc,
		clients:    clients,
		publisher:  publisher,
	}
}

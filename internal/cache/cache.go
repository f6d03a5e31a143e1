// Package cache maintains the node-aware index cache: a point-in-time
// snapshot of which indices live on which search-engine nodes, with document
// counts, store sizes and health. The snapshot is refreshed explicitly (admin
// request or ingest-completed event), never implicitly on read, and is
// persisted to disk so restarts serve the last known picture immediately.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/leakdex/leakdex/internal/logging"
	"github.com/leakdex/leakdex/internal/models"
	"github.com/leakdex/leakdex/internal/registry"
	"github.com/leakdex/leakdex/internal/search"
	"github.com/leakdex/leakdex/internal/utils"
)

// Store holds the in-memory snapshot and coordinates refreshes.
type Store struct {
	registry     registry.Store
	clients      search.Factory
	path         string
	probeTimeout time.Duration
	logger       *logging.Logger

	mu       sync.RWMutex
	snapshot models.CacheSnapshot
	loaded   bool
}

// New creates a cache store. The snapshot is loaded lazily from path on the
// first read; a missing or unreadable file yields an empty snapshot.
func New(reg registry.Store, clients search.Factory, path string, probeTimeout time.Duration, logger *logging.Logger) *Store {
	if probeTimeout <= 0 {
		probeTimeout = utils.ProbeTimeout
	}
	return &Store{
		registry:     reg,
		clients:      clients,
		path:         path,
		probeTimeout: probeTimeout,
		logger:       logger.With("component", "index-cache"),
	}
}

// Get returns a copy of the current snapshot, optionally filtered to one
// node. Reading never triggers a refresh; staleness is visible through each
// entry's LastUpdated.
func (s *Store) Get(filterNode string) models.CacheSnapshot {
	s.mu.Lock()
	s.ensureLoadedLocked()
	snapshot := s.snapshot.Clone()
	s.mu.Unlock()

	if filterNode == "" {
		return snapshot
	}

	filtered := make(models.CacheSnapshot, 1)
	if entry, ok := snapshot[filterNode]; ok {
		filtered[filterNode] = entry
	}
	return filtered
}

// Remove drops one node's entry from the snapshot and persists the result.
// Selected indices that only resolved through that node are pruned.
func (s *Store) Remove(ctx context.Context, nodeName string) int {
	s.mu.Lock()
	s.ensureLoadedLocked()
	if _, ok := s.snapshot[nodeName]; ok {
		delete(s.snapshot, nodeName)
		if err := s.persistLocked(); err != nil {
			s.logger.Error("failed to persist cache after node removal", "node", nodeName, "error", err)
		}
	}
	snapshot := s.snapshot.Clone()
	s.mu.Unlock()

	return s.reconcile(ctx, snapshot)
}

// Refresh rebuilds the snapshot from the live state of every registered node,
// swaps it in, persists it, and prunes selected indices that no longer
// resolve. Nodes are refreshed concurrently and one node's failure never
// blocks the others. It returns the new snapshot and the number of pruned
// selected entries.
func (s *Store) Refresh(ctx context.Context) (models.CacheSnapshot, int, error) {
	nodes, err := s.registry.ListNodes(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list nodes for refresh: %w", err)
	}

	prior := s.Get("")

	type nodeResult struct {
		name  string
		entry *models.NodeCacheEntry
	}

	results := make(chan nodeResult, len(nodes))
	var wg sync.WaitGroup

	for _, node := range nodes {
		wg.Add(1)
		go func(node models.Node) {
			defer wg.Done()
			results <- nodeResult{
				name:  node.Name,
				entry: s.refreshNode(ctx, node, prior[node.Name]),
			}
		}(node)
	}

	wg.Wait()
	close(results)

	snapshot := make(models.CacheSnapshot, len(nodes))
	for res := range results {
		if res.entry == nil {
			// Node's on-disk paths are gone: evicted entirely.
			continue
		}
		snapshot[res.name] = *res.entry
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.loaded = true
	if err := s.persistLocked(); err != nil {
		// The in-memory snapshot is already swapped; a persist failure only
		// costs warm-start data.
		s.logger.Error("failed to persist cache snapshot", "path", s.path, "error", err)
	}
	s.mu.Unlock()

	pruned := s.reconcile(ctx, snapshot)

	s.logger.Info("index cache refreshed",
		"nodes", len(snapshot),
		"pruned_targets", pruned)

	return snapshot.Clone(), pruned, nil
}

// refreshNode builds the fresh entry for one node. A nil return means the
// node should be evicted from the snapshot.
func (s *Store) refreshNode(ctx context.Context, node models.Node, prior models.NodeCacheEntry) *models.NodeCacheEntry {
	if pathsMissing(node) {
		s.logger.Warn("node data paths missing, evicting from cache",
			"node", node.Name,
			"data_path", node.DataPath,
			"logs_path", node.LogsPath)
		return nil
	}

	client := s.clients(node)

	alive := Alive(node.Host, node.Port, s.probeTimeout)
	if alive {
		pingCtx, cancel := context.WithTimeout(ctx, utils.PingTimeout)
		err := client.Ping(pingCtx)
		cancel()
		if err != nil {
			s.logger.Warn("node port open but ping failed", "node", node.Name, "error", err)
			alive = false
		}
	}

	if !alive {
		return stoppedEntry(prior)
	}

	entry, err := s.fetchLiveEntry(ctx, node, client)
	if err != nil {
		s.logger.Warn("failed to fetch live node state, carrying forward",
			"node", node.Name, "error", err)
		return stoppedEntry(prior)
	}
	return entry
}

// fetchLiveEntry queries a live node and intersects its stats with shard
// allocation, so each node's entry lists only the indices it physically
// holds, with counts taken from its primary shards.
func (s *Store) fetchLiveEntry(ctx context.Context, node models.Node, client search.Client) (*models.NodeCacheEntry, error) {
	stats, err := client.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	catIndices, err := client.CatIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("cat indices: %w", err)
	}

	shards, err := client.CatShards(ctx)
	if err != nil {
		return nil, fmt.Errorf("cat shards: %w", err)
	}

	healthByIndex := make(map[string]string, len(catIndices))
	for _, ci := range catIndices {
		healthByIndex[ci.Index] = ci.Health
	}

	allocated := make(map[string]bool)
	for _, shard := range shards {
		if shard.Primary && shard.Node == node.Name {
			allocated[shard.Index] = true
		}
	}

	indices := make(map[string]models.IndexInfo, len(allocated))
	for index := range allocated {
		health, ok := healthByIndex[index]
		if !ok {
			health = models.HealthUnknown
		}
		info := models.IndexInfo{Health: health}
		if st, ok := stats[index]; ok {
			info.DocCount = st.DocCount
			info.StoreSize = st.StoreSize
		}
		indices[index] = info
	}

	return &models.NodeCacheEntry{
		Status:      models.NodeRunning,
		LastUpdated: time.Now().UTC(),
		Indices:     indices,
	}, nil
}

// stoppedEntry carries the prior entry forward with status flipped to
// stopped. LastUpdated is deliberately left alone: it marks the last time the
// data was actually observed.
func stoppedEntry(prior models.NodeCacheEntry) *models.NodeCacheEntry {
	entry := models.NodeCacheEntry{
		Status:      models.NodeStopped,
		LastUpdated: prior.LastUpdated,
		Indices:     prior.Indices,
	}
	if entry.Indices == nil {
		entry.Indices = map[string]models.IndexInfo{}
	}
	return &entry
}

// pathsMissing reports whether any configured on-disk path of the node no
// longer exists. Unconfigured paths are not checked.
func pathsMissing(node models.Node) bool {
	for _, path := range []string{node.DataPath, node.LogsPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return true
		}
	}
	return false
}

// reconcile prunes selected indices that no longer resolve against the
// snapshot, returning the number removed. Registry failures are logged and
// reported as zero pruned; the next refresh retries.
func (s *Store) reconcile(ctx context.Context, snapshot models.CacheSnapshot) int {
	selected, err := s.registry.GetSelectedIndices(ctx)
	if err != nil {
		s.logger.Error("failed to load selected indices for reconciliation", "error", err)
		return 0
	}

	kept := selected[:0]
	pruned := 0
	for _, si := range selected {
		if si.Resolves(snapshot) {
			kept = append(kept, si)
			continue
		}
		s.logger.Warn("pruning unresolvable search target", "node", si.Node, "index", si.Index)
		pruned++
	}

	if pruned == 0 {
		return 0
	}

	if err := s.registry.PutSelectedIndices(ctx, kept); err != nil {
		s.logger.Error("failed to store reconciled selected indices", "error", err)
		return 0
	}
	return pruned
}

// ensureLoadedLocked loads the persisted snapshot once. Callers hold s.mu.
func (s *Store) ensureLoadedLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.snapshot = models.CacheSnapshot{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read cache snapshot file", "path", s.path, "error", err)
		}
		return
	}

	var snapshot models.CacheSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Warn("ignoring corrupt cache snapshot file", "path", s.path, "error", err)
		return
	}
	s.snapshot = snapshot
}

// persistLocked writes the snapshot atomically via a temp file and rename.
// Callers hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".indices-cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

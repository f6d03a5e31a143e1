package models

import "time"

// Node lifecycle states as seen by the index cache.
const (
	NodeRunning = "running"
	NodeStopped = "stopped"
)

// Index health values, mirroring the search engine's cat-indices output.
const (
	HealthGreen   = "green"
	HealthYellow  = "yellow"
	HealthRed     = "red"
	HealthUnknown = "unknown"
)

// IndexInfo is the cached per-index view for one node. Counts and sizes come
// from the node's primary shards only, so replicated indices are not
// double-counted across nodes.
type IndexInfo struct {
	DocCount  uint64 `json:"doc_count"`
	StoreSize int64  `json:"store_size"`
	Health    string `json:"health"`
}

// NodeCacheEntry is the cached picture of one node. When a node is
// unreachable the previous Indices are carried forward verbatim and only
// Status flips to stopped, so clients always see the last known index list.
type NodeCacheEntry struct {
	Status string `json:"status"`
	// LastUpdated is the time of the last successful live fetch; it is not
	// advanced while stopped data is carried forward.
	LastUpdated time.Time            `json:"last_updated"`
	Indices     map[string]IndexInfo `json:"indices"`
}

// CacheSnapshot is the full node → entry picture at one point in time.
type CacheSnapshot map[string]NodeCacheEntry

// Clone returns a deep copy so callers can hold a snapshot while a refresh
// swaps the live one.
func (s CacheSnapshot) Clone() CacheSnapshot {
	out := make(CacheSnapshot, len(s))
	for name, entry := range s {
		indices := make(map[string]IndexInfo, len(entry.Indices))
		for idx, info := range entry.Indices {
			indices[idx] = info
		}
		entry.Indices = indices
		out[name] = entry
	}
	return out
}

// HasIndex reports whether the snapshot knows the given (node, index) pair.
func (s CacheSnapshot) HasIndex(node, index string) bool {
	entry, ok := s[node]
	if !ok {
		return false
	}
	_, ok = entry.Indices[index]
	return ok
}

// SelectedIndex is one entry of the configured public search surface. Node
// may be empty for legacy entries that name a bare index; those resolve to
// every node currently known to hold that index.
type SelectedIndex struct {
	Node  string `json:"node,omitempty"`
	Index string `json:"index"`
}

// Resolves reports whether the entry still corresponds to a real
// (node, index) pair in the snapshot.
func (si SelectedIndex) Resolves(s CacheSnapshot) bool {
	if si.Node != "" {
		return s.HasIndex(si.Node, si.Index)
	}
	for node := range s {
		if s.HasIndex(node, si.Index) {
			return true
		}
	}
	return false
}

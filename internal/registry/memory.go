package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/leakdex/leakdex/internal/models"
)

// MemoryStore implements Store with mutex-guarded maps. Useful for tests and
// single-box deployments without etcd.
type MemoryStore struct {
	mu       sync.RWMutex
	nodes    map[string]models.Node
	selected []models.SelectedIndex
}

// NewMemoryStore creates an empty in-memory registry store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]models.Node),
	}
}

// ListNodes returns all configured nodes sorted by name.
func (s *MemoryStore) ListNodes(ctx context.Context) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]models.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

// GetNode returns one node by name.
func (s *MemoryStore) GetNode(ctx context.Context, name string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	return &node, nil
}

// PutNode creates or replaces a node entry.
func (s *MemoryStore) PutNode(ctx context.Context, node models.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes[node.Name] = node
	return nil
}

// DeleteNode removes a node entry.
func (s *MemoryStore) DeleteNode(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}

	delete(s.nodes, name)
	return nil
}

// GetSelectedIndices returns the configured public search surface.
func (s *MemoryStore) GetSelectedIndices(ctx context.Context) ([]models.SelectedIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SelectedIndex, len(s.selected))
	copy(out, s.selected)
	return out, nil
}

// PutSelectedIndices replaces the configured public search surface.
func (s *MemoryStore) PutSelectedIndices(ctx context.Context, selected []models.SelectedIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = make([]models.SelectedIndex, len(selected))
	copy(s.selected, selected)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

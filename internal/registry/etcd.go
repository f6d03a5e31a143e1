package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/leakdex/leakdex/internal/models"
)

const (
	nodePrefix  = "/leakdex/nodes/"
	selectedKey = "/leakdex/search/selected"
)

// EtcdStore implements Store using etcd
type EtcdStore struct {
	client *clientv3.Client
}

// NewEtcdStore creates a new etcd-based registry store
func NewEtcdStore(endpoints []string, dialTimeout time.Duration) (*EtcdStore, error) {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &EtcdStore{client: client}, nil
}

// ListNodes returns all configured nodes sorted by name.
func (s *EtcdStore) ListNodes(ctx context.Context) ([]models.Node, error) {
	resp, err := s.client.Get(ctx, nodePrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes from etcd: %w", err)
	}

	nodes := make([]models.Node, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var node models.Node
		if err := json.Unmarshal(kv.Value, &node); err != nil {
			// Skip unreadable entries rather than failing the listing
			continue
		}
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

// GetNode returns one node by name.
func (s *EtcdStore) GetNode(ctx context.Context, name string) (*models.Node, error) {
	resp, err := s.client.Get(ctx, path.Join(nodePrefix, name))
	if err != nil {
		return nil, fmt.Errorf("failed to get node from etcd: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}

	var node models.Node
	if err := json.Unmarshal(resp.Kvs[0].Value, &node); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}

	return &node, nil
}

// PutNode creates or replaces a node entry.
func (s *EtcdStore) PutNode(ctx context.Context, node models.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to marshal node: %w", err)
	}

	if _, err := s.client.Put(ctx, path.Join(nodePrefix, node.Name), string(data)); err != nil {
		return fmt.Errorf("failed to store node in etcd: %w", err)
	}

	return nil
}

// DeleteNode removes a node entry.
func (s *EtcdStore) DeleteNode(ctx context.Context, name string) error {
	resp, err := s.client.Delete(ctx, path.Join(nodePrefix, name))
	if err != nil {
		return fmt.Errorf("failed to delete node from etcd: %w", err)
	}

	if resp.Deleted == 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}

	return nil
}

// GetSelectedIndices returns the configured public search surface.
func (s *EtcdStore) GetSelectedIndices(ctx context.Context) ([]models.SelectedIndex, error) {
	resp, err := s.client.Get(ctx, selectedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get selected indices from etcd: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return []models.SelectedIndex{}, nil
	}

	var selected []models.SelectedIndex
	if err := json.Unmarshal(resp.Kvs[0].Value, &selected); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selected indices: %w", err)
	}

	return selected, nil
}

// PutSelectedIndices replaces the configured public search surface.
func (s *EtcdStore) PutSelectedIndices(ctx context.Context, selected []models.SelectedIndex) error {
	data, err := json.Marshal(selected)
	if err != nil {
		return fmt.Errorf("failed to marshal selected indices: %w", err)
	}

	if _, err := s.client.Put(ctx, selectedKey, string(data)); err != nil {
		return fmt.Errorf("failed to store selected indices in etcd: %w", err)
	}

	return nil
}

// Close closes the etcd connection.
func (s *EtcdStore) Close() error {
	return s.client.Close()
}

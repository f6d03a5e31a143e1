// Package registry holds the durable configuration of search-engine nodes
// and the selected public search surface. The default backend is etcd; an
// in-memory backend exists for tests and single-box deployments.
package registry

import (
	"context"
	"fmt"

	"github.com/leakdex/leakdex/internal/models"
)

// ErrNodeNotFound is returned when a node name is not registered.
var ErrNodeNotFound = fmt.Errorf("node not found")

// Store is the durable node registry.
type Store interface {
	// ListNodes returns all configured nodes.
	ListNodes(ctx context.Context) ([]models.Node, error)

	// GetNode returns one node by name, or ErrNodeNotFound.
	GetNode(ctx context.Context, name string) (*models.Node, error)

	// PutNode creates or replaces a node entry.
	PutNode(ctx context.Context, node models.Node) error

	// DeleteNode removes a node entry.
	DeleteNode(ctx context.Context, name string) error

	// GetSelectedIndices returns the configured public search surface in
	// its configured order.
	GetSelectedIndices(ctx context.Context) ([]models.SelectedIndex, error)

	// PutSelectedIndices replaces the configured public search surface.
	PutSelectedIndices(ctx context.Context, selected []models.SelectedIndex) error

	// Close releases backend connections.
	Close() error
}

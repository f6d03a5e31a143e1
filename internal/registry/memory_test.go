package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakdex/leakdex/internal/models"
)

func TestMemoryStoreNodeLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.PutNode(ctx, models.Node{Name: "b", Host: "h", Port: 1}))
	require.NoError(t, store.PutNode(ctx, models.Node{Name: "a", Host: "h", Port: 2}))

	nodes, err := store.ListNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].Name)
	assert.Equal(t, "b", nodes[1].Name)

	node, err := store.GetNode(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, node.Port)

	require.NoError(t, store.DeleteNode(ctx, "a"))
	_, err = store.GetNode(ctx, "a")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.ErrorIs(t, store.DeleteNode(ctx, "a"), ErrNodeNotFound)
}

func TestMemoryStoreRejectsInvalidNode(t *testing.T) {
	store := NewMemoryStore()

	assert.Error(t, store.PutNode(context.Background(), models.Node{Host: "h", Port: 1}))
	assert.Error(t, store.PutNode(context.Background(), models.Node{Name: "x", Port: 1}))
	assert.Error(t, store.PutNode(context.Background(), models.Node{Name: "x", Host: "h"}))
}

func TestMemoryStoreSelectedIndicesCopied(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	in := []models.SelectedIndex{{Node: "n", Index: "i"}}
	require.NoError(t, store.PutSelectedIndices(ctx, in))

	// Mutating the caller's slice must not leak into the store
	in[0].Index = "changed"

	out, err := store.GetSelectedIndices(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "i", out[0].Index)
}

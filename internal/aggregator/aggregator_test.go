package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakdex/leakdex/internal/cache"
	"github.com/leakdex/leakdex/internal/config"
	"github.com/leakdex/leakdex/internal/logging"
	"github.com/leakdex/leakdex/internal/models"
	"github.com/leakdex/leakdex/internal/registry"
	"github.com/leakdex/leakdex/internal/search"
)

// stubClient serves canned search results keyed by index.
type stubClient struct {
	results map[string]*search.Result
	counts  map[string]uint64
	fail    bool
}

func (c *stubClient) Ping(ctx context.Context) error { return nil }

func (c *stubClient) Stats(ctx context.Context) (map[string]search.IndexStats, error) {
	return nil, nil
}

func (c *stubClient) CatIndices(ctx context.Context) ([]search.CatIndex, error) { return nil, nil }
func (c *stubClient) CatShards(ctx context.Context) ([]search.ShardAlloc, error) {
	return nil, nil
}

func (c *stubClient) Search(ctx context.Context, index, query string, from, size int) (*search.Result, error) {
	if c.fail {
		return nil, errors.New("node unreachable")
	}
	if r, ok := c.results[index]; ok {
		return r, nil
	}
	return &search.Result{}, nil
}

func (c *stubClient) Count(ctx context.Context, index, query string) (uint64, error) {
	if c.fail {
		return 0, errors.New("node unreachable")
	}
	return c.counts[index], nil
}

func (c *stubClient) Bulk(ctx context.Context, index string, docs []search.Document) error {
	return nil
}

func (c *stubClient) DeleteByIDs(ctx context.Context, index string, ids []string) (*search.DeleteResult, error) {
	return &search.DeleteResult{}, nil
}

func (c *stubClient) CreateIndex(ctx context.Context, name string) error { return nil }
func (c *stubClient) DeleteIndex(ctx context.Context, name string) error { return nil }

type fixture struct {
	service *Service
	reg     *registry.MemoryStore
}

// newFixture wires two nodes, each holding one index, with a persisted cache
// snapshot so no refresh is needed.
func newFixture(t *testing.T, clients map[string]search.Client) *fixture {
	t.Helper()

	reg := registry.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, reg.PutNode(ctx, models.Node{Name: "node-1", Host: "127.0.0.1", Port: 9201}))
	require.NoError(t, reg.PutNode(ctx, models.Node{Name: "node-2", Host: "127.0.0.1", Port: 9202}))

	snapshot := models.CacheSnapshot{
		"node-1": {
			Status:      models.NodeRunning,
			LastUpdated: time.Now().UTC(),
			Indices:     map[string]models.IndexInfo{"accounts": {DocCount: 2}},
		},
		"node-2": {
			Status:      models.NodeRunning,
			LastUpdated: time.Now().UTC(),
			Indices:     map[string]models.IndexInfo{"accounts-eu": {DocCount: 2}},
		},
	}

	path := filepath.Join(t.TempDir(), "indices-cache.json")
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	factory := func(node models.Node) search.Client { return clients[node.Name] }
	cacheStore := cache.New(reg, factory, path, 200*time.Millisecond, logging.NewDevelopment())

	cfg := config.SearchConfig{
		RequestTimeout:    time.Second,
		DefaultPageSize:   25,
		MaxPageSize:       500,
		UsernameMaskRatio: 0.4,
		SecretMaskRatio:   0.7,
		MinVisible:        2,
	}

	return &fixture{
		service: New(cacheStore, reg, factory, cfg, logging.NewDevelopment()),
		reg:     reg,
	}
}

func selectBoth(t *testing.T, reg *registry.MemoryStore) {
	t.Helper()
	require.NoError(t, reg.PutSelectedIndices(context.Background(), []models.SelectedIndex{
		{Node: "node-1", Index: "accounts"},
		{Node: "node-2", Index: "accounts-eu"},
	}))
}

func TestSearchMergesAndSortsAcrossTargets(t *testing.T) {
	clients := map[string]search.Client{
		"node-1": &stubClient{results: map[string]*search.Result{
			"accounts": {Total: 2, Hits: []search.Hit{
				{ID: "cc", Line: "c.com:carol:pw3", SourceFile: "dump-a.txt"},
				{ID: "aa", Line: "a.com:alice:pw1", SourceFile: "dump-a.txt"},
			}},
		}},
		"node-2": &stubClient{results: map[string]*search.Result{
			"accounts-eu": {Total: 1, Hits: []search.Hit{
				{ID: "bb", Line: "b.com:bob:pw2", SourceFile: "dump-b.txt"},
			}},
		}},
	}

	f := newFixture(t, clients)
	selectBoth(t, f.reg)

	resp, err := f.service.Search(context.Background(), Request{Query: "pw", Page: 1, Size: 10})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), resp.Total)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, []string{"aa", "bb", "cc"},
		[]string{resp.Results[0].ID, resp.Results[1].ID, resp.Results[2].ID},
		"merged hits are in stable id order")
	assert.Equal(t, "node-1", resp.Results[0].Node)
	assert.Equal(t, "node-2", resp.Results[1].Node)
}

func TestSearchTruncatesToRequestedSize(t *testing.T) {
	clients := map[string]search.Client{
		"node-1": &stubClient{results: map[string]*search.Result{
			"accounts": {Total: 2, Hits: []search.Hit{
				{ID: "aa", Line: "a.com:alice:pw1"},
				{ID: "cc", Line: "c.com:carol:pw3"},
			}},
		}},
		"node-2": &stubClient{results: map[string]*search.Result{
			"accounts-eu": {Total: 1, Hits: []search.Hit{
				{ID: "bb", Line: "b.com:bob:pw2"},
			}},
		}},
	}

	f := newFixture(t, clients)
	selectBoth(t, f.reg)

	resp, err := f.service.Search(context.Background(), Request{Query: "pw", Page: 1, Size: 2})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), resp.Total, "total counts all matches, not just the page")
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "aa", resp.Results[0].ID)
	assert.Equal(t, "bb", resp.Results[1].ID)
}

func TestSearchOrderingStableForDuplicateIDs(t *testing.T) {
	// Ids are content-derived, so the same line ingested into two indices
	// shows up under the same id on both targets. Ordering must not depend
	// on which target's goroutine finishes first.
	hits := []search.Hit{
		{ID: "dup", Line: "a.com:alice:pw1"},
		{ID: "dup2", Line: "b.com:bob:pw2"},
		{ID: "dup3", Line: "c.com:carol:pw3"},
	}
	clients := map[string]search.Client{
		"node-1": &stubClient{results: map[string]*search.Result{
			"accounts": {Total: 3, Hits: hits},
		}},
		"node-2": &stubClient{results: map[string]*search.Result{
			"accounts-eu": {Total: 3, Hits: hits},
		}},
	}

	f := newFixture(t, clients)
	selectBoth(t, f.reg)

	order := func(resp *models.SearchResponse) []string {
		out := make([]string, 0, len(resp.Results))
		for _, r := range resp.Results {
			out = append(out, r.ID+"/"+r.Node+"/"+r.Index)
		}
		return out
	}

	first, err := f.service.Search(context.Background(), Request{Query: "pw", Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, first.Results, 6)
	assert.Equal(t, []string{
		"dup/node-1/accounts", "dup/node-2/accounts-eu",
		"dup2/node-1/accounts", "dup2/node-2/accounts-eu",
		"dup3/node-1/accounts", "dup3/node-2/accounts-eu",
	}, order(first))

	for i := 0; i < 200; i++ {
		resp, err := f.service.Search(context.Background(), Request{Query: "pw", Page: 1, Size: 10})
		require.NoError(t, err)
		require.Equal(t, order(first), order(resp), "iteration %d", i)
	}
}

func TestSearchSwallowsFailedTarget(t *testing.T) {
	clients := map[string]search.Client{
		"node-1": &stubClient{fail: true},
		"node-2": &stubClient{results: map[string]*search.Result{
			"accounts-eu": {Total: 1, Hits: []search.Hit{
				{ID: "bb", Line: "b.com:bob:pw2"},
			}},
		}},
	}

	f := newFixture(t, clients)
	selectBoth(t, f.reg)

	resp, err := f.service.Search(context.Background(), Request{Query: "pw", Page: 1, Size: 10})
	require.NoError(t, err, "one target failing must not fail the request")

	assert.Equal(t, uint64(1), resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "bb", resp.Results[0].ID)
}

func TestSearchMasksForPublicCallers(t *testing.T) {
	clients := map[string]search.Client{
		"node-1": &stubClient{results: map[string]*search.Result{
			"accounts": {Total: 1, Hits: []search.Hit{
				{ID: "aa", Line: "example.com:alexandra:correcthorse", SourceFile: "dump.txt"},
			}},
		}},
		"node-2": &stubClient{},
	}

	f := newFixture(t, clients)
	selectBoth(t, f.reg)

	resp, err := f.service.Search(context.Background(), Request{Query: "alexandra", Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	hit := resp.Results[0]
	assert.Empty(t, hit.Raw, "public callers never see the raw line")
	assert.Empty(t, hit.SourceFile)
	assert.Contains(t, hit.Password, "*")
	assert.Contains(t, hit.URL, "*")
	assert.NotEqual(t, "alexandra", hit.Username)
	assert.Len(t, hit.Username, len("alexandra"), "masking preserves length")
}

func TestSearchAdminGetsRawLine(t *testing.T) {
	clients := map[string]search.Client{
		"node-1": &stubClient{results: map[string]*search.Result{
			"accounts": {Total: 1, Hits: []search.Hit{
				{ID: "aa", Line: "example.com:alice:hunter2", SourceFile: "dump.txt"},
			}},
		}},
		"node-2": &stubClient{},
	}

	f := newFixture(t, clients)
	selectBoth(t, f.reg)

	resp, err := f.service.Search(context.Background(), Request{Query: "alice", Page: 1, Size: 10, Admin: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	hit := resp.Results[0]
	assert.Equal(t, "example.com:alice:hunter2", hit.Raw)
	assert.Equal(t, "hunter2", hit.Password)
	assert.Equal(t, "alice", hit.Username)
	assert.Equal(t, "dump.txt", hit.SourceFile)
}

func TestSearchEmptySelectionIsVacuouslyEmpty(t *testing.T) {
	f := newFixture(t, map[string]search.Client{
		"node-1": &stubClient{},
		"node-2": &stubClient{},
	})

	resp, err := f.service.Search(context.Background(), Request{Query: "anything", Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Results)
	assert.NotEmpty(t, resp.Message)
}

func TestResolveExplicitTargetValidation(t *testing.T) {
	f := newFixture(t, map[string]search.Client{
		"node-1": &stubClient{},
		"node-2": &stubClient{},
	})
	ctx := context.Background()

	targets, err := f.service.Resolve(ctx, Request{Admin: true, Node: "node-1", Index: "accounts"})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "node-1", targets[0].Node.Name)

	_, err = f.service.Resolve(ctx, Request{Admin: true, Node: "node-1", Index: "nope"})
	assert.ErrorIs(t, err, ErrTargetNotFound)

	_, err = f.service.Resolve(ctx, Request{Admin: true, Node: "ghost", Index: "accounts"})
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestResolveNodeExpandsToItsIndices(t *testing.T) {
	f := newFixture(t, map[string]search.Client{
		"node-1": &stubClient{},
		"node-2": &stubClient{},
	})

	targets, err := f.service.Resolve(context.Background(), Request{Admin: true, Node: "node-2"})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "accounts-eu", targets[0].Index)
}

func TestResolveLegacyBareIndexSelection(t *testing.T) {
	f := newFixture(t, map[string]search.Client{
		"node-1": &stubClient{},
		"node-2": &stubClient{},
	})
	require.NoError(t, f.reg.PutSelectedIndices(context.Background(), []models.SelectedIndex{
		{Index: "accounts"}, // no node: resolves through whichever node holds it
	}))

	targets, err := f.service.Resolve(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "node-1", targets[0].Node.Name)
	assert.Equal(t, "accounts", targets[0].Index)
}

func TestCountSumsAcrossTargets(t *testing.T) {
	clients := map[string]search.Client{
		"node-1": &stubClient{counts: map[string]uint64{"accounts": 40}},
		"node-2": &stubClient{counts: map[string]uint64{"accounts-eu": 2}},
	}

	f := newFixture(t, clients)
	selectBoth(t, f.reg)

	resp, err := f.service.Count(context.Background(), Request{Query: "pw"})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), resp.Total)
}

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakdex/leakdex/internal/aggregator"
	"github.com/leakdex/leakdex/internal/cache"
	"github.com/leakdex/leakdex/internal/config"
	"github.com/leakdex/leakdex/internal/handlers"
	"github.com/leakdex/leakdex/internal/ingest"
	"github.com/leakdex/leakdex/internal/logging"
	"github.com/leakdex/leakdex/internal/models"
	"github.com/leakdex/leakdex/internal/queue"
	"github.com/leakdex/leakdex/internal/registry"
	"github.com/leakdex/leakdex/internal/router"
	"github.com/leakdex/leakdex/internal/search"
	"github.com/leakdex/leakdex/internal/tasks"
)

// stubClient is a canned-response search client for the HTTP tests.
type stubClient struct {
	results map[string]*search.Result
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
	if r, ok := c.results[index]; ok {
		return r.Total, nil
	}
	return 0, nil
}

func (c *stubClient) Bulk(ctx context.Context, index string, docs []search.Document) error {
	return nil
}

func (c *stubClient) DeleteByIDs(ctx context.Context, index string, ids []string) (*search.DeleteResult, error) {
	return &search.DeleteResult{Deleted: len(ids)}, nil
}

func (c *stubClient) CreateIndex(ctx context.Context, name string) error { return nil }
func (c *stubClient) DeleteIndex(ctx context.Context, name string) error { return nil }

type fixture struct {
	app    *fiber.App
	reg    *registry.MemoryStore
	tasks  *tasks.Registry
	client *stubClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logging.NewDevelopment()
	reg := registry.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, reg.PutNode(ctx, models.Node{Name: "node-1", Host: "127.0.0.1", Port: 9201}))
	require.NoError(t, reg.PutSelectedIndices(ctx, []models.SelectedIndex{
		{Node: "node-1", Index: "accounts"},
	}))

	snapshot := models.CacheSnapshot{
		"node-1": {
			Status:      models.NodeRunning,
			LastUpdated: time.Now().UTC(),
			Indices:     map[string]models.IndexInfo{"accounts": {DocCount: 1}},
		},
	}
	snapshotPath := filepath.Join(t.TempDir(), "indices-cache.json")
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(snapshotPath, data, 0o644))

	client := &stubClient{
		results: map[string]*search.Result{
			"accounts": {Total: 1, Hits: []search.Hit{
				{ID: "aa", Line: "example.com:alice:hunter2", SourceFile: "dump.txt"},
			}},
		},
	}
	factory := func(node models.Node) search.Client { return client }

	cacheStore := cache.New(reg, factory, snapshotPath, 200*time.Millisecond, logger)

	searchCfg := config.SearchConfig{
		RequestTimeout:    time.Second,
		DefaultPageSize:   25,
		MaxPageSize:       500,
		UsernameMaskRatio: 0.4,
		SecretMaskRatio:   0.7,
		MinVisible:        2,
	}
	agg := aggregator.New(cacheStore, reg, factory, searchCfg, logger)

	taskReg := tasks.NewRegistry()

	unparsed := filepath.Join(t.TempDir(), "unparsed")
	parsed := filepath.Join(t.TempDir(), "parsed")
	require.NoError(t, os.MkdirAll(unparsed, 0o755))
	require.NoError(t, os.MkdirAll(parsed, 0o755))

	bus, err := queue.NewQueue(config.QueueConfig{Type: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ingestSvc := ingest.New(config.IngestConfig{
		UnparsedDir:  unparsed,
		ParsedDir:    parsed,
		BatchSize:    100,
		DefaultNode:  "node-1",
		DefaultIndex: "accounts",
	}, reg, factory, taskReg, bus, logger)

	h := handlers.New(logger, reg, cacheStore, agg, taskReg, ingestSvc, factory, bus)
	app := router.New(logger, h, router.AuthConfig{Enabled: false})

	return &fixture{app: app, reg: reg, tasks: taskReg, client: client}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, body := doJSON(t, f.app, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestPublicSearchIsMasked(t *testing.T) {
	f := newFixture(t)

	resp, body := doJSON(t, f.app, "GET", "/search?q=alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result models.SearchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	require.Len(t, result.Results, 1)
	assert.Empty(t, result.Results[0].Raw)
	assert.Contains(t, result.Results[0].Password, "*")
}

func TestPublicSearchWithNoTargetsReturns200(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.PutSelectedIndices(context.Background(), nil))

	resp, body := doJSON(t, f.app, "GET", "/search?q=alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result models.SearchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Zero(t, result.Total)
	assert.NotEmpty(t, result.Message)
}

// brokenSelectionStore fails every selected-indices read.
type brokenSelectionStore struct {
	*registry.MemoryStore
}

func (s *brokenSelectionStore) GetSelectedIndices(ctx context.Context) ([]models.SelectedIndex, error) {
	return nil, errors.New("registry unavailable")
}

func TestPublicSearchDegradesOnRegistryFailure(t *testing.T) {
	logger := logging.NewDevelopment()
	reg := &brokenSelectionStore{MemoryStore: registry.NewMemoryStore()}
	factory := func(node models.Node) search.Client { return &stubClient{} }
	cacheStore := cache.New(reg, factory, filepath.Join(t.TempDir(), "c.json"), 200*time.Millisecond, logger)
	agg := aggregator.New(cacheStore, reg, factory, config.SearchConfig{
		RequestTimeout: time.Second, DefaultPageSize: 25, MaxPageSize: 500,
	}, logger)
	taskReg := tasks.NewRegistry()
	bus, err := queue.NewQueue(config.QueueConfig{Type: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	ingestSvc := ingest.New(config.IngestConfig{
		UnparsedDir: t.TempDir(), ParsedDir: t.TempDir(), BatchSize: 100,
	}, reg, factory, taskReg, bus, logger)

	h := handlers.New(logger, reg, cacheStore, agg, taskReg, ingestSvc, factory, bus)
	app := router.New(logger, h, router.AuthConfig{Enabled: false})

	resp, body := doJSON(t, app, "GET", "/search?q=alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "public search never 5xxs on backend problems")

	var result models.SearchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Zero(t, result.Total)
	assert.Empty(t, result.Results)
	assert.NotEmpty(t, result.Message)

	resp, body = doJSON(t, app, "GET", "/search/count?q=alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count models.CountResponse
	require.NoError(t, json.Unmarshal(body, &count))
	assert.Zero(t, count.Total)
	assert.NotEmpty(t, count.Message)
}

func TestPublicCount(t *testing.T) {
	f := newFixture(t)

	resp, body := doJSON(t, f.app, "GET", "/search/count?q=alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result models.CountResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, uint64(1), result.Total)
}

func TestAdminAccountsReturnsRawLine(t *testing.T) {
	f := newFixture(t)

	resp, body := doJSON(t, f.app, "GET", "/admin/accounts?q=alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result models.SearchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	require.Len(t, result.Results, 1)
	assert.Equal(t, "example.com:alice:hunter2", result.Results[0].Raw)
	assert.Equal(t, "hunter2", result.Results[0].Password)
}

func TestAdminAccountsUnknownTargetIs404(t *testing.T) {
	f := newFixture(t)

	resp, _ := doJSON(t, f.app, "GET", "/admin/accounts?node=node-1&index=nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNodeLifecycle(t *testing.T) {
	f := newFixture(t)

	resp, _ := doJSON(t, f.app, "POST", "/admin/nodes", models.Node{
		Name: "node-2", Host: "127.0.0.1", Port: 9202,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, f.app, "GET", "/admin/nodes", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list models.NodeListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Nodes, 2)

	resp, _ = doJSON(t, f.app, "DELETE", "/admin/nodes/node-2", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, f.app, "DELETE", "/admin/nodes/node-2", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateNodeValidation(t *testing.T) {
	f := newFixture(t)

	resp, _ := doJSON(t, f.app, "POST", "/admin/nodes", models.Node{
		Name: "bad name!", Host: "127.0.0.1", Port: 9202,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, f.app, "POST", "/admin/nodes", models.Node{
		Name: "node-3", Host: "", Port: 9202,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestIndicesCacheEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, body := doJSON(t, f.app, "GET", "/admin/indices-cache", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cacheResp models.CacheResponse
	require.NoError(t, json.Unmarshal(body, &cacheResp))
	assert.Contains(t, cacheResp.Nodes, "node-1")
}

func TestSelectedIndicesValidation(t *testing.T) {
	f := newFixture(t)

	// Valid replacement
	resp, _ := doJSON(t, f.app, "PUT", "/admin/search/selected", models.SelectedIndicesResponse{
		Selected: []models.SelectedIndex{{Node: "node-1", Index: "accounts"}},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Unresolvable target rejected
	resp, _ = doJSON(t, f.app, "PUT", "/admin/search/selected", models.SelectedIndicesResponse{
		Selected: []models.SelectedIndex{{Node: "ghost", Index: "accounts"}},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTaskEndpoints(t *testing.T) {
	f := newFixture(t)

	id := f.tasks.Create(models.TaskTypeParse, "dump.txt")
	f.tasks.Complete(id, "done")

	resp, body := doJSON(t, f.app, "GET", "/admin/tasks", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list models.TaskListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Tasks, 1)

	resp, body = doJSON(t, f.app, "GET", "/admin/tasks/"+id, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var one models.TaskResponse
	require.NoError(t, json.Unmarshal(body, &one))
	assert.Equal(t, id, one.Task.ID)

	resp, _ = doJSON(t, f.app, "GET", "/admin/tasks/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, f.app, "POST", "/admin/tasks/clear", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var action models.TaskActionResponse
	require.NoError(t, json.Unmarshal(body, &action))
	assert.Equal(t, 1, action.Cleared)

	resp, _ = doJSON(t, f.app, "POST", "/admin/tasks/explode", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestParseUnknownFileIs404(t *testing.T) {
	f := newFixture(t)

	resp, _ := doJSON(t, f.app, "POST", "/admin/parse/missing.txt", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestBulkDeleteAccepted(t *testing.T) {
	f := newFixture(t)

	resp, body := doJSON(t, f.app, "POST", "/admin/accounts/bulk-delete", handlers.BulkDeleteRequest{
		IDs: []string{"aa", "bb"},
	})
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var accepted models.AcceptedResponse
	require.NoError(t, json.Unmarshal(body, &accepted))
	assert.NotEmpty(t, accepted.TaskID)
}

func TestFilesEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, body := doJSON(t, f.app, "GET", "/admin/files", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var files models.FileListResponse
	require.NoError(t, json.Unmarshal(body, &files))
	assert.Empty(t, files.Unparsed)
	assert.Empty(t, files.Parsed)
}

func TestUnknownRouteIs404(t *testing.T) {
	f := newFixture(t)

	resp, _ := doJSON(t, f.app, "GET", "/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminRequiresAPIKeyWhenEnabled(t *testing.T) {
	logger := logging.NewDevelopment()
	reg := registry.NewMemoryStore()
	factory := func(node models.Node) search.Client { return &stubClient{} }
	cacheStore := cache.New(reg, factory, filepath.Join(t.TempDir(), "c.json"), 200*time.Millisecond, logger)
	agg := aggregator.New(cacheStore, reg, factory, config.SearchConfig{
		RequestTimeout: time.Second, DefaultPageSize: 25, MaxPageSize: 500,
	}, logger)
	taskReg := tasks.NewRegistry()
	bus, err := queue.NewQueue(config.QueueConfig{Type: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	ingestSvc := ingest.New(config.IngestConfig{
		UnparsedDir: t.TempDir(), ParsedDir: t.TempDir(), BatchSize: 100,
	}, reg, factory, taskReg, bus, logger)

	key := "0123456789abcdef0123456789abcdef"
	h := handlers.New(logger, reg, cacheStore, agg, taskReg, ingestSvc, factory, bus)
	app := router.New(logger, h, router.AuthConfig{Enabled: true, APIKeys: []string{key}})

	// No key
	resp, err := app.Test(httptest.NewRequest("GET", "/admin/tasks", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Public surface stays open
	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// With key
	req := httptest.NewRequest("GET", "/admin/tasks", nil)
	req.Header.Set("X-API-Key", key)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

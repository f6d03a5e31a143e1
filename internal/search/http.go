package search

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/leakdex/leakdex/internal/models"
	"github.com/leakdex/leakdex/internal/utils"
)

// HTTPClient talks to one node over the engine's REST API.
type HTTPClient struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
}

// NewHTTPClient creates a client for one node.
func NewHTTPClient(node models.Node, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = utils.RemoteCallTimeout
	}
	return &HTTPClient{
		baseURL: node.URL(),
		client:  &fasthttp.Client{},
		timeout: timeout,
	}
}

// NewFactory returns a Factory producing HTTP clients with the given
// per-call timeout.
func NewFactory(timeout time.Duration) Factory {
	return func(node models.Node) Client {
		return NewHTTPClient(node, timeout)
	}
}

// do performs one request and returns the response body. Transport-level
// failures map to KindUnavailable; non-2xx statuses map via their code.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if timeout <= 0 {
		return nil, NewRemoteError(KindUnavailable, "context deadline exceeded before call to %s", path)
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, NewRemoteError(KindUnavailable, "%s %s: %v", method, path, err)
	}

	status := resp.StatusCode()
	out := append([]byte(nil), resp.Body()...)
	if status < 200 || status >= 300 {
		return out, NewRemoteError(kindFromStatus(status), "%s %s: status %d", method, path, status)
	}

	return out, nil
}

// Ping verifies the node answers at protocol level.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, fasthttp.MethodGet, "/", nil)
	return err
}

type statsResponse struct {
	Indices map[string]struct {
		Primaries struct {
			Docs struct {
				Count uint64 `json:"count"`
			} `json:"docs"`
			Store struct {
				SizeInBytes int64 `json:"size_in_bytes"`
			} `json:"store"`
		} `json:"primaries"`
	} `json:"indices"`
}

// Stats returns per-index document counts and store sizes.
func (c *HTTPClient) Stats(ctx context.Context) (map[string]IndexStats, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, "/_stats?level=indices", nil)
	if err != nil {
		return nil, err
	}

	var parsed statsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewRemoteError(KindOther, "decode stats: %v", err)
	}

	stats := make(map[string]IndexStats, len(parsed.Indices))
	for name, idx := range parsed.Indices {
		stats[name] = IndexStats{
			DocCount:  idx.Primaries.Docs.Count,
			StoreSize: idx.Primaries.Store.SizeInBytes,
		}
	}
	return stats, nil
}

// CatIndices returns the index listing with health.
func (c *HTTPClient) CatIndices(ctx context.Context) ([]CatIndex, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, "/_cat/indices?format=json", nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Index  string `json:"index"`
		Health string `json:"health"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, NewRemoteError(KindOther, "decode cat indices: %v", err)
	}

	indices := make([]CatIndex, 0, len(rows))
	for _, row := range rows {
		health := row.Health
		if health == "" {
			health = models.HealthUnknown
		}
		indices = append(indices, CatIndex{Index: row.Index, Health: health})
	}
	return indices, nil
}

// CatShards returns the shard allocation listing.
func (c *HTTPClient) CatShards(ctx context.Context) ([]ShardAlloc, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, "/_cat/shards?format=json", nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Index  string `json:"index"`
		Node   string `json:"node"`
		PriRep string `json:"prirep"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, NewRemoteError(KindOther, "decode cat shards: %v", err)
	}

	shards := make([]ShardAlloc, 0, len(rows))
	for _, row := range rows {
		shards = append(shards, ShardAlloc{
			Index:   row.Index,
			Node:    row.Node,
			Primary: row.PriRep == "p",
		})
	}
	return shards, nil
}

// queryBody builds the engine query for a raw-line search. An empty query
// matches everything.
func queryBody(query string) map[string]interface{} {
	if query == "" {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	return map[string]interface{}{
		"match": map[string]interface{}{
			"line": map[string]interface{}{
				"query":    query,
				"operator": "and",
			},
		},
	}
}

// hitsTotal accepts both the modern object form {"value": N} and the legacy
// bare-number form.
type hitsTotal struct {
	Value uint64
}

func (t *hitsTotal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Value uint64 `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		t.Value = obj.Value
		return nil
	}
	return json.Unmarshal(data, &t.Value)
}

type searchResponse struct {
	Hits struct {
		Total hitsTotal `json:"total"`
		Hits  []struct {
			ID     string `json:"_id"`
			Source struct {
				Line       string `json:"line"`
				SourceFile string `json:"source_file"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a paged query against one index.
func (c *HTTPClient) Search(ctx context.Context, index, query string, from, size int) (*Result, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"from":  from,
		"size":  size,
		"query": queryBody(query),
	})
	if err != nil {
		return nil, NewRemoteError(KindOther, "encode search: %v", err)
	}

	body, err := c.do(ctx, fasthttp.MethodPost, "/"+index+"/_search", payload)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewRemoteError(KindOther, "decode search: %v", err)
	}

	result := &Result{Total: parsed.Hits.Total.Value}
	for _, hit := range parsed.Hits.Hits {
		result.Hits = append(result.Hits, Hit{
			ID:         hit.ID,
			Line:       hit.Source.Line,
			SourceFile: hit.Source.SourceFile,
		})
	}
	return result, nil
}

// Count returns the matched-document count for a query.
func (c *HTTPClient) Count(ctx context.Context, index, query string) (uint64, error) {
	payload, err := json.Marshal(map[string]interface{}{"query": queryBody(query)})
	if err != nil {
		return 0, NewRemoteError(KindOther, "encode count: %v", err)
	}

	body, err := c.do(ctx, fasthttp.MethodPost, "/"+index+"/_count", payload)
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Count uint64 `json:"count"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, NewRemoteError(KindOther, "decode count: %v", err)
	}
	return parsed.Count, nil
}

type bulkItem struct {
	Index  *bulkItemStatus `json:"index"`
	Delete *bulkItemStatus `json:"delete"`
}

type bulkItemStatus struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
}

type bulkResponse struct {
	Errors bool       `json:"errors"`
	Items  []bulkItem `json:"items"`
}

// Bulk indexes a batch of documents into one index.
func (c *HTTPClient) Bulk(ctx context.Context, index string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		action, err := json.Marshal(map[string]interface{}{
			"index": map[string]interface{}{"_index": index, "_id": doc.ID},
		})
		if err != nil {
			return NewRemoteError(KindOther, "encode bulk action: %v", err)
		}
		source, err := json.Marshal(map[string]interface{}{
			"line":        doc.Line,
			"source_file": doc.SourceFile,
		})
		if err != nil {
			return NewRemoteError(KindOther, "encode bulk source: %v", err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(source)
		buf.WriteByte('\n')
	}

	body, err := c.do(ctx, fasthttp.MethodPost, "/_bulk", buf.Bytes())
	if err != nil {
		return err
	}

	var parsed bulkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return NewRemoteError(KindOther, "decode bulk: %v", err)
	}
	if parsed.Errors {
		failed := 0
		for _, item := range parsed.Items {
			if item.Index != nil && item.Index.Status >= 300 {
				failed++
			}
		}
		return NewRemoteError(KindOther, "bulk indexed with %d failed items of %d", failed, len(docs))
	}

	return nil
}

// DeleteByIDs deletes documents by id, reporting deleted vs not-found.
func (c *HTTPClient) DeleteByIDs(ctx context.Context, index string, ids []string) (*DeleteResult, error) {
	if len(ids) == 0 {
		return &DeleteResult{}, nil
	}

	var buf bytes.Buffer
	for _, id := range ids {
		action, err := json.Marshal(map[string]interface{}{
			"delete": map[string]interface{}{"_index": index, "_id": id},
		})
		if err != nil {
			return nil, NewRemoteError(KindOther, "encode delete action: %v", err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
	}

	body, err := c.do(ctx, fasthttp.MethodPost, "/_bulk", buf.Bytes())
	if err != nil {
		return nil, err
	}

	var parsed bulkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewRemoteError(KindOther, "decode bulk delete: %v", err)
	}

	result := &DeleteResult{}
	for _, item := range parsed.Items {
		if item.Delete == nil {
			continue
		}
		switch {
		case item.Delete.Status == 404:
			// Already gone counts as processed: delete is idempotent
			result.NotFound++
		case item.Delete.Status < 300:
			result.Deleted++
		default:
			return nil, NewRemoteError(kindFromStatus(item.Delete.Status),
				"delete id %s: status %d", item.Delete.ID, item.Delete.Status)
		}
	}
	return result, nil
}

// CreateIndex creates an index. Already-existing indices surface as
// KindConflict; the engine reports them as a 400 already-exists response.
func (c *HTTPClient) CreateIndex(ctx context.Context, name string) error {
	body, err := c.do(ctx, fasthttp.MethodPut, "/"+name, nil)
	if err != nil && KindOf(err) == KindOther && bytes.Contains(body, []byte("resource_already_exists")) {
		return NewRemoteError(KindConflict, "create index %s: already exists", name)
	}
	return err
}

// DeleteIndex deletes an index.
func (c *HTTPClient) DeleteIndex(ctx context.Context, name string) error {
	_, err := c.do(ctx, fasthttp.MethodDelete, "/"+name, nil)
	return err
}

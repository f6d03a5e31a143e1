// Package aggregator fans a logical search or count across a set of
// (node, index) targets and merges the per-target answers as if they came
// from one index. Per-target failures are swallowed so partial results win
// over total failure; merged hits are re-sorted by document id and the page
// window re-sliced, which trades relevance ordering for deterministic,
// duplicate-free pagination across targets.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/leakdex/leakdex/internal/cache"
	"github.com/leakdex/leakdex/internal/config"
	"github.com/leakdex/leakdex/internal/logging"
	"github.com/leakdex/leakdex/internal/models"
	"github.com/leakdex/leakdex/internal/registry"
	"github.com/leakdex/leakdex/internal/search"
)

// ErrTargetNotFound is returned when an explicitly requested (node, index)
// pair is not present in the index cache.
var ErrTargetNotFound = errors.New("search target not found")

// Target is one resolved (node, index) pair a query fans out to.
type Target struct {
	Node  models.Node
	Index string
}

// Request is one logical search or count.
type Request struct {
	Query string
	Page  int
	Size  int

	// Node and Index narrow the target set; admin callers only.
	Node  string
	Index string

	// Admin disables masking, returns raw lines and lifts the restriction
	// to the selected public search surface.
	Admin bool
}

// Service resolves targets and runs the fan-out.
type Service struct {
	cache    *cache.Store
	registry registry.Store
	clients  search.Factory
	cfg      config.SearchConfig
	logger   *logging.Logger
}

// New creates a search aggregator.
func New(cacheStore *cache.Store, reg registry.Store, clients search.Factory, cfg config.SearchConfig, logger *logging.Logger) *Service {
	return &Service{
		cache:    cacheStore,
		registry: reg,
		clients:  clients,
		cfg:      cfg,
		logger:   logger.With("component", "aggregator"),
	}
}

// Resolve computes the target set for a request. Public callers always get
// exactly the configured selected indices; admin callers may narrow to one
// node, one index, or one explicit pair, validated against the cache.
func (s *Service) Resolve(ctx context.Context, req Request) ([]Target, error) {
	snapshot := s.cache.Get("")

	if !req.Admin || (req.Node == "" && req.Index == "") {
		return s.resolveSelected(ctx, snapshot)
	}

	switch {
	case req.Node != "" && req.Index != "":
		if !snapshot.HasIndex(req.Node, req.Index) {
			return nil, fmt.Errorf("%w: %s/%s", ErrTargetNotFound, req.Node, req.Index)
		}
		node, err := s.registry.GetNode(ctx, req.Node)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s", ErrTargetNotFound, req.Node, req.Index)
		}
		return []Target{{Node: *node, Index: req.Index}}, nil

	case req.Node != "":
		entry, ok := snapshot[req.Node]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, req.Node)
		}
		node, err := s.registry.GetNode(ctx, req.Node)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, req.Node)
		}
		targets := make([]Target, 0, len(entry.Indices))
		for index := range entry.Indices {
			targets = append(targets, Target{Node: *node, Index: index})
		}
		sortTargets(targets)
		return targets, nil

	default:
		// Bare index: every node currently holding it.
		targets, err := s.expandIndex(ctx, snapshot, req.Index)
		if err != nil {
			return nil, err
		}
		if len(targets) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, req.Index)
		}
		return targets, nil
	}
}

// resolveSelected maps the configured public search surface onto the cache.
// Entries that no longer resolve are skipped; an empty configuration yields
// an empty target set, not an error.
func (s *Service) resolveSelected(ctx context.Context, snapshot models.CacheSnapshot) ([]Target, error) {
	selected, err := s.registry.GetSelectedIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load selected indices: %w", err)
	}

	var targets []Target
	for _, si := range selected {
		if si.Node != "" {
			if !snapshot.HasIndex(si.Node, si.Index) {
				continue
			}
			node, err := s.registry.GetNode(ctx, si.Node)
			if err != nil {
				s.logger.Warn("selected target names unregistered node", "node", si.Node, "error", err)
				continue
			}
			targets = append(targets, Target{Node: *node, Index: si.Index})
			continue
		}

		// Legacy bare-index entry: expand to every node holding the index.
		expanded, err := s.expandIndex(ctx, snapshot, si.Index)
		if err != nil {
			return nil, err
		}
		targets = append(targets, expanded...)
	}

	sortTargets(targets)
	return dedupeTargets(targets), nil
}

func (s *Service) expandIndex(ctx context.Context, snapshot models.CacheSnapshot, index string) ([]Target, error) {
	var targets []Target
	for nodeName := range snapshot {
		if !snapshot.HasIndex(nodeName, index) {
			continue
		}
		node, err := s.registry.GetNode(ctx, nodeName)
		if err != nil {
			s.logger.Warn("cached node missing from registry", "node", nodeName, "error", err)
			continue
		}
		targets = append(targets, Target{Node: *node, Index: index})
	}
	sortTargets(targets)
	return targets, nil
}

// Search runs a paged query across the resolved targets and merges the
// results.
func (s *Service) Search(ctx context.Context, req Request) (*models.SearchResponse, error) {
	req = s.normalize(req)

	targets, err := s.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &models.SearchResponse{
		Page:    req.Page,
		Size:    req.Size,
		Results: []models.AccountView{},
	}

	if len(targets) == 0 {
		resp.Message = "no search targets configured"
		return resp, nil
	}

	from := (req.Page - 1) * req.Size

	type targetResult struct {
		target Target
		result *search.Result
	}

	results := make(chan targetResult, len(targets))
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(target Target) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
			defer cancel()

			result, err := s.clients(target.Node).Search(callCtx, target.Index, req.Query, from, req.Size)
			if err != nil {
				s.logger.Warn("search target failed, excluding from merge",
					"node", target.Node.Name,
					"index", target.Index,
					"error", err)
				return
			}
			results <- targetResult{target: target, result: result}
		}(target)
	}

	wg.Wait()
	close(results)

	type mergedHit struct {
		hit    search.Hit
		target Target
	}

	var merged []mergedHit
	for tr := range results {
		resp.Total += tr.result.Total
		for _, hit := range tr.result.Hits {
			merged = append(merged, mergedHit{hit: hit, target: tr.target})
		}
	}

	// Stable id order makes pagination deterministic and duplicate-free
	// across repeated requests, at the cost of relevance ordering. Ids are
	// content-derived, so the same line indexed on two targets yields equal
	// ids; the (node, index) tie-break keeps ordering independent of
	// goroutine completion order.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].hit.ID != merged[j].hit.ID {
			return merged[i].hit.ID < merged[j].hit.ID
		}
		if merged[i].target.Node.Name != merged[j].target.Node.Name {
			return merged[i].target.Node.Name < merged[j].target.Node.Name
		}
		return merged[i].target.Index < merged[j].target.Index
	})
	if len(merged) > req.Size {
		merged = merged[:req.Size]
	}

	for _, mh := range merged {
		resp.Results = append(resp.Results, s.renderHit(mh.hit, mh.target, req.Admin))
	}
	return resp, nil
}

// Count sums the matched-document count across the resolved targets.
func (s *Service) Count(ctx context.Context, req Request) (*models.CountResponse, error) {
	targets, err := s.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &models.CountResponse{}
	if len(targets) == 0 {
		resp.Message = "no search targets configured"
		return resp, nil
	}

	counts := make(chan uint64, len(targets))
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(target Target) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
			defer cancel()

			count, err := s.clients(target.Node).Count(callCtx, target.Index, req.Query)
			if err != nil {
				s.logger.Warn("count target failed, excluding from sum",
					"node", target.Node.Name,
					"index", target.Index,
					"error", err)
				return
			}
			counts <- count
		}(target)
	}

	wg.Wait()
	close(counts)

	for count := range counts {
		resp.Total += count
	}
	return resp, nil
}

// renderHit parses the raw line and applies viewer-appropriate masking.
// Admin callers see everything including the raw line; public callers get
// masked fields only.
func (s *Service) renderHit(hit search.Hit, target Target, admin bool) models.AccountView {
	record := ParseLine(hit.Line)

	view := models.AccountView{
		ID:       hit.ID,
		URL:      record.URL,
		Username: record.Username,
		Password: record.Password,
		Node:     target.Node.Name,
		Index:    target.Index,
	}

	if admin {
		view.SourceFile = hit.SourceFile
		view.Raw = hit.Line
		return view
	}

	view.URL = MaskString(record.URL, s.cfg.SecretMaskRatio, s.cfg.MinVisible)
	view.Username = MaskString(record.Username, s.cfg.UsernameMaskRatio, s.cfg.MinVisible)
	view.Password = MaskString(record.Password, s.cfg.SecretMaskRatio, s.cfg.MinVisible)
	return view
}

func (s *Service) normalize(req Request) Request {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Size < 1 {
		req.Size = s.cfg.DefaultPageSize
	}
	if req.Size > s.cfg.MaxPageSize {
		req.Size = s.cfg.MaxPageSize
	}
	return req
}

func sortTargets(targets []Target) {
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Node.Name != targets[j].Node.Name {
			return targets[i].Node.Name < targets[j].Node.Name
		}
		return targets[i].Index < targets[j].Index
	})
}

func dedupeTargets(targets []Target) []Target {
	seen := make(map[string]bool, len(targets))
	out := targets[:0]
	for _, t := range targets {
		key := t.Node.Name + "\x00" + t.Index
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

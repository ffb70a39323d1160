// Package workspace fans a normalized query out across the workspaces a
// search is allowed to touch, running each lookup concurrently with its
// own deadline so one slow or failing workspace never blocks the rest.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/bmeyer99/docaiche/internal/config"
	"github.com/bmeyer99/docaiche/internal/model"
)

// Searcher is implemented by the vector index adapter for one workspace
// lookup. Embedding the query text is the searcher's responsibility so the
// fan-out stage stays storage-agnostic.
type Searcher interface {
	SearchWorkspace(ctx context.Context, workspaceID string, query model.NormalizedQuery, limit int) ([]model.SearchResult, error)
}

// Selector picks which workspaces a request's user context may fan out to.
type Selector interface {
	Select(ctx context.Context, req *model.SearchRequest, strategy config.WorkspaceSelectionStrategy) ([]string, error)
}

// Config configures a FanOut.
type Config struct {
	Searcher          Searcher
	Selector          Selector
	PerWorkspace      time.Duration // default 2s
	MaxWorkspaces     int           // default 5
	SelectionStrategy config.WorkspaceSelectionStrategy
}

func (c *Config) validate() error {
	if c.Searcher == nil {
		return errors.New("workspace fanout config: searcher is required")
	}
	if c.Selector == nil {
		return errors.New("workspace fanout config: selector is required")
	}
	if c.PerWorkspace <= 0 {
		c.PerWorkspace = 2 * time.Second
	}
	if c.MaxWorkspaces <= 0 {
		c.MaxWorkspaces = 5
	}
	if c.SelectionStrategy == "" {
		c.SelectionStrategy = config.WorkspaceSelectionAIDriven
	}
	return nil
}

// FanOut runs one normalized query against every selected workspace.
type FanOut struct {
	searcher          Searcher
	selector          Selector
	perWorkspace      time.Duration
	maxWorkspaces     int
	selectionStrategy config.WorkspaceSelectionStrategy
}

// New builds a FanOut from cfg.
func New(cfg *Config) (*FanOut, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &FanOut{
		searcher:          cfg.Searcher,
		selector:          cfg.Selector,
		perWorkspace:      cfg.PerWorkspace,
		maxWorkspaces:     cfg.MaxWorkspaces,
		selectionStrategy: cfg.SelectionStrategy,
	}, nil
}

// Search selects workspaces for req and queries each concurrently,
// collecting per-workspace errors rather than letting one workspace's
// failure abort the others.
func (f *FanOut) Search(ctx context.Context, req *model.SearchRequest) (model.VectorSearchResults, error) {
	start := time.Now()

	workspaceIDs, err := f.selector.Select(ctx, req, f.selectionStrategy)
	if err != nil {
		return model.VectorSearchResults{}, fmt.Errorf("workspace selection failed: %w", err)
	}
	if len(workspaceIDs) > f.maxWorkspaces {
		workspaceIDs = workspaceIDs[:f.maxWorkspaces]
	}

	var (
		mu      sync.Mutex
		results []model.SearchResult
		errs    = make(map[string]error)
	)

	// A sourcegraph/conc pool rather than errgroup: fan-out must never
	// cancel sibling branches on a per-workspace error (a failing
	// workspace degrades the result set, it doesn't abort the search),
	// and bounding goroutines to maxWorkspaces costs nothing extra since
	// that's already the fan-out width.
	wp := pool.New().WithMaxGoroutines(f.maxWorkspaces)
	for _, workspaceID := range workspaceIDs {
		workspaceID := workspaceID
		wp.Go(func() {
			wctx, cancel := context.WithTimeout(ctx, f.perWorkspace)
			defer cancel()

			hits, searchErr := f.searcher.SearchWorkspace(wctx, workspaceID, req.Query, req.Limit)

			mu.Lock()
			defer mu.Unlock()
			if searchErr != nil {
				errs[workspaceID] = searchErr
				return
			}
			for i := range hits {
				hits[i].WorkspaceID = workspaceID
			}
			results = append(results, hits...)
		})
	}
	wp.Wait()

	searched := make([]string, 0, len(workspaceIDs))
	for _, id := range workspaceIDs {
		if _, failed := errs[id]; !failed {
			searched = append(searched, id)
		}
	}

	return model.VectorSearchResults{
		Results:            results,
		Total:              len(results),
		WorkspaceErrors:    errs,
		WorkspacesSearched: searched,
		Duration:           time.Since(start),
	}, nil
}

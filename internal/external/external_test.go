package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/model"
)

type stubProvider struct {
	id      string
	delay   time.Duration
	results []model.SearchResult
	err     error
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}

func TestPool_FastestProviderWins(t *testing.T) {
	fast := &stubProvider{id: "fast", results: []model.SearchResult{{ContentID: "f1"}}}
	slow := &stubProvider{id: "slow", delay: 100 * time.Millisecond, results: []model.SearchResult{{ContentID: "s1"}}}

	pool, err := New(&Config{
		Providers:  []Provider{fast, slow},
		Priority:   []string{"fast", "slow"},
		HedgeDelay: 500 * time.Millisecond,
	})
	require.NoError(t, err)

	res := pool.Search(context.Background(), "react hooks", 10)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "f1", res.Results[0].ContentID)
	assert.Equal(t, "external_search", res.Results[0].Metadata["source"])
	assert.Equal(t, "fast", res.Results[0].Metadata["provider"])
}

func TestPool_HedgesToSecondProviderOnSlowFirst(t *testing.T) {
	slow := &stubProvider{id: "slow", delay: 200 * time.Millisecond, results: []model.SearchResult{{ContentID: "s1"}}}
	hedge := &stubProvider{id: "hedge", results: []model.SearchResult{{ContentID: "h1"}}}

	pool, err := New(&Config{
		Providers:  []Provider{slow, hedge},
		Priority:   []string{"slow", "hedge"},
		HedgeDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	res := pool.Search(context.Background(), "react hooks", 10)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "h1", res.Results[0].ContentID)
}

func TestPool_AllProvidersFailReportsFailure(t *testing.T) {
	a := &stubProvider{id: "a", err: errors.New("down")}
	b := &stubProvider{id: "b", err: errors.New("down")}

	pool, err := New(&Config{
		Providers:  []Provider{a, b},
		Priority:   []string{"a", "b"},
		HedgeDelay: time.Millisecond,
	})
	require.NoError(t, err)

	res := pool.Search(context.Background(), "react hooks", 10)
	assert.True(t, res.AllFailed)
	assert.Empty(t, res.Results)
	assert.Len(t, res.ProviderErrors, 2)
}

func TestPool_DefaultRelevanceAssignedWhenMissing(t *testing.T) {
	p := &stubProvider{id: "only", results: []model.SearchResult{{ContentID: "x"}}}
	pool, err := New(&Config{Providers: []Provider{p}})
	require.NoError(t, err)

	res := pool.Search(context.Background(), "q", 5)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 0.7, res.Results[0].RelevanceScore)
}

func TestPool_SetEnabledSkipsDisabledProvider(t *testing.T) {
	a := &stubProvider{id: "a", results: []model.SearchResult{{ContentID: "a1"}}}
	b := &stubProvider{id: "b", results: []model.SearchResult{{ContentID: "b1"}}}

	pool, err := New(&Config{Providers: []Provider{a, b}, Priority: []string{"a", "b"}})
	require.NoError(t, err)

	require.NoError(t, pool.SetEnabled("a", false))

	res := pool.Search(context.Background(), "q", 5)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "b1", res.Results[0].ContentID)

	require.Error(t, pool.SetEnabled("nope", false))
}

func TestPool_ReorderChangesDispatchPriority(t *testing.T) {
	a := &stubProvider{id: "a", delay: 50 * time.Millisecond, results: []model.SearchResult{{ContentID: "a1"}}}
	b := &stubProvider{id: "b", results: []model.SearchResult{{ContentID: "b1"}}}

	pool, err := New(&Config{Providers: []Provider{a, b}, Priority: []string{"a", "b"}, HedgeDelay: time.Second})
	require.NoError(t, err)

	require.NoError(t, pool.Reorder([]string{"b"}))
	assert.Equal(t, []string{"b", "a"}, pool.ProviderIDs())

	res := pool.Search(context.Background(), "q", 5)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "b1", res.Results[0].ContentID)

	require.Error(t, pool.Reorder([]string{"unknown"}))
}

func TestPool_TestConnectionReportsProviderFailure(t *testing.T) {
	ok := &stubProvider{id: "ok", results: []model.SearchResult{{ContentID: "x"}}}
	bad := &stubProvider{id: "bad", err: errors.New("unreachable")}

	pool, err := New(&Config{Providers: []Provider{ok, bad}})
	require.NoError(t, err)

	assert.NoError(t, pool.TestConnection(context.Background(), "ok"))
	assert.Error(t, pool.TestConnection(context.Background(), "bad"))
	assert.Error(t, pool.TestConnection(context.Background(), "missing"))
}

func TestPool_StatusReportsPriorityAndEnabled(t *testing.T) {
	a := &stubProvider{id: "a", results: []model.SearchResult{{ContentID: "a1"}}}
	b := &stubProvider{id: "b", results: []model.SearchResult{{ContentID: "b1"}}}

	pool, err := New(&Config{Providers: []Provider{a, b}, Priority: []string{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, pool.SetEnabled("b", false))

	statuses := pool.Status()
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].ID)
	assert.True(t, statuses[0].Enabled)
	assert.Equal(t, "b", statuses[1].ID)
	assert.False(t, statuses[1].Enabled)
}

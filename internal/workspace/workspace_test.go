package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/config"
	"github.com/bmeyer99/docaiche/internal/model"
)

type stubSearcher struct {
	delay   map[string]time.Duration
	err     map[string]error
	results map[string][]model.SearchResult
}

func (s stubSearcher) SearchWorkspace(ctx context.Context, workspaceID string, _ model.NormalizedQuery, _ int) ([]model.SearchResult, error) {
	if d, ok := s.delay[workspaceID]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := s.err[workspaceID]; ok {
		return nil, err
	}
	return s.results[workspaceID], nil
}

func TestFanOut_CollectsResultsAcrossWorkspaces(t *testing.T) {
	searcher := stubSearcher{
		results: map[string][]model.SearchResult{
			"ws-a": {{ContentID: "a1"}},
			"ws-b": {{ContentID: "b1"}, {ContentID: "b2"}},
		},
	}
	fo, err := New(&Config{Searcher: searcher, Selector: AllSelector{}})
	require.NoError(t, err)

	req := &model.SearchRequest{
		User:  model.UserContext{WorkspaceIDs: []string{"ws-a", "ws-b"}},
		Limit: 10,
	}
	out, err := fo.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	assert.ElementsMatch(t, []string{"ws-a", "ws-b"}, out.WorkspacesSearched)
	assert.Empty(t, out.WorkspaceErrors)
}

func TestFanOut_PartialFailureDoesNotAbortOthers(t *testing.T) {
	searcher := stubSearcher{
		err: map[string]error{"ws-a": errors.New("backend down")},
		results: map[string][]model.SearchResult{
			"ws-b": {{ContentID: "b1"}},
		},
	}
	fo, err := New(&Config{Searcher: searcher, Selector: AllSelector{}})
	require.NoError(t, err)

	req := &model.SearchRequest{
		User:  model.UserContext{WorkspaceIDs: []string{"ws-a", "ws-b"}},
		Limit: 10,
	}
	out, err := fo.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
	assert.Contains(t, out.WorkspaceErrors, "ws-a")
	assert.Equal(t, []string{"ws-b"}, out.WorkspacesSearched)
}

func TestFanOut_PerWorkspaceTimeoutIsolatesSlowWorkspace(t *testing.T) {
	searcher := stubSearcher{
		delay: map[string]time.Duration{"ws-slow": 50 * time.Millisecond},
		results: map[string][]model.SearchResult{
			"ws-fast": {{ContentID: "f1"}},
		},
	}
	fo, err := New(&Config{Searcher: searcher, Selector: AllSelector{}, PerWorkspace: 5 * time.Millisecond})
	require.NoError(t, err)

	req := &model.SearchRequest{
		User:  model.UserContext{WorkspaceIDs: []string{"ws-slow", "ws-fast"}},
		Limit: 10,
	}
	out, err := fo.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, out.WorkspaceErrors, "ws-slow")
	assert.Equal(t, []string{"ws-fast"}, out.WorkspacesSearched)
}

func TestFanOut_RespectsMaxWorkspaces(t *testing.T) {
	searcher := stubSearcher{
		results: map[string][]model.SearchResult{
			"ws-a": {{ContentID: "a1"}},
			"ws-b": {{ContentID: "b1"}},
			"ws-c": {{ContentID: "c1"}},
		},
	}
	fo, err := New(&Config{Searcher: searcher, Selector: AllSelector{}, MaxWorkspaces: 2})
	require.NoError(t, err)

	req := &model.SearchRequest{
		User:  model.UserContext{WorkspaceIDs: []string{"ws-a", "ws-b", "ws-c"}},
		Limit: 10,
	}
	out, err := fo.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, out.WorkspacesSearched, 2)
}

func TestManualSelector_FiltersUnreadableWorkspaces(t *testing.T) {
	sel := ManualSelector{Targets: func(*model.SearchRequest) []string { return []string{"ws-a", "ws-secret"} }}
	req := &model.SearchRequest{User: model.UserContext{WorkspaceIDs: []string{"ws-a"}}}
	ids, err := sel.Select(context.Background(), req, config.WorkspaceSelectionManual)
	require.NoError(t, err)
	assert.Equal(t, []string{"ws-a"}, ids)
}

func TestAIDrivenSelector_FallsBackWithoutDecider(t *testing.T) {
	sel := AIDrivenSelector{}
	req := &model.SearchRequest{User: model.UserContext{WorkspaceIDs: []string{"ws-a", "ws-b"}}}
	ids, err := sel.Select(context.Background(), req, config.WorkspaceSelectionAIDriven)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ws-a", "ws-b"}, ids)
}

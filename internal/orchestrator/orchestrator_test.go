package orchestrator

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/cache"
	"github.com/bmeyer99/docaiche/internal/config"
	"github.com/bmeyer99/docaiche/internal/decision"
	"github.com/bmeyer99/docaiche/internal/external"
	"github.com/bmeyer99/docaiche/internal/model"
	"github.com/bmeyer99/docaiche/internal/queryproc"
	"github.com/bmeyer99/docaiche/internal/rank"
	"github.com/bmeyer99/docaiche/internal/workspace"
)

type stubWorkspaceSearcher struct {
	hits []model.SearchResult
}

func (s stubWorkspaceSearcher) SearchWorkspace(_ context.Context, workspaceID string, _ model.NormalizedQuery, _ int) ([]model.SearchResult, error) {
	return s.hits, nil
}

type kindRoutingModel struct{}

func (kindRoutingModel) Name() string { return "router" }

func (kindRoutingModel) Complete(_ context.Context, systemPrompt, userPrompt string, _ int) (string, error) {
	return `{"overall_quality": 0.9, "relevance": 0.9, "completeness": 0.9}`, nil
}

type stubProvider struct {
	id   string
	hits []model.SearchResult
}

func (p stubProvider) ID() string { return p.id }

func (p stubProvider) Search(_ context.Context, _ string, _ int) ([]model.SearchResult, error) {
	return p.hits, nil
}

func newTestOrchestrator(t *testing.T, workspaceHits []model.SearchResult, settings *config.Config) *Orchestrator {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c, err := cache.New(&cache.Config{Store: cache.NewRedisStore(client)})
	require.NoError(t, err)

	fanOut, err := workspace.New(&workspace.Config{
		Searcher: stubWorkspaceSearcher{hits: workspaceHits},
		Selector: workspace.AllSelector{},
	})
	require.NoError(t, err)

	templates := decision.NewTemplateRegistry()
	decision.RegisterDefaultTemplates(templates)
	svc, err := decision.New(&decision.Config{
		Templates: templates,
		Primary:   kindRoutingModel{},
		Fallbacks: decision.DefaultFallbacks(),
	})
	require.NoError(t, err)

	ranker, err := rank.New(&rank.Config{})
	require.NoError(t, err)

	if settings == nil {
		settings = &config.Config{}
	}
	config.ApplyDefaults(settings)
	settings.Feature.ResultCaching = true
	settings.Feature.AIEvaluation = true
	settings.Feature.ExternalSearch = true
	settings.Feature.QueryRefinement = true
	settings.Feature.KnowledgeIngestion = true
	settings.Feature.SyncIngestion = true

	orch, err := New(&Config{
		Normalizer: queryproc.New(),
		Cache:      c,
		FanOut:     fanOut,
		Decisions:  svc,
		Ranker:     ranker,
		Settings:   settings,
	})
	require.NoError(t, err)
	return orch
}

func newRequest(query string) *model.SearchRequest {
	return &model.SearchRequest{
		RequestID: "req-1",
		Query:     model.NormalizedQuery{OriginalText: query},
		User:      model.UserContext{UserID: "user-1", WorkspaceIDs: []string{"ws-a"}},
		Limit:     10,
	}
}

func TestOrchestrator_CacheMissThenHit(t *testing.T) {
	orch := newTestOrchestrator(t, []model.SearchResult{
		{ContentID: "doc-1", Title: "React hooks", RelevanceScore: 0.9},
	}, nil)

	req := newRequest("how do react hooks work")
	resp, err := orch.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
	assert.Len(t, resp.Results, 1)
	assert.NotNil(t, resp.Evaluation)

	req2 := newRequest("how do react hooks work")
	resp2, err := orch.Run(context.Background(), req2)
	require.NoError(t, err)
	assert.True(t, resp2.CacheHit)
	assert.Len(t, resp2.Results, 1)
}

func TestOrchestrator_ValidationErrorPropagates(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	req := newRequest("a")
	_, err := orch.Run(context.Background(), req)
	require.Error(t, err)
}

func TestOrchestrator_ExternalSearchForceOn(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	pool, err := external.New(&external.Config{
		Providers: []external.Provider{
			stubProvider{id: "context7", hits: []model.SearchResult{
				{ContentID: "ext-1", Title: "Vue guide", SourceURL: "https://vuejs.org"},
			}},
		},
	})
	require.NoError(t, err)
	orch.external = pool

	req := newRequest("vue composition api guide")
	req.UseExternalSearch = model.ExternalSearchForceOn
	resp, err := orch.Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.ExternalSearchUsed)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ext-1", resp.Results[0].ContentID)
}

func TestOrchestrator_ExternalSearchForceOff(t *testing.T) {
	orch := newTestOrchestrator(t, []model.SearchResult{{ContentID: "doc-1"}}, nil)
	pool, err := external.New(&external.Config{
		Providers: []external.Provider{stubProvider{id: "context7"}},
	})
	require.NoError(t, err)
	orch.external = pool

	req := newRequest("internal only query")
	req.UseExternalSearch = model.ExternalSearchForceOff
	resp, err := orch.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.ExternalSearchUsed)
}

func TestOrchestrator_AnswerResponseType(t *testing.T) {
	orch := newTestOrchestrator(t, []model.SearchResult{
		{ContentID: "doc-1", Snippet: "hooks let you use state in function components"},
	}, nil)

	req := newRequest("explain react hooks")
	req.ResponseType = model.ResponseTypeAnswer
	resp, err := orch.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, []model.ResponseType{model.ResponseTypeRaw, model.ResponseTypeAnswer}, resp.ResponseType)
}

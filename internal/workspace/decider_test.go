package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/config"
	"github.com/bmeyer99/docaiche/internal/decision"
	"github.com/bmeyer99/docaiche/internal/model"
)

type fixedModel struct {
	raw string
}

func (m fixedModel) Name() string { return "fixed" }

func (m fixedModel) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	return m.raw, nil
}

func newDecisionService(t *testing.T, raw string) *decision.Service {
	t.Helper()
	templates := decision.NewTemplateRegistry()
	decision.RegisterDefaultTemplates(templates)
	svc, err := decision.New(&decision.Config{
		Templates: templates,
		Primary:   fixedModel{raw: raw},
		Fallbacks: decision.DefaultFallbacks(),
	})
	require.NoError(t, err)
	return svc
}

func TestQueryUnderstandingDecider_UsesModelSuggestedWorkspaces(t *testing.T) {
	svc := newDecisionService(t, `{"intent":"information_seeking","domain":"frontend","answer_type":"raw","suggested_workspaces":["react-docs","react-tutorials"]}`)
	decider := QueryUnderstandingDecider{Decisions: svc}

	req := &model.SearchRequest{
		Query: model.NormalizedQuery{NormalizedText: "react hooks"},
		User:  model.UserContext{UserID: "u1", WorkspaceIDs: []string{"react-docs", "react-tutorials", "other"}},
	}
	ids, err := decider.DecideWorkspaces(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"react-docs", "react-tutorials"}, ids)
}

func TestAIDrivenSelector_FiltersToReadableWorkspacesFromDecider(t *testing.T) {
	svc := newDecisionService(t, `{"suggested_workspaces":["react-docs","secret-internal"]}`)
	selector := AIDrivenSelector{Decider: QueryUnderstandingDecider{Decisions: svc}}

	req := &model.SearchRequest{
		Query: model.NormalizedQuery{NormalizedText: "react hooks"},
		User:  model.UserContext{UserID: "u1", WorkspaceIDs: []string{"react-docs"}},
	}
	ids, err := selector.Select(context.Background(), req, config.WorkspaceSelectionAIDriven)
	require.NoError(t, err)
	assert.Equal(t, []string{"react-docs"}, ids)
}

package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	name string
	raw  string
	err  error
}

func (m *stubModel) Name() string { return m.name }

func (m *stubModel) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return m.raw, m.err
}

type relevanceOutput struct {
	OverallQuality float64 `json:"overall_quality"`
}

func newRegistryWithTemplate() *TemplateRegistry {
	reg := NewTemplateRegistry()
	reg.Register(&PromptTemplate{
		DecisionType:     KindResultRelevance,
		Version:          1,
		Active:           true,
		Body:             "Evaluate: {{.Query}}",
		RequiredVariables: []string{"Query"},
	})
	return reg
}

func TestService_Decide_PrimarySucceeds(t *testing.T) {
	svc, err := New(&Config{
		Templates: newRegistryWithTemplate(),
		Primary:   &stubModel{name: "primary", raw: `{"overall_quality": 0.9}`},
	})
	require.NoError(t, err)

	var out relevanceOutput
	result, err := svc.Decide(context.Background(), KindResultRelevance, "user-1", map[string]any{"Query": "react"}, &out)
	require.NoError(t, err)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, 0.9, out.OverallQuality)
}

func TestService_Decide_FallsBackToSecondary(t *testing.T) {
	svc, err := New(&Config{
		Templates: newRegistryWithTemplate(),
		Primary:   &stubModel{name: "primary", err: errors.New("primary down")},
		Secondary: &stubModel{name: "secondary", raw: `{"overall_quality": 0.5}`},
	})
	require.NoError(t, err)

	var out relevanceOutput
	result, err := svc.Decide(context.Background(), KindResultRelevance, "user-1", map[string]any{"Query": "react"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "secondary", result.ModelUsed)
	assert.Equal(t, 0.5, out.OverallQuality)
}

func TestService_Decide_UsesDeterministicFallback(t *testing.T) {
	svc, err := New(&Config{
		Templates: newRegistryWithTemplate(),
		Primary:   &stubModel{name: "primary", err: errors.New("primary down")},
		Fallbacks: map[Kind]FallbackFunc{
			KindResultRelevance: func(variables map[string]any) (any, error) {
				return relevanceOutput{OverallQuality: 0.5}, nil
			},
		},
	})
	require.NoError(t, err)

	var out relevanceOutput
	result, err := svc.Decide(context.Background(), KindResultRelevance, "user-1", map[string]any{"Query": "react"}, &out)
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
	assert.Equal(t, 0.5, out.OverallQuality)
}

func TestService_Decide_NoFallbackSurfacesError(t *testing.T) {
	svc, err := New(&Config{
		Templates: newRegistryWithTemplate(),
		Primary:   &stubModel{name: "primary", err: errors.New("primary down")},
	})
	require.NoError(t, err)

	var out relevanceOutput
	_, err = svc.Decide(context.Background(), KindResultRelevance, "user-1", map[string]any{"Query": "react"}, &out)
	assert.Error(t, err)
}

package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplate_RenderMissingVariable(t *testing.T) {
	tmpl := &PromptTemplate{
		DecisionType:     KindQueryRefinement,
		Version:          1,
		Body:             "Refine: {{.Query}}",
		RequiredVariables: []string{"Query"},
	}
	_, err := tmpl.Render(map[string]any{})
	assert.Error(t, err)
}

func TestPromptTemplate_Render(t *testing.T) {
	tmpl := &PromptTemplate{
		DecisionType:     KindQueryRefinement,
		Version:          1,
		Body:             "Refine: {{.Query}}",
		RequiredVariables: []string{"Query"},
	}
	out, err := tmpl.Render(map[string]any{"Query": "react hooks"})
	require.NoError(t, err)
	assert.Equal(t, "Refine: react hooks", out)
}

func TestTemplateRegistry_ActiveVersionSwap(t *testing.T) {
	reg := NewTemplateRegistry()
	reg.Register(&PromptTemplate{DecisionType: KindResultRelevance, Version: 1, Active: true, Body: "v1"})
	reg.Register(&PromptTemplate{DecisionType: KindResultRelevance, Version: 2, Active: true, Body: "v2"})

	active := reg.Active(KindResultRelevance)
	require.NotNil(t, active)
	assert.Equal(t, 2, active.Version)

	versions := reg.Versions(KindResultRelevance)
	require.Len(t, versions, 2)
	assert.False(t, versions[0].Active)
	assert.True(t, versions[1].Active)
}

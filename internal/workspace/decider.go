package workspace

import (
	"context"

	"github.com/bmeyer99/docaiche/internal/decision"
	"github.com/bmeyer99/docaiche/internal/model"
)

// QueryUnderstandingDecider adapts the AI decision service's
// QueryUnderstanding output into the Decider contract AIDrivenSelector
// consumes, so the "ai_driven" workspace-selection strategy (the
// default) is actually backed by C4 rather than an empty stub.
type QueryUnderstandingDecider struct {
	Decisions *decision.Service
}

// DecideWorkspaces satisfies Decider.
func (d QueryUnderstandingDecider) DecideWorkspaces(ctx context.Context, req *model.SearchRequest) ([]string, error) {
	var out decision.QueryUnderstandingOutput
	vars := map[string]any{
		"Query":          req.Query.NormalizedText,
		"TechnologyHint": req.Query.TechnologyHint,
	}
	if _, err := d.Decisions.Decide(ctx, decision.KindQueryUnderstanding, req.User.UserID, vars, &out); err != nil {
		return nil, err
	}
	return out.SuggestedWorkspaces, nil
}

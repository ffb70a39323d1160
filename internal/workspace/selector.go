package workspace

import (
	"context"

	"github.com/bmeyer99/docaiche/internal/config"
	"github.com/bmeyer99/docaiche/internal/model"
)

// AllSelector fans out to every workspace the caller can read, in the order
// the user context lists them.
type AllSelector struct{}

func (AllSelector) Select(_ context.Context, req *model.SearchRequest, _ config.WorkspaceSelectionStrategy) ([]string, error) {
	return append([]string(nil), req.User.WorkspaceIDs...), nil
}

// ManualSelector fans out only to the workspaces the request explicitly
// named via ProviderOverrides-style manual targeting, filtered to those the
// user may read.
type ManualSelector struct {
	Targets func(req *model.SearchRequest) []string
}

func (m ManualSelector) Select(_ context.Context, req *model.SearchRequest, _ config.WorkspaceSelectionStrategy) ([]string, error) {
	var targets []string
	if m.Targets != nil {
		targets = m.Targets(req)
	}
	selected := make([]string, 0, len(targets))
	for _, id := range targets {
		if req.User.CanRead(id) {
			selected = append(selected, id)
		}
	}
	return selected, nil
}

// Decider picks workspaces using an upstream decision, typically the AI
// decision service's QueryUnderstanding output.
type Decider interface {
	DecideWorkspaces(ctx context.Context, req *model.SearchRequest) ([]string, error)
}

// AIDrivenSelector delegates workspace choice to a Decider and falls back
// to every readable workspace if the decider cannot produce an answer.
type AIDrivenSelector struct {
	Decider Decider
}

func (s AIDrivenSelector) Select(ctx context.Context, req *model.SearchRequest, _ config.WorkspaceSelectionStrategy) ([]string, error) {
	if s.Decider == nil {
		return AllSelector{}.Select(ctx, req, "")
	}
	chosen, err := s.Decider.DecideWorkspaces(ctx, req)
	if err != nil || len(chosen) == 0 {
		return AllSelector{}.Select(ctx, req, "")
	}
	readable := make([]string, 0, len(chosen))
	for _, id := range chosen {
		if req.User.CanRead(id) {
			readable = append(readable, id)
		}
	}
	if len(readable) == 0 {
		return AllSelector{}.Select(ctx, req, "")
	}
	return readable, nil
}

// StrategySelector dispatches Select to the concrete selector matching the
// request's configured strategy.
type StrategySelector struct {
	AIDriven AIDrivenSelector
	All      AllSelector
	Manual   ManualSelector
}

func (s StrategySelector) Select(ctx context.Context, req *model.SearchRequest, strategy config.WorkspaceSelectionStrategy) ([]string, error) {
	switch strategy {
	case config.WorkspaceSelectionAll:
		return s.All.Select(ctx, req, strategy)
	case config.WorkspaceSelectionManual:
		return s.Manual.Select(ctx, req, strategy)
	default:
		return s.AIDriven.Select(ctx, req, strategy)
	}
}

package vectorindex

import (
	"context"
	"fmt"

	"github.com/bmeyer99/docaiche/internal/model"
)

// Embedder turns query text into the vector representation the index
// compares against. It is an external collaborator (the embedding model's
// HTTP client lives outside the core per the spec's scope) injected here
// so the fan-out stage never has to know about embeddings directly.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// WorkspaceSearcher adapts an Index plus an Embedder into the
// workspace.Searcher contract the fan-out stage dispatches through.
type WorkspaceSearcher struct {
	index    *Index
	embedder Embedder
	minScore float64
}

// NewWorkspaceSearcher builds a WorkspaceSearcher. minScore filters out
// low-confidence hits before they ever reach the ranker.
func NewWorkspaceSearcher(index *Index, embedder Embedder, minScore float64) *WorkspaceSearcher {
	return &WorkspaceSearcher{index: index, embedder: embedder, minScore: minScore}
}

// SearchWorkspace embeds query.NormalizedText and runs a similarity search
// scoped to workspaceID, satisfying workspace.Searcher.
func (s *WorkspaceSearcher) SearchWorkspace(ctx context.Context, workspaceID string, query model.NormalizedQuery, limit int) ([]model.SearchResult, error) {
	vector, err := s.embedder.Embed(ctx, query.NormalizedText)
	if err != nil {
		return nil, fmt.Errorf("embed query for workspace %s: %w", workspaceID, err)
	}

	return s.index.Search(ctx, Query{
		WorkspaceID:   workspaceID,
		Vector:        vector,
		Limit:         limit,
		MinScore:      s.minScore,
		TechnologyTag: query.TechnologyHint,
	})
}

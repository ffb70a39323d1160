package mcptool

import (
	"context"

	"github.com/bmeyer99/docaiche/internal/model"
)

// Searcher is the subset of the orchestrator this tool depends on.
type Searcher interface {
	Run(ctx context.Context, req *model.SearchRequest) (model.SearchResponse, error)
}

// SearchArgs is the `search` tool's logical input: required query,
// optional technology, limit, offset.
type SearchArgs struct {
	Query          string
	Technology     string
	Limit          int
	Offset         int
	SessionID      string
}

// SearchTool implements the MCP `search` tool contract: required query,
// optional technology/limit/offset, returns a SearchResponse.
type SearchTool struct {
	orchestrator Searcher
	user         model.UserContext
}

// NewSearchTool builds a SearchTool bound to orchestrator, issuing every
// call under the given default user context (the MCP transport layer is
// responsible for resolving the caller's identity into this context
// before invoking the tool).
func NewSearchTool(orchestrator Searcher, user model.UserContext) *SearchTool {
	return &SearchTool{orchestrator: orchestrator, user: user}
}

// Name satisfies ToolHandler.
func (t *SearchTool) Name() string { return "search" }

// Call validates args and runs the full search pipeline, returning its
// SearchResponse.
func (t *SearchTool) Call(ctx context.Context, args SearchArgs) (model.SearchResponse, error) {
	if len(args.Query) < 2 || len(args.Query) > 256 {
		return model.SearchResponse{}, validationErrf("query must be 2-256 characters, got %d", len(args.Query))
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}

	req := &model.SearchRequest{
		Query: model.NormalizedQuery{
			OriginalText:   args.Query,
			TechnologyHint: args.Technology,
		},
		User:         t.user,
		ResponseType: model.ResponseTypeRaw,
		Limit:        limit,
		Offset:       args.Offset,
	}
	if args.SessionID != "" {
		req.User.SessionID = args.SessionID
	}
	return t.orchestrator.Run(ctx, req)
}

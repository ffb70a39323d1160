package decision

import "github.com/spf13/cast"

// DefaultFallbacks returns the conservative, deterministic fallback policy
// for every decision kind: the answer each decision returns when the LLM
// call fails, errors, or returns unparseable output. None of these ever
// fail themselves.
func DefaultFallbacks() map[Kind]FallbackFunc {
	return map[Kind]FallbackFunc{
		KindQueryUnderstanding: func(map[string]any) (any, error) {
			return QueryUnderstandingOutput{
				Intent:     "information_seeking",
				AnswerType: "raw",
			}, nil
		},
		KindResultRelevance: func(variables map[string]any) (any, error) {
			return ResultRelevanceOutput{
				OverallQuality:      0.5,
				Relevance:           0.5,
				Completeness:        0.5,
				NeedsRefinement:     false,
				NeedsExternalSearch: true,
				Confidence:          0,
				Reasoning:           "decision service fallback: unable to evaluate results",
			}, nil
		},
		KindQueryRefinement: func(variables map[string]any) (any, error) {
			return QueryRefinementOutput{
				RefinedQuery: cast.ToString(variables["Query"]),
				Strategy:     "unchanged",
			}, nil
		},
		KindExternalSearchDecision: func(variables map[string]any) (any, error) {
			quality := cast.ToFloat64(variables["OverallQuality"])
			return ExternalSearchDecisionOutput{
				UseExternal: quality < 0.6,
				Reasoning:   "decision service fallback: use external if quality < 0.6",
			}, nil
		},
		KindExternalSearchQuery: func(variables map[string]any) (any, error) {
			return ExternalSearchQueryOutput{Query: cast.ToString(variables["Query"])}, nil
		},
		KindContentExtraction: func(variables map[string]any) (any, error) {
			return ContentExtractionOutput{Content: cast.ToString(variables["Content"])}, nil
		},
		KindResponseFormatSelection: func(map[string]any) (any, error) {
			return ResponseFormatSelectionOutput{
				ResponseType: "raw",
				Reasoning:    "decision service fallback: default to raw excerpts",
			}, nil
		},
		KindLearningOpportunities: func(map[string]any) (any, error) {
			return LearningOpportunitiesOutput{}, nil
		},
		KindProviderSelection: func(variables map[string]any) (any, error) {
			providers := cast.ToStringSlice(variables["AvailableProviders"])
			providerID := ""
			if len(providers) > 0 {
				providerID = providers[0]
			}
			return ProviderSelectionOutput{
				ProviderID: providerID,
				Reasoning:  "decision service fallback: first available provider",
			}, nil
		},
		KindFailureAnalysis: func(map[string]any) (any, error) {
			return FailureAnalysisOutput{
				UserMessage: "No results could be found for this query.",
			}, nil
		},
	}
}

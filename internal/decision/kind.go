// Package decision implements the AI decision service: the ten
// LLM-backed decision types used throughout the pipeline, their prompt
// templates, deterministic fallbacks, and A/B-tested variant assignment.
package decision

// Kind identifies one of the ten decision types the orchestrator can ask
// the decision service to make.
type Kind string

const (
	KindQueryUnderstanding     Kind = "query_understanding"
	KindResultRelevance        Kind = "result_relevance"
	KindQueryRefinement        Kind = "query_refinement"
	KindExternalSearchDecision Kind = "external_search_decision"
	KindExternalSearchQuery    Kind = "external_search_query"
	KindContentExtraction      Kind = "content_extraction"
	KindResponseFormatSelection Kind = "response_format_selection"
	KindLearningOpportunities  Kind = "learning_opportunities"
	KindProviderSelection      Kind = "provider_selection"
	KindFailureAnalysis        Kind = "failure_analysis"
)

// AllKinds lists every decision type, used to validate template and A/B
// test registrations cover the full set.
var AllKinds = []Kind{
	KindQueryUnderstanding,
	KindResultRelevance,
	KindQueryRefinement,
	KindExternalSearchDecision,
	KindExternalSearchQuery,
	KindContentExtraction,
	KindResponseFormatSelection,
	KindLearningOpportunities,
	KindProviderSelection,
	KindFailureAnalysis,
}

package decision

// These types are the typed `out` targets callers pass to Service.Decide
// for each Kind. They mirror the JSON shape each decision's prompt
// template is instructed to return; json tags match the snake_case keys
// the model is asked to produce.

// QueryUnderstandingOutput is the decoded result of KindQueryUnderstanding.
type QueryUnderstandingOutput struct {
	Intent             string   `json:"intent"`
	Domain             string   `json:"domain"`
	AnswerType         string   `json:"answer_type"`
	Entities           []string `json:"entities"`
	SuggestedWorkspaces []string `json:"suggested_workspaces"`
}

// ResultRelevanceOutput is the decoded result of KindResultRelevance. Its
// shape matches model.EvaluationResult field-for-field so a caller can
// copy it directly into a SearchResponse.
type ResultRelevanceOutput struct {
	OverallQuality       float64  `json:"overall_quality"`
	Relevance            float64  `json:"relevance"`
	Completeness         float64  `json:"completeness"`
	NeedsRefinement      bool     `json:"needs_refinement"`
	NeedsExternalSearch  bool     `json:"needs_external_search"`
	MissingInformation   []string `json:"missing_information"`
	SuggestedRefinements []string `json:"suggested_refinements"`
	RecommendedProviders []string `json:"recommended_providers"`
	Confidence           float64  `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	KnowledgeGaps        []string `json:"knowledge_gaps"`
}

// QueryRefinementOutput is the decoded result of KindQueryRefinement.
type QueryRefinementOutput struct {
	RefinedQuery string   `json:"refined_query"`
	Strategy     string   `json:"strategy"`
	AddedTerms   []string `json:"added_terms"`
	RemovedTerms []string `json:"removed_terms"`
}

// ExternalSearchDecisionOutput is the decoded result of
// KindExternalSearchDecision.
type ExternalSearchDecisionOutput struct {
	UseExternal          bool     `json:"use_external"`
	Reasoning            string   `json:"reasoning"`
	RecommendedProviders []string `json:"recommended_providers"`
}

// ExternalSearchQueryOutput is the decoded result of KindExternalSearchQuery.
type ExternalSearchQueryOutput struct {
	Query           string   `json:"query"`
	QuotedPhrases   []string `json:"quoted_phrases"`
	RequiredTerms   []string `json:"required_terms"`
	ExcludedTerms   []string `json:"excluded_terms"`
	SiteRestrictions []string `json:"site_restrictions"`
}

// ContentExtractionOutput is the decoded result of KindContentExtraction.
type ContentExtractionOutput struct {
	Content          string `json:"content"`
	NavigationStripped bool `json:"navigation_stripped"`
	CodeBlockCount   int    `json:"code_block_count"`
}

// ResponseFormatSelectionOutput is the decoded result of
// KindResponseFormatSelection.
type ResponseFormatSelectionOutput struct {
	ResponseType string `json:"response_type"` // "raw" | "answer"
	Reasoning    string `json:"reasoning"`
}

// LearningGap is one entry in LearningOpportunitiesOutput.
type LearningGap struct {
	Gap              string `json:"gap"`
	Priority         string `json:"priority"`
	SourceSuggestion string `json:"source_suggestion"`
	WorkspaceID      string `json:"workspace_id"`
}

// LearningOpportunitiesOutput is the decoded result of
// KindLearningOpportunities.
type LearningOpportunitiesOutput struct {
	Gaps []LearningGap `json:"gaps"`
}

// ProviderSelectionOutput is the decoded result of KindProviderSelection.
type ProviderSelectionOutput struct {
	ProviderID string `json:"provider_id"`
	Reasoning  string `json:"reasoning"`
}

// FailureAnalysisOutput is the decoded result of KindFailureAnalysis.
type FailureAnalysisOutput struct {
	Reasons              []string `json:"reasons"`
	QueryIssues          []string `json:"query_issues"`
	MissingDomains       []string `json:"missing_domains"`
	TechnicalLimitations []string `json:"technical_limitations"`
	UserMessage          string   `json:"user_message"`
}

// Package model holds the immutable value records shared across every
// pipeline stage. Nothing in this package mutates a value once
// constructed; stages that need a modified copy build a new record.
package model

import "time"

// NormalizedQuery is produced once by the query normalizer and
// consumed by every downstream stage. Identical NormalizedText plus
// TechnologyHint must always produce an identical Fingerprint.
type NormalizedQuery struct {
	OriginalText     string
	NormalizedText   string
	Fingerprint      string
	TechnologyHint   string
	Tokens           []string
}

// ResponseType selects between a raw excerpt response and an AI-synthesized
// answer with citations.
type ResponseType string

const (
	ResponseTypeRaw    ResponseType = "raw"
	ResponseTypeAnswer ResponseType = "answer"
)

// ExternalSearchMode is the request's tri-state external-search override.
type ExternalSearchMode string

const (
	ExternalSearchAuto    ExternalSearchMode = "auto"
	ExternalSearchForceOn ExternalSearchMode = "force-on"
	ExternalSearchForceOff ExternalSearchMode = "force-off"
)

// UserContext describes the caller on whose behalf a search executes. The
// rate limiter is the only component allowed to mutate RequestCounters.
type UserContext struct {
	UserID           string
	SessionID        string
	WorkspaceIDs     []string
	RateLimitTier    string
	RequestCounters  map[string]int
}

// CanRead reports whether the user context may read from workspaceID.
func (u *UserContext) CanRead(workspaceID string) bool {
	for _, id := range u.WorkspaceIDs {
		if id == workspaceID {
			return true
		}
	}
	return false
}

// SearchRequest is the full admitted-or-rejected unit handled by the
// priority queue and orchestrator.
type SearchRequest struct {
	RequestID          string
	Query              NormalizedQuery
	User               UserContext
	Priority           float64 // 0..10
	ResponseType       ResponseType
	ProviderOverrides  []string
	UseExternalSearch  ExternalSearchMode
	Limit              int
	Offset             int
	CreatedAt          time.Time
	QueueEnteredAt      time.Time
}

// ContentType enumerates the kind of content a SearchResult represents.
type ContentType string

const (
	ContentTypeAPI            ContentType = "api"
	ContentTypeGuide          ContentType = "guide"
	ContentTypeTutorial       ContentType = "tutorial"
	ContentTypeReference      ContentType = "reference"
	ContentTypeChangelog      ContentType = "changelog"
	ContentTypeGettingStarted ContentType = "getting_started"
	ContentTypeInstallation   ContentType = "installation"
	ContentTypeBlog           ContentType = "blog"
	ContentTypeNews           ContentType = "news"
)

// SearchResult is one hit, from either the vector index or an external
// provider.
type SearchResult struct {
	ContentID      string
	Title          string
	Snippet        string
	FullContent    string
	SourceURL      string
	WorkspaceID    string
	TechnologyTag  string
	ContentType    ContentType
	RelevanceScore float64
	RecencyScore   float64
	QualityScore   float64
	Metadata       map[string]any
}

// IsExternal reports whether this result was produced by the external
// provider pool, identified by its `source=external_search` metadata
// flag.
func (r *SearchResult) IsExternal() bool {
	if r.Metadata == nil {
		return false
	}
	source, _ := r.Metadata["source"].(string)
	return source == "external_search"
}

// Provider returns the external provider id attached to this result's
// metadata, or "" if this is not an external result.
func (r *SearchResult) Provider() string {
	if r.Metadata == nil {
		return ""
	}
	provider, _ := r.Metadata["provider"].(string)
	return provider
}

// VectorSearchResults is the aggregate output of the per-workspace fan-out,
// merged with any external results the orchestrator later folds in.
type VectorSearchResults struct {
	Results              []SearchResult
	Total                int
	WorkspaceErrors      map[string]error
	WorkspacesSearched   []string
	ExternalProviders    []string
	Duration             time.Duration
}

// EvaluationResult is the typed output of the AI decision service's
// ResultRelevance decision.
type EvaluationResult struct {
	OverallQuality       float64
	Relevance            float64
	Completeness         float64
	NeedsRefinement      bool
	NeedsExternalSearch  bool
	MissingInformation   []string
	SuggestedRefinements []string
	RecommendedProviders []string
	Confidence           float64
	Reasoning            string
	KnowledgeGaps        []string
}

// RefinementRecord captures the single refinement pass the orchestrator may
// apply to a query that scored poorly on relevance.
type RefinementRecord struct {
	Applied      bool
	RefinedQuery string
	Strategy     string
	AddedTerms   []string
	RemovedTerms []string
}

// LearningGap is one entry in the AI decision service's
// LearningOpportunities output: a gap in cached knowledge the pipeline
// surfaced while answering a query, with enough context for the async
// enrichment job runner to act on it.
type LearningGap struct {
	Gap              string
	Priority         string
	SourceSuggestion string
	WorkspaceID      string
}

// FailureAnalysis is the embedded outcome of the AI decision service's
// FailureAnalysis decision, attached only when every external provider
// failed and internal results were also insufficient; it never fails the
// read path, it only explains why the response is thin.
type FailureAnalysis struct {
	Reasons              []string
	QueryIssues          []string
	MissingDomains       []string
	TechnicalLimitations []string
	UserMessage          string
}

// IngestionStatus is the embedded outcome of the TTL-aware ingestion path,
// attached to a SearchResponse but never failing the read path.
type IngestionStatus struct {
	Success       bool
	IngestedCount int
	Duration      time.Duration
	SourceTag     string
	Type          string // "synchronous" | "asynchronous"
	Error         string
}

// DocumentType classifies a document discovered by external search for TTL
// and presentation purposes. It overlaps with ContentType but is kept
// distinct: ContentType describes a SearchResult hit, DocumentType
// classifies an ingested TTLDocument, and the ingestion path's heuristic
// classifier produces a few values (e.g. "news") ContentType never needs.
type DocumentType string

const (
	DocumentTypeAPI            DocumentType = "api"
	DocumentTypeGuide          DocumentType = "guide"
	DocumentTypeTutorial       DocumentType = "tutorial"
	DocumentTypeReference      DocumentType = "reference"
	DocumentTypeChangelog      DocumentType = "changelog"
	DocumentTypeGettingStarted DocumentType = "getting_started"
	DocumentTypeInstallation   DocumentType = "installation"
	DocumentTypeBlog           DocumentType = "blog"
	DocumentTypeNews           DocumentType = "news"
)

// QualityIndicators are the cheap structural signals the ingestion path
// extracts from a document's content to feed the TTL quality multiplier and
// to help future ranking.
type QualityIndicators struct {
	HasCode     bool
	LinkCount   int
	WordCount   int
	HeaderCount int
}

// TTLDocument is the ingestion path's output: a document selected for
// later indexing, tagged with the expiration computed from its technology,
// type, content, version, and quality signals.
type TTLDocument struct {
	ContentID    string
	Content      string
	SourceURL    string
	Technology   string
	Owner        string
	Version      string
	DocumentType DocumentType
	TTLDays      int
	CreatedAt    time.Time
	ExpiresAt    time.Time
	SourceTag    string
	Quality      QualityIndicators
}

// SearchResponse is the cached unit: it echoes the query, holds the ranked
// results, and carries every piece of metadata the orchestrator
// accumulated while producing them.
type SearchResponse struct {
	Query               string
	NormalizedQuery     string
	Fingerprint         string
	Results             []SearchResult
	ResponseType        ResponseType
	Answer              string
	ExecutionTime       time.Duration
	CacheHit            bool
	ExternalSearchUsed  bool
	EnrichmentTriggered bool
	Refinement          *RefinementRecord
	Ingestion           *IngestionStatus
	Evaluation          *EvaluationResult
	LearningGaps        []LearningGap
	FailureAnalysis     *FailureAnalysis
	Total               int
	Limit               int
	Offset              int
}

// Package orchestrator implements the search pipeline (C9): the single
// entry point that normalizes a query, consults the result cache, fans
// out across workspaces, asks the AI decision service to evaluate and
// possibly refine the results, optionally dispatches external search,
// extracts a synthesized answer, triggers TTL-aware ingestion, and
// stores the final response back in the cache.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmeyer99/docaiche/internal/apperr"
	"github.com/bmeyer99/docaiche/internal/cache"
	"github.com/bmeyer99/docaiche/internal/config"
	"github.com/bmeyer99/docaiche/internal/decision"
	"github.com/bmeyer99/docaiche/internal/external"
	"github.com/bmeyer99/docaiche/internal/ingest"
	"github.com/bmeyer99/docaiche/internal/model"
	"github.com/bmeyer99/docaiche/internal/obs"
	"github.com/bmeyer99/docaiche/internal/queryproc"
	"github.com/bmeyer99/docaiche/internal/rank"
	"github.com/bmeyer99/docaiche/internal/workspace"
)

// refinementQualityFloor and refinementQualityCeiling bound the overall
// quality window in which a single refinement pass is attempted: below
// the floor the results are too poor for refinement to likely help, at or
// above the ceiling they are already good enough.
const (
	refinementQualityFloor   = 0.4
	refinementQualityCeiling = 0.8
	externalSearchQualityFloor = 0.6
)

// AsyncEnrichmentFunc schedules an asynchronous enrichment job for hits
// that were not ingested synchronously. The orchestrator only enqueues;
// an external job runner owns execution.
type AsyncEnrichmentFunc func(ctx context.Context, hits []model.SearchResult, sourceTag string)

// Config configures an Orchestrator. Every collaborator is a leaf
// component built elsewhere and wired in here; the orchestrator owns no
// storage of its own.
type Config struct {
	Normalizer      *queryproc.Normalizer
	Cache           *cache.Cache
	FanOut          *workspace.FanOut
	Decisions       *decision.Service
	External        *external.Pool
	Ranker          *rank.Ranker
	Ingestion       *ingest.Path
	Emitter         *obs.Emitter
	Settings        *config.Config
	AsyncEnrichment AsyncEnrichmentFunc
	Logger          *slog.Logger
}

func (c *Config) validate() error {
	if c.Normalizer == nil {
		return errors.New("orchestrator config: normalizer is required")
	}
	if c.Cache == nil {
		return errors.New("orchestrator config: cache is required")
	}
	if c.FanOut == nil {
		return errors.New("orchestrator config: fan-out is required")
	}
	if c.Decisions == nil {
		return errors.New("orchestrator config: decision service is required")
	}
	if c.Ranker == nil {
		return errors.New("orchestrator config: ranker is required")
	}
	if c.Settings == nil {
		c.Settings = &config.Config{}
		config.ApplyDefaults(c.Settings)
	}
	if c.Emitter == nil {
		c.Emitter = obs.NewEmitter(c.Logger)
	}
	return nil
}

// Orchestrator runs the full search pipeline end to end.
type Orchestrator struct {
	normalizer *queryproc.Normalizer
	cache      *cache.Cache
	fanOut     *workspace.FanOut
	decisions  *decision.Service
	external   *external.Pool
	ranker     *rank.Ranker
	ingestion  *ingest.Path
	emitter    *obs.Emitter
	settings   *config.Config
	asyncJob   AsyncEnrichmentFunc
}

// New builds an Orchestrator from cfg.
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		normalizer: cfg.Normalizer,
		cache:      cfg.Cache,
		fanOut:     cfg.FanOut,
		decisions:  cfg.Decisions,
		external:   cfg.External,
		ranker:     cfg.Ranker,
		ingestion:  cfg.Ingestion,
		emitter:    cfg.Emitter,
		settings:   cfg.Settings,
		asyncJob:   cfg.AsyncEnrichment,
	}, nil
}

// Name satisfies obs.HealthChecker.
func (o *Orchestrator) Name() string { return "orchestrator" }

// HealthCheck aggregates the cache and external provider pool's health;
// the vector index and decision model backends are checked by whatever
// leaf collaborators the caller registers alongside this one.
func (o *Orchestrator) HealthCheck(ctx context.Context) error {
	leaves := []obs.HealthChecker{o.cache}
	if o.external != nil {
		leaves = append(leaves, o.external)
	}
	status, results := obs.AggregateHealth(ctx, leaves)
	if status == obs.StatusHealthy {
		return nil
	}
	return fmt.Errorf("orchestrator dependencies %s: %v", status, results)
}

// Run executes every stage of the pipeline for req and returns the
// resulting SearchResponse. A *apperr.Error is always the concrete type
// of a non-nil error.
func (o *Orchestrator) Run(ctx context.Context, req *model.SearchRequest) (model.SearchResponse, error) {
	start := time.Now()

	traceID := obs.TraceID(ctx)
	if traceID == "" {
		traceID = obs.NewTraceID()
		ctx = obs.WithTraceID(ctx, traceID)
	}

	totalTimeout := time.Duration(o.settings.Timeout.TotalSeconds * float64(time.Second))
	ctx, cancel := context.WithTimeout(ctx, totalTimeout)
	defer cancel()

	resp, err := o.run(ctx, req)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return resp, appErr
		}
		return resp, apperr.Fatal("orchestration", "", err)
	}

	resp.ExecutionTime = time.Since(start)
	o.emitter.Step(ctx, "orchestration_complete", resp.ExecutionTime,
		slog.Bool("cache_hit", resp.CacheHit),
		slog.Int("result_count", len(resp.Results)))
	return resp, nil
}

func (o *Orchestrator) run(ctx context.Context, req *model.SearchRequest) (model.SearchResponse, error) {
	// Stage 1: normalize.
	normalized, err := o.normalizer.Normalize(req.Query.OriginalText, req.Query.TechnologyHint)
	if err != nil {
		return model.SearchResponse{}, err
	}
	req.Query = normalized

	// Stage 2: cache lookup.
	if o.settings.Feature.ResultCaching {
		stageStart := time.Now()
		if hit, ok := o.cache.Lookup(ctx, normalized.Fingerprint); ok {
			o.emitter.Step(ctx, "cache_lookup", time.Since(stageStart), slog.Bool("hit", true))
			return *hit, nil
		}
		o.emitter.Step(ctx, "cache_lookup", time.Since(stageStart), slog.Bool("hit", false))
	}

	forcedExternal := req.UseExternalSearch == model.ExternalSearchForceOn

	var (
		vectorResults model.VectorSearchResults
		evaluation    model.EvaluationResult
		refinement    *RefinementOutcome
	)

	if !forcedExternal {
		vr, err := o.searchWorkspaces(ctx, req)
		if err != nil {
			return model.SearchResponse{}, err
		}
		vectorResults = vr

		if ctx.Err() != nil {
			return model.SearchResponse{}, apperr.Timeout("vector_fanout", ctx.Err())
		}

		if o.settings.Feature.AIEvaluation {
			evaluation = o.evaluateResults(ctx, req, vectorResults)

			if o.settings.Feature.QueryRefinement &&
				evaluation.OverallQuality >= refinementQualityFloor &&
				evaluation.OverallQuality < refinementQualityCeiling {
				refinement, vectorResults, evaluation = o.refineOnce(ctx, req, vectorResults, evaluation)
			}
		}
	} else {
		evaluation.NeedsExternalSearch = true
	}

	// Stage 7: external-search decision and dispatch.
	var (
		externalHits []model.SearchResult
		externalUsed bool
		allFailed    bool
		providersUsed []string
	)

	var failureAnalysis *model.FailureAnalysis

	useExternal, reason := o.decideExternalSearch(ctx, req, evaluation, forcedExternal)
	if useExternal && o.external != nil {
		extQuery := o.buildExternalQuery(ctx, req, evaluation)
		preferred := o.selectProviderOrder(ctx, req, evaluation)
		result := o.external.SearchOrdered(ctx, extQuery, req.Limit, preferred)
		externalHits = result.Results
		externalUsed = len(result.ProvidersUsed) > 0
		allFailed = result.AllFailed
		providersUsed = result.ProvidersUsed
		o.emitter.Step(ctx, "external_search", 0,
			slog.Bool("used", externalUsed),
			slog.Bool("all_failed", allFailed),
			slog.String("reason", reason))

		if allFailed && len(vectorResults.Results) == 0 {
			failureAnalysis = o.analyzeFailure(ctx, req, result.ProviderErrors)
		}
	}

	if ctx.Err() != nil {
		return model.SearchResponse{}, apperr.Timeout("external_search", ctx.Err())
	}

	merged := o.ranker.Merge(vectorResults.Results, externalHits, req.Limit, req.Offset)

	resp := model.SearchResponse{
		Query:              req.Query.OriginalText,
		NormalizedQuery:    req.Query.NormalizedText,
		Fingerprint:        req.Query.Fingerprint,
		Results:            merged,
		ResponseType:       model.ResponseTypeRaw,
		CacheHit:           false,
		ExternalSearchUsed: externalUsed,
		Refinement:         refinement.record(),
		Total:              len(merged),
		Limit:              req.Limit,
		Offset:             req.Offset,
	}
	if o.settings.Feature.AIEvaluation {
		eval := evaluation
		resp.Evaluation = &eval
		if len(evaluation.KnowledgeGaps) > 0 {
			resp.LearningGaps = o.identifyLearningOpportunities(ctx, req, evaluation)
		}
	}
	resp.FailureAnalysis = failureAnalysis
	// Stage 8: answer extraction, response-type "answer" only.
	if req.ResponseType == model.ResponseTypeAnswer {
		o.extractAnswer(ctx, req, &resp)
	}

	// Stage 9: conditional ingestion.
	if o.settings.Feature.KnowledgeIngestion && evaluation.NeedsExternalSearch && len(externalHits) > 0 {
		status := o.ingestExternalHits(ctx, externalHits, providersUsed)
		if status != nil {
			resp.Ingestion = status
			resp.EnrichmentTriggered = true
		}
	}

	// Stage 10: cache store.
	if o.settings.Feature.ResultCaching {
		stored := resp
		stored.CacheHit = false
		if err := o.cache.Store(ctx, req.Query.Fingerprint, &stored); err != nil {
			o.emitter.Step(ctx, "cache_store", 0, slog.String("error", err.Error()))
		}
	}

	return resp, nil
}

func (o *Orchestrator) searchWorkspaces(ctx context.Context, req *model.SearchRequest) (model.VectorSearchResults, error) {
	stageStart := time.Now()
	vr, err := o.fanOut.Search(ctx, req)
	o.emitter.Step(ctx, "vector_fanout", time.Since(stageStart),
		slog.Int("result_count", len(vr.Results)),
		slog.Int("workspace_errors", len(vr.WorkspaceErrors)))
	return vr, err
}

func (o *Orchestrator) evaluateResults(ctx context.Context, req *model.SearchRequest, vr model.VectorSearchResults) model.EvaluationResult {
	var out decision.ResultRelevanceOutput
	vars := map[string]any{
		"Query":       req.Query.NormalizedText,
		"ResultCount": len(vr.Results),
	}
	_, _ = o.decisions.Decide(ctx, decision.KindResultRelevance, req.User.UserID, vars, &out)
	return model.EvaluationResult{
		OverallQuality:       out.OverallQuality,
		Relevance:            out.Relevance,
		Completeness:         out.Completeness,
		NeedsRefinement:      out.NeedsRefinement,
		NeedsExternalSearch:  out.NeedsExternalSearch,
		MissingInformation:   out.MissingInformation,
		SuggestedRefinements: out.SuggestedRefinements,
		RecommendedProviders: out.RecommendedProviders,
		Confidence:           out.Confidence,
		Reasoning:            out.Reasoning,
		KnowledgeGaps:        out.KnowledgeGaps,
	}
}

// RefinementOutcome carries the result of the single permitted refinement
// pass through to the response builder.
type RefinementOutcome struct {
	applied      bool
	refinedQuery string
	strategy     string
	addedTerms   []string
	removedTerms []string
}

func (r *RefinementOutcome) record() *model.RefinementRecord {
	if r == nil {
		return nil
	}
	return &model.RefinementRecord{
		Applied:      r.applied,
		RefinedQuery: r.refinedQuery,
		Strategy:     r.strategy,
		AddedTerms:   r.addedTerms,
		RemovedTerms: r.removedTerms,
	}
}

// refineOnce runs the query-refinement decision, re-fans-out with the
// refined query, and re-evaluates. Callers invoke this at most once per
// request.
func (o *Orchestrator) refineOnce(ctx context.Context, req *model.SearchRequest, vr model.VectorSearchResults, eval model.EvaluationResult) (*RefinementOutcome, model.VectorSearchResults, model.EvaluationResult) {
	var out decision.QueryRefinementOutput
	vars := map[string]any{
		"Query":              req.Query.NormalizedText,
		"MissingInformation": eval.MissingInformation,
	}
	_, err := o.decisions.Decide(ctx, decision.KindQueryRefinement, req.User.UserID, vars, &out)
	if err != nil || out.RefinedQuery == "" || out.RefinedQuery == req.Query.NormalizedText {
		return nil, vr, eval
	}

	refinedQuery, err := o.normalizer.Normalize(out.RefinedQuery, req.Query.TechnologyHint)
	if err != nil {
		return nil, vr, eval
	}

	original := req.Query
	req.Query = refinedQuery
	newVR, err := o.searchWorkspaces(ctx, req)
	if err != nil {
		req.Query = original
		return nil, vr, eval
	}
	newEval := o.evaluateResults(ctx, req, newVR)

	outcome := &RefinementOutcome{
		applied:      true,
		refinedQuery: refinedQuery.NormalizedText,
		strategy:     out.Strategy,
		addedTerms:   out.AddedTerms,
		removedTerms: out.RemovedTerms,
	}
	return outcome, newVR, newEval
}

// decideExternalSearch honors an explicit request override, otherwise
// consults the AI decision service. That service's fallback, and this
// method's own answer when the decision call fails, is "use external iff
// quality < 0.6"; neither looks at whether internal search returned
// results.
func (o *Orchestrator) decideExternalSearch(ctx context.Context, req *model.SearchRequest, eval model.EvaluationResult, forced bool) (bool, string) {
	if forced {
		return true, "force-on"
	}
	if req.UseExternalSearch == model.ExternalSearchForceOff {
		return false, "force-off"
	}
	if !o.settings.Feature.ExternalSearch || o.external == nil {
		return false, "external search disabled"
	}

	var out decision.ExternalSearchDecisionOutput
	vars := map[string]any{
		"Query":          req.Query.NormalizedText,
		"OverallQuality": eval.OverallQuality,
		"HasResults":     eval.OverallQuality > 0,
	}
	_, err := o.decisions.Decide(ctx, decision.KindExternalSearchDecision, req.User.UserID, vars, &out)
	if err != nil {
		return eval.OverallQuality < externalSearchQualityFloor, "decision error"
	}
	return out.UseExternal, out.Reasoning
}

func (o *Orchestrator) buildExternalQuery(ctx context.Context, req *model.SearchRequest, eval model.EvaluationResult) string {
	var out decision.ExternalSearchQueryOutput
	vars := map[string]any{
		"Query":             req.Query.NormalizedText,
		"TechnologyHint":    req.Query.TechnologyHint,
		"MissingInformation": eval.MissingInformation,
	}
	_, err := o.decisions.Decide(ctx, decision.KindExternalSearchQuery, req.User.UserID, vars, &out)
	if err != nil || out.Query == "" {
		return req.Query.NormalizedText
	}
	return out.Query
}

// selectProviderOrder honors an explicit per-request provider list first;
// otherwise it asks the AI decision service (ProviderSelection) for its
// pick, which the pool treats as a preference ahead of its own priority
// list rather than an exclusive choice. A decision failure returns nil,
// letting the pool fall back to walking its own priority list unchanged.
func (o *Orchestrator) selectProviderOrder(ctx context.Context, req *model.SearchRequest, eval model.EvaluationResult) []string {
	if len(req.ProviderOverrides) > 0 {
		return req.ProviderOverrides
	}

	var availableProviders []string
	if o.external != nil {
		availableProviders = o.external.ProviderIDs()
	}

	var out decision.ProviderSelectionOutput
	vars := map[string]any{
		"Query":                req.Query.NormalizedText,
		"AvailableProviders":   availableProviders,
		"RecommendedProviders": eval.RecommendedProviders,
	}
	_, err := o.decisions.Decide(ctx, decision.KindProviderSelection, req.User.UserID, vars, &out)
	if err != nil || out.ProviderID == "" {
		return nil
	}
	return []string{out.ProviderID}
}

// analyzeFailure asks the AI decision service (FailureAnalysis) for a
// structured, user-facing explanation of why the request came back with
// no usable results: every external provider failed and the internal
// vector fan-out found nothing either.
func (o *Orchestrator) analyzeFailure(ctx context.Context, req *model.SearchRequest, providerErrors map[string]error) *model.FailureAnalysis {
	reasons := make([]string, 0, len(providerErrors))
	for providerID, err := range providerErrors {
		reasons = append(reasons, providerID+": "+err.Error())
	}

	var out decision.FailureAnalysisOutput
	vars := map[string]any{
		"Query":          req.Query.NormalizedText,
		"ProviderErrors": reasons,
	}
	_, err := o.decisions.Decide(ctx, decision.KindFailureAnalysis, req.User.UserID, vars, &out)
	if err != nil {
		return &model.FailureAnalysis{Reasons: reasons, UserMessage: "no results were found for this query"}
	}
	return &model.FailureAnalysis{
		Reasons:              out.Reasons,
		QueryIssues:          out.QueryIssues,
		MissingDomains:       out.MissingDomains,
		TechnicalLimitations: out.TechnicalLimitations,
		UserMessage:          out.UserMessage,
	}
}

// identifyLearningOpportunities asks the AI decision service
// (LearningOpportunities) to turn the evaluation's knowledge gaps into
// prioritized, source-attributed entries the async enrichment job runner
// can act on. A decision failure yields one unprioritized gap per entry
// already surfaced by the evaluation rather than dropping the signal
// entirely.
func (o *Orchestrator) identifyLearningOpportunities(ctx context.Context, req *model.SearchRequest, eval model.EvaluationResult) []model.LearningGap {
	var out decision.LearningOpportunitiesOutput
	vars := map[string]any{
		"Query":         req.Query.NormalizedText,
		"KnowledgeGaps": eval.KnowledgeGaps,
	}
	_, err := o.decisions.Decide(ctx, decision.KindLearningOpportunities, req.User.UserID, vars, &out)
	if err != nil {
		gaps := make([]model.LearningGap, len(eval.KnowledgeGaps))
		for i, gap := range eval.KnowledgeGaps {
			gaps[i] = model.LearningGap{Gap: gap, Priority: "normal"}
		}
		return gaps
	}
	gaps := make([]model.LearningGap, len(out.Gaps))
	for i, g := range out.Gaps {
		gaps[i] = model.LearningGap{
			Gap:              g.Gap,
			Priority:         g.Priority,
			SourceSuggestion: g.SourceSuggestion,
			WorkspaceID:      g.WorkspaceID,
		}
	}
	return gaps
}

func (o *Orchestrator) extractAnswer(ctx context.Context, req *model.SearchRequest, resp *model.SearchResponse) {
	topK := resp.Results
	if len(topK) > 5 {
		topK = topK[:5]
	}
	var builder strings.Builder
	for _, r := range topK {
		builder.WriteString(r.Snippet)
		builder.WriteString("\n")
	}

	var extraction decision.ContentExtractionOutput
	_, _ = o.decisions.Decide(ctx, decision.KindContentExtraction, req.User.UserID, map[string]any{
		"Content": builder.String(),
	}, &extraction)

	var format decision.ResponseFormatSelectionOutput
	_, _ = o.decisions.Decide(ctx, decision.KindResponseFormatSelection, req.User.UserID, map[string]any{
		"Query":        req.Query.NormalizedText,
		"ResultCount":  len(resp.Results),
		"HasExtracted": extraction.Content != "",
	}, &format)

	responseType := model.ResponseType(format.ResponseType)
	if responseType != model.ResponseTypeRaw && responseType != model.ResponseTypeAnswer {
		responseType = model.ResponseTypeRaw
	}
	resp.ResponseType = responseType
	if responseType == model.ResponseTypeAnswer {
		resp.Answer = extraction.Content
	}
}

// ingestExternalHits invokes the TTL-aware ingestion path when the admin
// policy is synchronous and at least one external hit carries a
// configured sync provider tag; otherwise it enqueues asynchronous
// enrichment and returns nil (no embedded status for a fire-and-forget
// job).
func (o *Orchestrator) ingestExternalHits(ctx context.Context, hits []model.SearchResult, providersUsed []string) *model.IngestionStatus {
	if o.ingestion == nil {
		return nil
	}

	sourceTag := primaryProviderTag(providersUsed)
	if o.settings.Feature.SyncIngestion && hasSyncProviderTag(providersUsed, o.settings.Ingestion.SyncProviderTags) {
		syncTimeout := time.Duration(o.settings.Ingestion.SyncIngestionTimeoutSeconds * float64(time.Second))
		syncCtx, cancel := context.WithTimeout(ctx, syncTimeout)
		defer cancel()
		status, _ := o.ingestion.Ingest(syncCtx, hits, sourceTag, ingest.ModeSynchronous)
		return &status
	}

	if o.asyncJob != nil {
		o.asyncJob(ctx, hits, sourceTag)
	}
	return nil
}

func primaryProviderTag(providersUsed []string) string {
	if len(providersUsed) == 0 {
		return "external"
	}
	return providersUsed[0]
}

func hasSyncProviderTag(providersUsed []string, tags []string) bool {
	for _, used := range providersUsed {
		for _, tag := range tags {
			if strings.EqualFold(used, tag) {
				return true
			}
		}
	}
	return false
}

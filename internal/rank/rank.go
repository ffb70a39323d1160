// Package rank merges per-workspace and external search hits into one
// ordered, deduplicated, paginated result list.
package rank

import (
	"errors"
	"sort"

	"github.com/samber/lo"

	"github.com/bmeyer99/docaiche/internal/config"
	"github.com/bmeyer99/docaiche/internal/model"
)

// Weights blends the three component scores into one ranking score. They
// need not sum to 1; Score normalizes by their sum.
type Weights struct {
	Relevance float64
	Recency   float64
	Quality   float64
}

// DefaultWeights is the hybrid strategy's blend: relevance dominates,
// recency and quality each contribute a fifth.
var DefaultWeights = Weights{Relevance: 0.6, Recency: 0.2, Quality: 0.2}

func (w Weights) sum() float64 {
	return w.Relevance + w.Recency + w.Quality
}

// Config configures a Ranker.
type Config struct {
	Strategy config.RankingStrategy
	Weights  Weights // only consulted when Strategy is RankingHybrid
}

func (c *Config) validate() error {
	if c.Strategy == "" {
		c.Strategy = config.RankingHybrid
	}
	if c.Strategy == config.RankingHybrid && c.Weights.sum() == 0 {
		c.Weights = DefaultWeights
	}
	switch c.Strategy {
	case config.RankingRelevance, config.RankingRecency, config.RankingHybrid:
	default:
		return errors.New("rank config: unknown ranking strategy")
	}
	return nil
}

// Ranker scores, deduplicates, and paginates search results.
type Ranker struct {
	strategy config.RankingStrategy
	weights  Weights
}

// New builds a Ranker from cfg.
func New(cfg *Config) (*Ranker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Ranker{strategy: cfg.Strategy, weights: cfg.Weights}, nil
}

// score computes the ordering key for one result under the ranker's
// strategy. Higher is better.
func (r *Ranker) score(res model.SearchResult) float64 {
	switch r.strategy {
	case config.RankingRecency:
		return res.RecencyScore
	case config.RankingHybrid:
		sum := r.weights.sum()
		if sum == 0 {
			sum = 1
		}
		return (res.RelevanceScore*r.weights.Relevance +
			res.RecencyScore*r.weights.Recency +
			res.QualityScore*r.weights.Quality) / sum
	default: // RankingRelevance
		return res.RelevanceScore
	}
}

// Merge combines workspace hits and external hits, drops duplicate
// content ids keeping the higher-relevance hit (ties broken by newer
// recency) regardless of which side it came from, sorts by the ranker's
// strategy, and applies limit/offset.
func (r *Ranker) Merge(workspaceHits, externalHits []model.SearchResult, limit, offset int) []model.SearchResult {
	combined := make([]model.SearchResult, 0, len(workspaceHits)+len(externalHits))
	combined = append(combined, workspaceHits...)
	combined = append(combined, externalHits...)

	// lo.UniqBy keeps the first occurrence of each key, so the dedup
	// tiebreak (higher relevance, then newer recency) is applied by
	// sorting into that order first rather than relying on which side
	// was appended first.
	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].RelevanceScore != combined[j].RelevanceScore {
			return combined[i].RelevanceScore > combined[j].RelevanceScore
		}
		return combined[i].RecencyScore > combined[j].RecencyScore
	})

	deduped := lo.UniqBy(combined, func(res model.SearchResult) string {
		return res.ContentID
	})

	sort.SliceStable(deduped, func(i, j int) bool {
		si, sj := r.score(deduped[i]), r.score(deduped[j])
		if si != sj {
			return si > sj
		}
		return deduped[i].ContentID < deduped[j].ContentID
	})

	return paginate(deduped, limit, offset)
}

func paginate(results []model.SearchResult, limit, offset int) []model.SearchResult {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []model.SearchResult{}
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return results[offset:end]
}

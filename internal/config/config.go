// Package config loads, validates, and hot-reloads the search configuration
// document: queue limits, rate limits, timeouts, thresholds, resource
// limits, feature toggles, and strategy selectors.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full admin-editable search configuration document.
type Config struct {
	Queue        QueueConfig        `yaml:"queue"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Timeout      TimeoutConfig      `yaml:"timeout"`
	Threshold    ThresholdConfig    `yaml:"threshold"`
	ResourceLimit ResourceLimitConfig `yaml:"resource_limit"`
	Feature      FeatureToggles     `yaml:"feature"`
	Strategy     StrategyConfig     `yaml:"strategy"`
	Ingestion    IngestionConfig    `yaml:"ingestion"`
}

// IngestionConfig configures the TTL-aware ingestion path: TTL bounds, the
// synchronous-ingestion deadline, and how long ingested content sits in
// the side store awaiting the external indexing pipeline.
type IngestionConfig struct {
	BaseTTLDays              int     `yaml:"base_ttl_days"`
	MinTTLDays               int     `yaml:"min_ttl_days"`
	MaxTTLDays               int     `yaml:"max_ttl_days"`
	SyncIngestionTimeoutSeconds float64 `yaml:"sync_ingestion_timeout_seconds"`
	SideStoreRetentionSeconds float64 `yaml:"side_store_retention_seconds"`
	SyncProviderTags         []string `yaml:"sync_provider_tags"`
}

// QueueConfig configures the admission queue.
type QueueConfig struct {
	MaxConcurrentSearches    int     `yaml:"max_concurrent_searches"`
	MaxQueueDepth            int     `yaml:"max_queue_depth"`
	QueueOverflowResponseCode int    `yaml:"queue_overflow_response_code"`
	PriorityQueueEnabled     bool    `yaml:"priority_queue_enabled"`
	QueueTimeoutSeconds      float64 `yaml:"queue_timeout_seconds"`
	HighWaterMark            float64 `yaml:"high_water_mark"`
}

// RateLimitConfig configures the three token buckets.
type RateLimitConfig struct {
	PerUserPerMinute      float64 `yaml:"per_user_per_minute"`
	PerWorkspacePerMinute float64 `yaml:"per_workspace_per_minute"`
	GlobalPerMinute       float64 `yaml:"global_per_minute"`
	WindowSeconds         float64 `yaml:"window_seconds"`
	BurstMultiplier       float64 `yaml:"burst_multiplier"`
}

// TimeoutConfig configures every stage deadline.
type TimeoutConfig struct {
	TotalSeconds        float64 `yaml:"total_seconds"`
	PerWorkspaceSeconds float64 `yaml:"per_workspace_seconds"`
	ExternalSeconds     float64 `yaml:"external_seconds"`
	AIDecisionSeconds   float64 `yaml:"ai_decision_seconds"`
	CacheOperationSeconds float64 `yaml:"cache_operation_seconds"`
}

// ThresholdConfig configures breaker trip points and quality gates.
type ThresholdConfig struct {
	CacheBreakerFailureCount     int     `yaml:"cache_breaker_failure_count"`
	CacheBreakerRecoverySeconds  float64 `yaml:"cache_breaker_recovery_seconds"`
	MinRelevance                 float64 `yaml:"min_relevance"`
	ExternalSearchTrigger         float64 `yaml:"external_search_trigger"`
	WorkspaceHealthCheckSeconds   float64 `yaml:"workspace_health_check_seconds"`
}

// ResourceLimitConfig configures result-set and call-size ceilings.
type ResourceLimitConfig struct {
	MaxResults           int `yaml:"max_results"`
	MaxWorkspaces        int `yaml:"max_workspaces"`
	MaxTokensPerAICall   int `yaml:"max_tokens_per_ai_call"`
	MaxExternalResults   int `yaml:"max_external_results"`
	CacheTTLSeconds      int `yaml:"cache_ttl_seconds"`
}

// FeatureToggles enables or disables optional pipeline stages.
type FeatureToggles struct {
	ExternalSearch    bool `yaml:"external_search"`
	AIEvaluation      bool `yaml:"ai_evaluation"`
	QueryRefinement   bool `yaml:"query_refinement"`
	KnowledgeIngestion bool `yaml:"knowledge_ingestion"`
	ResultCaching     bool `yaml:"result_caching"`
	SyncIngestion     bool `yaml:"sync_ingestion"`
}

// WorkspaceSelectionStrategy selects how workspaces are chosen for fan-out.
type WorkspaceSelectionStrategy string

const (
	WorkspaceSelectionAIDriven WorkspaceSelectionStrategy = "ai_driven"
	WorkspaceSelectionAll      WorkspaceSelectionStrategy = "all"
	WorkspaceSelectionManual   WorkspaceSelectionStrategy = "manual"
)

// RankingStrategy selects the scoring blend used by the ranker.
type RankingStrategy string

const (
	RankingRelevance RankingStrategy = "relevance"
	RankingRecency   RankingStrategy = "recency"
	RankingHybrid    RankingStrategy = "hybrid"
)

// StrategyConfig configures pluggable selection strategies.
type StrategyConfig struct {
	WorkspaceSelection    WorkspaceSelectionStrategy `yaml:"workspace_selection"`
	Ranking               RankingStrategy            `yaml:"ranking"`
	ExternalProviderPriority []string                `yaml:"external_provider_priority"`
}

// ApplyDefaults fills zero-valued fields with the documented defaults.
// Called after unmarshaling so a partial YAML document still produces a
// fully-populated Config.
func ApplyDefaults(cfg *Config) {
	if cfg.Queue.MaxConcurrentSearches == 0 {
		cfg.Queue.MaxConcurrentSearches = 20
	}
	if cfg.Queue.MaxQueueDepth == 0 {
		cfg.Queue.MaxQueueDepth = 100
	}
	if cfg.Queue.QueueOverflowResponseCode == 0 {
		cfg.Queue.QueueOverflowResponseCode = 503
	}
	if cfg.Queue.QueueTimeoutSeconds == 0 {
		cfg.Queue.QueueTimeoutSeconds = 300
	}
	if cfg.Queue.HighWaterMark == 0 {
		cfg.Queue.HighWaterMark = 0.8
	}

	if cfg.RateLimit.BurstMultiplier == 0 {
		cfg.RateLimit.BurstMultiplier = 1.2
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}

	if cfg.Timeout.TotalSeconds == 0 {
		cfg.Timeout.TotalSeconds = 10
	}
	if cfg.Timeout.PerWorkspaceSeconds == 0 {
		cfg.Timeout.PerWorkspaceSeconds = 2
	}
	if cfg.Timeout.ExternalSeconds == 0 {
		cfg.Timeout.ExternalSeconds = 5
	}
	if cfg.Timeout.AIDecisionSeconds == 0 {
		cfg.Timeout.AIDecisionSeconds = 3
	}
	if cfg.Timeout.CacheOperationSeconds == 0 {
		cfg.Timeout.CacheOperationSeconds = 0.5
	}

	if cfg.Threshold.CacheBreakerFailureCount == 0 {
		cfg.Threshold.CacheBreakerFailureCount = 3
	}
	if cfg.Threshold.CacheBreakerRecoverySeconds == 0 {
		cfg.Threshold.CacheBreakerRecoverySeconds = 2
	}
	if cfg.Threshold.MinRelevance == 0 {
		cfg.Threshold.MinRelevance = 0.5
	}
	if cfg.Threshold.ExternalSearchTrigger == 0 {
		cfg.Threshold.ExternalSearchTrigger = 0.4
	}
	if cfg.Threshold.WorkspaceHealthCheckSeconds == 0 {
		cfg.Threshold.WorkspaceHealthCheckSeconds = 30
	}

	if cfg.ResourceLimit.MaxResults == 0 {
		cfg.ResourceLimit.MaxResults = 200
	}
	if cfg.ResourceLimit.MaxWorkspaces == 0 {
		cfg.ResourceLimit.MaxWorkspaces = 5
	}
	if cfg.ResourceLimit.MaxTokensPerAICall == 0 {
		cfg.ResourceLimit.MaxTokensPerAICall = 2048
	}
	if cfg.ResourceLimit.MaxExternalResults == 0 {
		cfg.ResourceLimit.MaxExternalResults = 10
	}
	if cfg.ResourceLimit.CacheTTLSeconds == 0 {
		cfg.ResourceLimit.CacheTTLSeconds = 3600
	}

	if cfg.Strategy.WorkspaceSelection == "" {
		cfg.Strategy.WorkspaceSelection = WorkspaceSelectionAIDriven
	}
	if cfg.Strategy.Ranking == "" {
		cfg.Strategy.Ranking = RankingHybrid
	}

	if cfg.Ingestion.BaseTTLDays == 0 {
		cfg.Ingestion.BaseTTLDays = 30
	}
	if cfg.Ingestion.MinTTLDays == 0 {
		cfg.Ingestion.MinTTLDays = 1
	}
	if cfg.Ingestion.MaxTTLDays == 0 {
		cfg.Ingestion.MaxTTLDays = 90
	}
	if cfg.Ingestion.SyncIngestionTimeoutSeconds == 0 {
		cfg.Ingestion.SyncIngestionTimeoutSeconds = 15
	}
	if cfg.Ingestion.SideStoreRetentionSeconds == 0 {
		cfg.Ingestion.SideStoreRetentionSeconds = 3600
	}
	if len(cfg.Ingestion.SyncProviderTags) == 0 {
		cfg.Ingestion.SyncProviderTags = []string{"context7"}
	}
}

// Load reads and parses the YAML config document at path and applies
// defaults to any unset field.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Save marshals cfg back to path, used after an admin-surface mutation.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Package external dispatches a query to the configured external search
// providers in priority order, hedging a second provider after a short
// delay so one slow provider doesn't dominate the request's latency
// budget, and normalizes every hit into the shared result shape.
package external

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/bmeyer99/docaiche/internal/model"
	"github.com/bmeyer99/docaiche/internal/xsync"
)

// Provider is one external search backend (a documentation site search API,
// a web search API, etc).
type Provider interface {
	ID() string
	Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error)
}

// Config configures a Pool.
type Config struct {
	Providers           []Provider
	Priority            []string      // provider ids in dispatch order; defaults to Providers' declaration order
	MaxConcurrent       int           // default 3
	HedgeDelay          time.Duration // default 200ms
	Timeout             time.Duration // default 5s
	BreakerFailureCount uint32        // default 3
	BreakerOpenDuration time.Duration // default 2s
	DefaultRelevance    float64       // default 0.7, assigned to results missing a score
}

func (c *Config) validate() error {
	if len(c.Providers) == 0 {
		return errors.New("external pool config: at least one provider is required")
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.HedgeDelay <= 0 {
		c.HedgeDelay = 200 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.BreakerFailureCount == 0 {
		c.BreakerFailureCount = 3
	}
	if c.BreakerOpenDuration <= 0 {
		c.BreakerOpenDuration = 2 * time.Second
	}
	if c.DefaultRelevance <= 0 {
		c.DefaultRelevance = 0.7
	}
	if len(c.Priority) == 0 {
		for _, p := range c.Providers {
			c.Priority = append(c.Priority, p.ID())
		}
	}
	return nil
}

type providerEntry struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// Pool dispatches searches across the configured providers.
type Pool struct {
	mu               sync.RWMutex
	order            []string
	disabled         map[string]bool
	entries          map[string]*providerEntry
	maxConcurrent    int
	hedgeDelay       time.Duration
	timeout          time.Duration
	defaultRelevance float64
}

// New builds a Pool from cfg.
func New(cfg *Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	entries := make(map[string]*providerEntry, len(cfg.Providers))
	for _, p := range cfg.Providers {
		settings := gobreaker.Settings{
			Name:        "external-provider-" + p.ID(),
			MaxRequests: 1,
			Timeout:     cfg.BreakerOpenDuration,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailureCount
			},
		}
		entries[p.ID()] = &providerEntry{
			provider: p,
			breaker:  gobreaker.NewCircuitBreaker(settings),
		}
	}

	return &Pool{
		order:            cfg.Priority,
		disabled:         make(map[string]bool),
		entries:          entries,
		maxConcurrent:    cfg.MaxConcurrent,
		hedgeDelay:       cfg.HedgeDelay,
		timeout:          cfg.Timeout,
		defaultRelevance: cfg.DefaultRelevance,
	}, nil
}

// Result is the outcome of one Search call.
type Result struct {
	Results        []model.SearchResult
	ProvidersUsed  []string
	ProviderErrors map[string]error
	AllFailed      bool
}

type attempt struct {
	providerID string
	future     xsync.Future[[]model.SearchResult]
}

// Search dispatches query to providers in priority order, launching the
// next provider as a hedge if the current one hasn't returned within the
// pool's hedge delay. The first provider to succeed wins; every other
// in-flight attempt is cancelled.
func (p *Pool) Search(ctx context.Context, query string, limit int) Result {
	return p.SearchOrdered(ctx, query, limit, nil)
}

// SearchOrdered is Search with an explicit dispatch order: the caller's
// own provider list (when the request names one) or the AI Decision
// Service's ProviderSelection pick prepended ahead of the pool's default
// priority. Unknown provider ids in preferred are dropped; when preferred
// is empty the pool's own priority list is used unchanged.
func (p *Pool) SearchOrdered(ctx context.Context, query string, limit int, preferred []string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	order := p.dispatchOrder(preferred)

	// max_concurrent_providers (§4.6) bounds concurrent external calls
	// for one request, not across the pool's lifetime: a limiter scoped
	// to this call, not a field shared by every concurrent request.
	limiter := xsync.NewLimiter(p.maxConcurrent)

	var (
		attempts []attempt
		mu       sync.Mutex
		errs     = make(map[string]error)
	)

	launch := func(providerID string) {
		entry, ok := p.entries[providerID]
		if !ok {
			return
		}
		f := xsync.NewFutureTask(func(interrupt <-chan struct{}) ([]model.SearchResult, error) {
			limiter.Acquire()
			defer limiter.Release()

			raw, err := entry.breaker.Execute(func() (any, error) {
				return entry.provider.Search(ctx, query, limit)
			})
			if err != nil {
				return nil, err
			}
			hits, _ := raw.([]model.SearchResult)
			return normalize(hits, providerID, p.defaultRelevance), nil
		})
		go f.Run()
		mu.Lock()
		attempts = append(attempts, attempt{providerID: providerID, future: f})
		mu.Unlock()
	}

	for i, providerID := range order {
		launch(providerID)
		if i < len(order)-1 {
			select {
			case <-time.After(p.hedgeDelay):
			case <-ctx.Done():
			}
			if anySucceeded(attempts, &mu) {
				break
			}
		}
	}

	winner, used := waitForWinner(ctx, attempts, &mu, errs)

	for _, a := range attempts {
		if a.providerID != used {
			a.future.Cancel(true)
		}
	}

	return Result{
		Results:        winner,
		ProvidersUsed:  nonEmptyUsed(used),
		ProviderErrors: errs,
		AllFailed:      winner == nil && len(errs) == len(attempts) && len(attempts) > 0,
	}
}

// dispatchOrder builds the provider order for one Search call: known ids
// from preferred, in their given order, followed by the pool's remaining
// default-priority providers (so a caller-supplied or AI-selected
// preference never drops the rest of the pool as a fallback chain).
func (p *Pool) dispatchOrder(preferred []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	base := make([]string, 0, len(p.order))
	for _, id := range p.order {
		if !p.disabled[id] {
			base = append(base, id)
		}
	}
	if len(preferred) == 0 {
		return base
	}

	seen := make(map[string]bool, len(preferred))
	order := make([]string, 0, len(base))
	for _, id := range preferred {
		if _, ok := p.entries[id]; ok && !p.disabled[id] && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	for _, id := range base {
		if !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	if len(order) == 0 {
		return base
	}
	return order
}

func nonEmptyUsed(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

func anySucceeded(attempts []attempt, mu *sync.Mutex) bool {
	mu.Lock()
	defer mu.Unlock()
	for _, a := range attempts {
		if _, err, done := a.future.TryGet(); done && err == nil {
			return true
		}
	}
	return false
}

type outcome struct {
	providerID string
	hits       []model.SearchResult
	err        error
}

// waitForWinner fans in every attempt's completion and returns the first
// success. Attempts that fail keep the fan-in alive until either a success
// arrives or every attempt has reported.
func waitForWinner(ctx context.Context, attempts []attempt, mu *sync.Mutex, errs map[string]error) ([]model.SearchResult, string) {
	mu.Lock()
	snapshot := append([]attempt(nil), attempts...)
	mu.Unlock()

	outcomes := make(chan outcome, len(snapshot))
	for _, a := range snapshot {
		go func(a attempt) {
			hits, err := a.future.GetWithContext(ctx)
			outcomes <- outcome{providerID: a.providerID, hits: hits, err: err}
		}(a)
	}

	remaining := len(snapshot)
	for remaining > 0 {
		o := <-outcomes
		remaining--
		if o.err == nil {
			return o.hits, o.providerID
		}
		errs[o.providerID] = o.err
	}
	return nil, ""
}

func normalize(hits []model.SearchResult, providerID string, defaultRelevance float64) []model.SearchResult {
	out := make([]model.SearchResult, len(hits))
	for i, h := range hits {
		h.Metadata = mergeMetadata(h.Metadata, providerID)
		if h.RelevanceScore == 0 {
			h.RelevanceScore = defaultRelevance
		}
		out[i] = h
	}
	return out
}

func mergeMetadata(existing map[string]any, providerID string) map[string]any {
	meta := make(map[string]any, len(existing)+2)
	for k, v := range existing {
		meta[k] = v
	}
	meta["source"] = "external_search"
	meta["provider"] = providerID
	return meta
}

// ProviderIDs returns every enabled provider id in current priority
// order, used by callers (the ProviderSelection decision prompt) that
// need to present the pool's current membership.
func (p *Pool) ProviderIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.order))
	for _, id := range p.order {
		if !p.disabled[id] {
			out = append(out, id)
		}
	}
	return out
}

// ProviderStatus is one provider's admin-surface view: its place in the
// priority order, whether it is enabled for dispatch, and its circuit
// breaker state.
type ProviderStatus struct {
	ID       string
	Priority int
	Enabled  bool
	Breaker  string
}

// Status lists every registered provider's admin-facing status in
// current priority order.
func (p *Pool) Status() []ProviderStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ProviderStatus, 0, len(p.order))
	for i, id := range p.order {
		entry := p.entries[id]
		out = append(out, ProviderStatus{
			ID:       id,
			Priority: i,
			Enabled:  !p.disabled[id],
			Breaker:  entry.breaker.State().String(),
		})
	}
	return out
}

// SetEnabled enables or disables a provider for future dispatch without
// removing its registration; a disabled provider is skipped by
// dispatchOrder but keeps its breaker state and position in the
// priority list.
func (p *Pool) SetEnabled(id string, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[id]; !ok {
		return fmt.Errorf("external pool: unknown provider %q", id)
	}
	if enabled {
		delete(p.disabled, id)
	} else {
		p.disabled[id] = true
	}
	return nil
}

// Reorder replaces the pool's dispatch priority list. Every id in order
// must already be registered; ids omitted from order keep their
// relative order appended after it, so a partial reorder doesn't drop
// providers from dispatch.
func (p *Pool) Reorder(order []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]bool, len(order))
	next := make([]string, 0, len(p.order))
	for _, id := range order {
		if _, ok := p.entries[id]; !ok {
			return fmt.Errorf("external pool: unknown provider %q", id)
		}
		if seen[id] {
			continue
		}
		next = append(next, id)
		seen[id] = true
	}
	for _, id := range p.order {
		if !seen[id] {
			next = append(next, id)
			seen[id] = true
		}
	}
	p.order = next
	return nil
}

// TestConnection issues a minimal live search against one provider,
// bypassing its circuit breaker and the pool's hedging, so an admin
// "test connection" action reports the provider's real reachability
// rather than a cached breaker verdict.
func (p *Pool) TestConnection(ctx context.Context, id string) error {
	p.mu.RLock()
	entry, ok := p.entries[id]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("external pool: unknown provider %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	_, err := entry.provider.Search(ctx, "connection test", 1)
	if err != nil {
		return fmt.Errorf("provider %q connection test failed: %w", id, err)
	}
	return nil
}

// Name satisfies obs.HealthChecker.
func (p *Pool) Name() string { return "external_provider_pool" }

// HealthCheck reports unhealthy only when every provider's breaker is open.
func (p *Pool) HealthCheck(_ context.Context) error {
	open := 0
	for _, entry := range p.entries {
		if entry.breaker.State() == gobreaker.StateOpen {
			open++
		}
	}
	if open == len(p.entries) && len(p.entries) > 0 {
		return fmt.Errorf("external provider pool: all %d providers have open breakers", open)
	}
	return nil
}

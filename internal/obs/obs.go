// Package obs implements the observability spine: correlation IDs,
// single-line pipeline metric events, and collaborator health aggregation.
package obs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// NewTraceID returns a fresh correlation ID used for one request span, from
// the HTTP/MCP entry point through the orchestrator and into ingestion.
func NewTraceID() string {
	return uuid.NewString()
}

type traceIDKey struct{}

// WithTraceID attaches a trace id to ctx so every downstream stage can
// retrieve it without threading it through every function signature.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceID retrieves the trace id attached to ctx, or "" if none is set.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey{}).(string)
	return v
}

// Emitter emits single-line structured pipeline metric events of the form
// `step=<name> duration_ms=<n> <k=v>... trace_id=<id>`.
type Emitter struct {
	logger  *slog.Logger
	monitor *Monitor
}

// NewEmitter builds an Emitter writing through the given logger. A nil
// logger falls back to slog.Default().
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// WithMonitor attaches a Monitor that every subsequent Step call feeds,
// so the admin monitoring endpoints aggregate the same stage boundaries
// the structured log line reports. Returns e for chaining at
// construction time.
func (e *Emitter) WithMonitor(m *Monitor) *Emitter {
	e.monitor = m
	return e
}

// Step emits a pipeline metric event for one stage boundary. attrs are
// additional key=value pairs specific to the stage (e.g. "decision",
// "result_count", "workspace"). An "error" attr marks the step as
// failed for monitoring purposes; every other attr is log-only.
func (e *Emitter) Step(ctx context.Context, step string, duration time.Duration, attrs ...slog.Attr) {
	all := make([]slog.Attr, 0, len(attrs)+3)
	all = append(all, slog.String("step", step))
	all = append(all, slog.Int64("duration_ms", duration.Milliseconds()))
	all = append(all, attrs...)
	all = append(all, slog.String("trace_id", TraceID(ctx)))
	e.logger.LogAttrs(ctx, slog.LevelInfo, "pipeline_metric", all...)

	if e.monitor != nil {
		e.monitor.Record(step, duration, !hasErrorAttr(attrs))
	}
}

func hasErrorAttr(attrs []slog.Attr) bool {
	for _, a := range attrs {
		if a.Key == "error" {
			return true
		}
	}
	return false
}

// Status is the aggregate health status of the system.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// HealthChecker is implemented by every leaf collaborator whose health
// contributes to the aggregate (cache, queue, decision service, provider
// pool, vector index, ingestion store).
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// HealthCeiling bounds how long any single leaf's health check may take.
const HealthCeiling = time.Second

// LeafResult is the outcome of checking one collaborator's health.
type LeafResult struct {
	Name    string
	Healthy bool
	Error   error
}

// AggregateHealth calls into each leaf's health check with a 1-second
// ceiling and degrades the overall status: 0 unhealthy leaves -> healthy,
// 1 unhealthy leaf -> degraded, 2+ -> unhealthy.
func AggregateHealth(ctx context.Context, leaves []HealthChecker) (Status, []LeafResult) {
	results := make([]LeafResult, len(leaves))
	unhealthy := 0

	for i, leaf := range leaves {
		lctx, cancel := context.WithTimeout(ctx, HealthCeiling)
		err := leaf.HealthCheck(lctx)
		cancel()

		results[i] = LeafResult{Name: leaf.Name(), Healthy: err == nil, Error: err}
		if err != nil {
			unhealthy++
		}
	}

	switch {
	case unhealthy == 0:
		return StatusHealthy, results
	case unhealthy == 1:
		return StatusDegraded, results
	default:
		return StatusUnhealthy, results
	}
}

package ingest

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"github.com/bmeyer99/docaiche/internal/model"
	"github.com/bmeyer99/docaiche/internal/xsync"
)

// AsyncRunner submits the orchestrator's stage-9 fire-and-forget
// enrichment jobs through a bounded ants pool (via xsync.PoolOfAnts)
// instead of an unbounded goroutine per job, so a burst of asynchronous
// ingestion work can never outrun the process the way a raw `go` per call
// would.
type AsyncRunner struct {
	path     *Path
	antsPool *ants.Pool
	pool     xsync.Pool
}

// NewAsyncRunner builds an AsyncRunner backed by an ants pool sized to
// maxConcurrent (default 10).
func NewAsyncRunner(path *Path, maxConcurrent int) (*AsyncRunner, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	antsPool, err := ants.NewPool(maxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("ingest async runner: %w", err)
	}
	return &AsyncRunner{
		path:     path,
		antsPool: antsPool,
		pool:     xsync.PoolOfAnts(antsPool),
	}, nil
}

// Enrich submits hits for asynchronous ingestion and returns immediately;
// the orchestrator only enqueues, this runner owns execution. It satisfies
// the orchestrator's AsyncEnrichmentFunc signature. The request's own
// context is not propagated to the submitted job: by the time the pool
// gets around to running it the request may already have returned, and
// the job is meant to outlive the request per §4.7 stage 9.
func (a *AsyncRunner) Enrich(_ context.Context, hits []model.SearchResult, sourceTag string) {
	hits = append([]model.SearchResult(nil), hits...)
	_ = a.pool.Submit(func() {
		_, _ = a.path.Ingest(context.Background(), hits, sourceTag, ModeAsynchronous)
	})
}

// Release stops the pool from accepting new jobs. In-flight jobs keep
// running to completion.
func (a *AsyncRunner) Release() {
	a.antsPool.Release()
}

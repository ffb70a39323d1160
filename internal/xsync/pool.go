package xsync

import (
	"sync/atomic"

	"github.com/gammazero/workerpool"
	"github.com/panjf2000/ants/v2"

	"github.com/bmeyer99/docaiche/internal/safe"
)

// Pool is the common interface a bounded background dispatcher submits
// work through: the admission queue dispatcher and the async ingestion
// job runner each take a Pool rather than spawning raw goroutines, so the
// backing implementation is swappable.
type Pool interface {
	Submit(f func()) error
}

var defaultPool atomic.Value

// DefaultPool returns the process-wide default pool.
func DefaultPool() Pool {
	return defaultPool.Load().(Pool)
}

// SetDefaultPool replaces the process-wide default pool. A nil pool is a
// no-op.
func SetDefaultPool(pool Pool) {
	if pool == nil {
		return
	}
	defaultPool.Store(pool)
}

func init() {
	defaultPool.Store(PoolOfNoPool())
}

type poolAdapter func(f func()) error

func (p poolAdapter) Submit(f func()) error {
	return p(f)
}

// PoolOfNoPool launches an unbounded goroutine per submission, recovering
// panics via safe.Go. Used where admission control is already enforced
// upstream (e.g. the priority queue's own max_concurrent_searches gate).
func PoolOfNoPool() Pool {
	return poolAdapter(func(f func()) error {
		safe.Go(f)
		return nil
	})
}

// PoolOfAnts adapts a panjf2000/ants pool, used by the async ingestion job
// runner where a bounded, reusable goroutine pool avoids spawning one
// goroutine per ingested document.
func PoolOfAnts(pool *ants.Pool) Pool {
	if pool == nil {
		panic("ants pool is nil")
	}
	return poolAdapter(func(f func()) error {
		return pool.Submit(f)
	})
}

// PoolOfWorkerpool adapts a gammazero/workerpool, used by the admission
// queue dispatcher where FIFO draining with a bounded worker count and a
// StopWait shutdown hook fits the queue's lifecycle.
func PoolOfWorkerpool(pool *workerpool.WorkerPool) Pool {
	if pool == nil {
		panic("worker pool is nil")
	}
	return poolAdapter(func(f func()) error {
		pool.Submit(f)
		return nil
	})
}

// Package queue implements the admission queue: a bounded priority
// queue ordered by (priority, enqueue time), paired with a worker pool
// dispatcher that bounds in-flight requests to max_concurrent_searches.
package queue

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/bmeyer99/docaiche/internal/apperr"
	"github.com/bmeyer99/docaiche/internal/model"
	"github.com/bmeyer99/docaiche/internal/xsync"
)

// ReorderStrategy selects how admitted-but-not-yet-dispatched requests are
// prioritized against each other.
type ReorderStrategy string

const (
	// StrategyPriorityThenAge orders by (priority desc, enqueue time asc).
	// This is the default.
	StrategyPriorityThenAge ReorderStrategy = "priority_then_age"
	// StrategyFairShare orders requests of different users by enqueue
	// time (oldest first) and requests of the same user by priority. It
	// keeps no per-user share count and does not interleave users: a user
	// whose requests were enqueued first is served first.
	StrategyFairShare ReorderStrategy = "fair_share"
	// StrategyDeadlineFirst orders by the request's queue_timeout
	// deadline, soonest first.
	StrategyDeadlineFirst ReorderStrategy = "deadline_first"
)

// Config configures a Queue.
type Config struct {
	// MaxQueueDepth is the hard capacity. Enqueue past this hard-fails
	// with QueueOverflow. Defaults to 100.
	MaxQueueDepth int
	// HighWaterMark as a fraction of MaxQueueDepth above which Enqueue
	// reports overloaded (but still admits). Defaults to 0.8.
	HighWaterMark float64
	// MaxConcurrentSearches bounds the dispatcher's in-flight worker
	// count. Defaults to 20.
	MaxConcurrentSearches int
	// QueueTimeout expires a request that has waited too long to be
	// dispatched. Defaults to 300s.
	QueueTimeout time.Duration
	// Strategy selects the reordering policy. Defaults to
	// StrategyPriorityThenAge.
	Strategy ReorderStrategy
	// Pool executes dispatched requests, bounding in-flight handler calls
	// to MaxConcurrentSearches. Defaults to a gammazero/workerpool sized
	// to MaxConcurrentSearches, built by New (the pool size depends on
	// MaxConcurrentSearches' own default, so it cannot be built here).
	Pool xsync.Pool
}

func (c *Config) validate() {
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = 100
	}
	if c.HighWaterMark <= 0 {
		c.HighWaterMark = 0.8
	}
	if c.MaxConcurrentSearches <= 0 {
		c.MaxConcurrentSearches = 20
	}
	if c.QueueTimeout <= 0 {
		c.QueueTimeout = 300 * time.Second
	}
	if c.Strategy == "" {
		c.Strategy = StrategyPriorityThenAge
	}
}

// entry is one admitted request awaiting dispatch.
type entry struct {
	req      *model.SearchRequest
	deadline time.Time
	index    int
}

// priorityHeap implements container/heap.Interface. Less encodes the
// active ReorderStrategy.
type priorityHeap struct {
	items    []*entry
	strategy ReorderStrategy
}

func (h priorityHeap) Len() int { return len(h.items) }

func (h priorityHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	switch h.strategy {
	case StrategyDeadlineFirst:
		return a.deadline.Before(b.deadline)
	case StrategyFairShare:
		if a.req.User.UserID != b.req.User.UserID {
			return a.req.QueueEnteredAt.Before(b.req.QueueEnteredAt)
		}
		return a.req.Priority > b.req.Priority
	default: // StrategyPriorityThenAge
		if a.req.Priority != b.req.Priority {
			return a.req.Priority > b.req.Priority
		}
		return a.req.QueueEnteredAt.Before(b.req.QueueEnteredAt)
	}
}

func (h priorityHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *priorityHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(h.items)
	h.items = append(h.items, e)
}

func (h *priorityHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

// Stats is a point-in-time snapshot of queue observability counters.
type Stats struct {
	Depth            int
	OverflowCount    int64
	RateLimitHits    int64
	DispatchedCount  int64
	ExpiredCount     int64
	WaitTimeP50      time.Duration
	WaitTimeP95      time.Duration
	WaitTimeP99      time.Duration
}

// Queue is the bounded, reorderable admission queue.
type Queue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	heap      priorityHeap
	cfg       *Config
	paused    bool
	closed    bool
	ownedPool *workerpool.WorkerPool
	waitTimes []time.Duration

	overflow   int64
	dispatched int64
	expired    int64
}

// New builds a Queue from cfg and starts its background dispatch loop,
// which drains admitted requests into handler via cfg.Pool, bounded by
// MaxConcurrentSearches. When cfg.Pool is nil, New builds a
// gammazero/workerpool sized to MaxConcurrentSearches and owns its
// lifecycle (stopped on Close).
func New(cfg *Config, handler func(ctx context.Context, req *model.SearchRequest)) *Queue {
	cfg.validate()
	q := &Queue{
		heap: priorityHeap{strategy: cfg.Strategy},
		cfg:  cfg,
	}
	if cfg.Pool == nil {
		wp := workerpool.New(cfg.MaxConcurrentSearches)
		q.ownedPool = wp
		cfg.Pool = xsync.PoolOfWorkerpool(wp)
	}
	q.cond = sync.NewCond(&q.mu)
	go q.dispatchLoop(handler)
	return q
}

// Enqueue admits req if capacity allows. It returns apperr.QueueOverflow
// when the queue is at MaxQueueDepth.
func (q *Queue) Enqueue(req *model.SearchRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap.items) >= q.cfg.MaxQueueDepth {
		q.overflow++
		return apperr.QueueOverflow()
	}

	req.QueueEnteredAt = time.Now()
	e := &entry{req: req, deadline: req.QueueEnteredAt.Add(q.cfg.QueueTimeout)}
	heap.Push(&q.heap, e)
	q.cond.Signal()
	return nil
}

// Overloaded reports whether current depth has crossed the high-water
// mark, signaling callers to treat new admissions as degraded-capacity.
func (q *Queue) Overloaded() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return float64(len(q.heap.items)) >= q.cfg.HighWaterMark*float64(q.cfg.MaxQueueDepth)
}

// Pause stops new dispatches without discarding queued requests.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume restarts dispatching.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.cond.Signal()
}

// Clear discards all currently queued (not yet dispatched) requests.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.heap.items = nil
}

// Close stops the dispatch loop and, if New built the default worker pool,
// stops it after its queued work drains.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	if q.ownedPool != nil {
		q.ownedPool.StopWait()
	}
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Depth:           len(q.heap.items),
		OverflowCount:   q.overflow,
		DispatchedCount: q.dispatched,
		ExpiredCount:    q.expired,
		WaitTimeP50:     percentile(q.waitTimes, 0.50),
		WaitTimeP95:     percentile(q.waitTimes, 0.95),
		WaitTimeP99:     percentile(q.waitTimes, 0.99),
	}
}

func (q *Queue) dispatchLoop(handler func(ctx context.Context, req *model.SearchRequest)) {
	for {
		q.mu.Lock()
		for (len(q.heap.items) == 0 || q.paused) && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		e := heap.Pop(&q.heap).(*entry)
		now := time.Now()
		if now.After(e.deadline) {
			q.expired++
			q.mu.Unlock()
			continue
		}
		waited := now.Sub(e.req.QueueEnteredAt)
		q.waitTimes = append(q.waitTimes, waited)
		if len(q.waitTimes) > 10_000 {
			q.waitTimes = q.waitTimes[len(q.waitTimes)-10_000:]
		}
		q.dispatched++
		q.mu.Unlock()

		req := e.req
		deadline := e.deadline
		_ = q.cfg.Pool.Submit(func() {
			ctx, cancel := context.WithDeadline(context.Background(), deadline)
			defer cancel()
			handler(ctx, req)
		})
	}
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

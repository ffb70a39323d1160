package mcptool

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SourceType enumerates where the `ingest` tool's crawl should start from.
type SourceType string

const (
	SourceTypeGitHub SourceType = "github"
	SourceTypeWeb    SourceType = "web"
	SourceTypeAPI    SourceType = "api"
)

func (s SourceType) valid() bool {
	switch s {
	case SourceTypeGitHub, SourceTypeWeb, SourceTypeAPI:
		return true
	default:
		return false
	}
}

// ConsentRecord must accompany every ingest call: the MCP transport layer
// is responsible for obtaining it from the caller, but this package
// enforces that one was actually supplied before a crawl is queued.
type ConsentRecord struct {
	GrantedBy string
	GrantedAt time.Time
}

func (c ConsentRecord) empty() bool {
	return c.GrantedBy == "" || c.GrantedAt.IsZero()
}

// IngestArgs is the `ingest` tool's logical input.
type IngestArgs struct {
	SourceURL  string
	SourceType SourceType
	Priority   string // "critical" | "high" | "normal" | "low" | "batch"; defaults to "normal"
	Workspace  string
	MaxDepth   int // 1..10, defaults to 1
	Consent    ConsentRecord
}

// IngestJob is one queued crawl request awaiting the external crawler /
// indexing pipeline; that pipeline is the job's sole consumer.
type IngestJob struct {
	ID         string
	SourceURL  string
	SourceType SourceType
	Priority   float64
	Workspace  string
	MaxDepth   int
	EnqueuedAt time.Time
}

// IngestResult is returned to the caller immediately: the job has been
// queued, not executed.
type IngestResult struct {
	IngestionID   string
	QueuePosition int
}

// IngestTool implements the MCP `ingest` tool contract: it validates the
// request, requires an accompanying consent record, and enqueues a crawl
// job for the external job runner to pick up.
type IngestTool struct {
	mu    sync.Mutex
	queue []IngestJob
}

// NewIngestTool returns an empty IngestTool.
func NewIngestTool() *IngestTool {
	return &IngestTool{}
}

// Name satisfies ToolHandler.
func (t *IngestTool) Name() string { return "ingest" }

// Call validates args, rejects a missing consent record, and enqueues the
// crawl job, returning its id and 1-based position in the queue.
func (t *IngestTool) Call(args IngestArgs) (IngestResult, error) {
	if args.SourceURL == "" {
		return IngestResult{}, validationErrf("source_url is required")
	}
	if !args.SourceType.valid() {
		return IngestResult{}, validationErrf("source_type must be one of github, web, api, got %q", args.SourceType)
	}
	if args.Consent.empty() {
		return IngestResult{}, validationErrf("ingest requires an accompanying consent record")
	}
	maxDepth := args.MaxDepth
	if maxDepth == 0 {
		maxDepth = 1
	}
	if maxDepth < 1 || maxDepth > 10 {
		return IngestResult{}, validationErrf("max_depth must be between 1 and 10, got %d", maxDepth)
	}

	job := IngestJob{
		ID:         uuid.NewString(),
		SourceURL:  args.SourceURL,
		SourceType: args.SourceType,
		Priority:   priorityScore(args.Priority),
		Workspace:  args.Workspace,
		MaxDepth:   maxDepth,
		EnqueuedAt: time.Now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, job)
	return IngestResult{IngestionID: job.ID, QueuePosition: len(t.queue)}, nil
}

// Pending returns every job still awaiting pickup, in FIFO order. The
// external job runner calls this (or an equivalent wire-level poll) to
// drain the queue; this package never executes a crawl itself.
func (t *IngestTool) Pending() []IngestJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]IngestJob(nil), t.queue...)
}

// Complete removes id from the pending queue once the job runner reports
// it done, returning an error if id was never queued or already removed.
func (t *IngestTool) Complete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, job := range t.queue {
		if job.ID == id {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("ingest job %s: not found in queue", id)
}

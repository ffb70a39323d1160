package mcptool

import (
	"context"
	"time"
)

// FeedbackArgs is the `feedback` tool's logical input: required
// content_id and rating in [0,1], optional free-text comment.
type FeedbackArgs struct {
	ContentID string
	Rating    float64
	Comment   string
}

// Feedback is one recorded rating, timestamped at receipt.
type Feedback struct {
	ContentID string
	Rating    float64
	Comment   string
	RecordedAt time.Time
}

// FeedbackSink persists recorded feedback. The concrete store (quality
// signals feeding future ranking, an analytics sink, or both) is an
// external collaborator; this tool only validates and forwards.
type FeedbackSink interface {
	Record(ctx context.Context, fb Feedback) error
}

// FeedbackTool implements the MCP `feedback` tool contract.
type FeedbackTool struct {
	sink FeedbackSink
}

// NewFeedbackTool builds a FeedbackTool writing through sink.
func NewFeedbackTool(sink FeedbackSink) *FeedbackTool {
	return &FeedbackTool{sink: sink}
}

// Name satisfies ToolHandler.
func (t *FeedbackTool) Name() string { return "feedback" }

// Call validates args and records the rating via the configured sink.
func (t *FeedbackTool) Call(ctx context.Context, args FeedbackArgs) error {
	if args.ContentID == "" {
		return validationErrf("content_id is required")
	}
	if args.Rating < 0 || args.Rating > 1 {
		return validationErrf("rating must be between 0 and 1, got %v", args.Rating)
	}
	return t.sink.Record(ctx, Feedback{
		ContentID:  args.ContentID,
		Rating:     args.Rating,
		Comment:    args.Comment,
		RecordedAt: time.Now(),
	})
}

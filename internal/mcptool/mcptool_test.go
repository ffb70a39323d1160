package mcptool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/apperr"
	"github.com/bmeyer99/docaiche/internal/model"
)

type stubOrchestrator struct {
	resp model.SearchResponse
	err  error
	last *model.SearchRequest
}

func (s *stubOrchestrator) Run(_ context.Context, req *model.SearchRequest) (model.SearchResponse, error) {
	s.last = req
	return s.resp, s.err
}

func TestSearchTool_ValidatesQueryLength(t *testing.T) {
	tool := NewSearchTool(&stubOrchestrator{}, model.UserContext{UserID: "u1"})

	_, err := tool.Call(context.Background(), SearchArgs{Query: "a"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = tool.Call(context.Background(), SearchArgs{Query: ""})
	require.Error(t, err)
}

func TestSearchTool_ClampsLimitAndDefaults(t *testing.T) {
	orch := &stubOrchestrator{resp: model.SearchResponse{Total: 3}}
	tool := NewSearchTool(orch, model.UserContext{UserID: "u1"})

	_, err := tool.Call(context.Background(), SearchArgs{Query: "python async await", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 200, orch.last.Limit)

	_, err = tool.Call(context.Background(), SearchArgs{Query: "python async await"})
	require.NoError(t, err)
	assert.Equal(t, 10, orch.last.Limit)
}

func TestIngestTool_RequiresConsent(t *testing.T) {
	tool := NewIngestTool()
	_, err := tool.Call(IngestArgs{
		SourceURL:  "https://example.com/docs",
		SourceType: SourceTypeWeb,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestIngestTool_RejectsBadSourceTypeAndDepth(t *testing.T) {
	tool := NewIngestTool()
	consent := ConsentRecord{GrantedBy: "user-1", GrantedAt: time.Now()}

	_, err := tool.Call(IngestArgs{SourceURL: "https://example.com", SourceType: "ftp", Consent: consent})
	require.Error(t, err)

	_, err = tool.Call(IngestArgs{SourceURL: "https://example.com", SourceType: SourceTypeWeb, MaxDepth: 11, Consent: consent})
	require.Error(t, err)
}

func TestIngestTool_QueuesAndReportsPosition(t *testing.T) {
	tool := NewIngestTool()
	consent := ConsentRecord{GrantedBy: "user-1", GrantedAt: time.Now()}

	first, err := tool.Call(IngestArgs{SourceURL: "https://example.com/a", SourceType: SourceTypeGitHub, Consent: consent})
	require.NoError(t, err)
	assert.Equal(t, 1, first.QueuePosition)

	second, err := tool.Call(IngestArgs{SourceURL: "https://example.com/b", SourceType: SourceTypeAPI, Consent: consent})
	require.NoError(t, err)
	assert.Equal(t, 2, second.QueuePosition)

	assert.Len(t, tool.Pending(), 2)

	require.NoError(t, tool.Complete(first.IngestionID))
	assert.Len(t, tool.Pending(), 1)

	err = tool.Complete(first.IngestionID)
	assert.Error(t, err)
}

type stubFeedbackSink struct {
	recorded []Feedback
}

func (s *stubFeedbackSink) Record(_ context.Context, fb Feedback) error {
	s.recorded = append(s.recorded, fb)
	return nil
}

func TestFeedbackTool_ValidatesAndRecords(t *testing.T) {
	sink := &stubFeedbackSink{}
	tool := NewFeedbackTool(sink)

	err := tool.Call(context.Background(), FeedbackArgs{ContentID: "", Rating: 0.5})
	require.Error(t, err)

	err = tool.Call(context.Background(), FeedbackArgs{ContentID: "c1", Rating: 1.5})
	require.Error(t, err)

	err = tool.Call(context.Background(), FeedbackArgs{ContentID: "c1", Rating: 0.9, Comment: "helpful"})
	require.NoError(t, err)
	require.Len(t, sink.recorded, 1)
	assert.Equal(t, "c1", sink.recorded[0].ContentID)
}

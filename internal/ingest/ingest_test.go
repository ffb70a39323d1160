package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/cache"
	"github.com/bmeyer99/docaiche/internal/model"
)

func newTestPath(t *testing.T) (*Path, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p, err := New(&Config{
		Metadata:  NewRedisMetadataStore(client),
		SideStore: cache.NewRedisStore(client),
	})
	require.NoError(t, err)
	return p, mr
}

func TestIngest_ProducesTTLDocumentsAndPersists(t *testing.T) {
	p, _ := newTestPath(t)

	hits := []model.SearchResult{
		{
			ContentID:     "doc-1",
			Title:         "React 18 API Reference",
			FullContent:   "```jsx\nconst x = 1;\n```\nThis is the stable production API reference.",
			SourceURL:     "https://react.dev/reference",
			TechnologyTag: "react",
			QualityScore:  0.95,
			Metadata:      map[string]any{"owner": "facebook", "version": "18.2.0"},
		},
	}

	status, docs := p.Ingest(context.Background(), hits, "context7", ModeSynchronous)

	require.True(t, status.Success)
	assert.Equal(t, 1, status.IngestedCount)
	assert.Equal(t, "synchronous", status.Type)
	assert.Equal(t, "context7", status.SourceTag)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ContentID)
	assert.Equal(t, model.DocumentTypeAPI, docs[0].DocumentType)
	assert.True(t, docs[0].TTLDays >= 1 && docs[0].TTLDays <= 90)
	assert.True(t, docs[0].Quality.HasCode)
}

func TestIngest_EmptyHitsSucceedsTrivially(t *testing.T) {
	p, _ := newTestPath(t)
	status, docs := p.Ingest(context.Background(), nil, "context7", ModeAsynchronous)
	assert.True(t, status.Success)
	assert.Equal(t, 0, status.IngestedCount)
	assert.Empty(t, docs)
}

func TestIngest_ExpiredDocumentsEnumeratesPastCutoff(t *testing.T) {
	p, _ := newTestPath(t)
	ctx := context.Background()

	hits := []model.SearchResult{
		{ContentID: "doc-expired", Title: "Old guide", Snippet: "deprecated legacy content", TechnologyTag: "react"},
	}
	_, docs := p.Ingest(ctx, hits, "context7", ModeSynchronous)
	require.Len(t, docs, 1)

	expired, err := p.ExpiredDocuments(ctx, docs[0].ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "doc-expired", expired[0].ContentID)

	notYetExpired, err := p.ExpiredDocuments(ctx, docs[0].CreatedAt)
	require.NoError(t, err)
	assert.Empty(t, notYetExpired)
}

package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/model"
)

func TestAsyncRunner_EnrichIngestsInBackground(t *testing.T) {
	p, _ := newTestPath(t)
	runner, err := NewAsyncRunner(p, 2)
	require.NoError(t, err)
	defer runner.Release()

	hits := []model.SearchResult{
		{ContentID: "async-doc", Title: "Async guide", Snippet: "plain text snippet", TechnologyTag: "react"},
	}
	runner.Enrich(context.Background(), hits, "context7")

	require.Eventually(t, func() bool {
		docs, err := p.ExpiredDocuments(context.Background(), time.Now().Add(365*24*time.Hour))
		return err == nil && len(docs) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAsyncRunner_EnrichSnapshotsHitsBeforeCallerReusesSlice(t *testing.T) {
	p, _ := newTestPath(t)
	runner, err := NewAsyncRunner(p, 1)
	require.NoError(t, err)
	defer runner.Release()

	hits := []model.SearchResult{{ContentID: "doc-a", TechnologyTag: "react"}}
	runner.Enrich(context.Background(), hits, "context7")
	// A caller reusing its buffer right after Enrich returns must not race
	// with the snapshot Enrich submitted to the pool.
	hits[0].ContentID = "mutated"

	require.Eventually(t, func() bool {
		docs, err := p.ExpiredDocuments(context.Background(), time.Now().Add(365*24*time.Hour))
		if err != nil || len(docs) != 1 {
			return false
		}
		return docs[0].ContentID == "doc-a"
	}, time.Second, 5*time.Millisecond)
}

func TestNewAsyncRunner_DefaultsMaxConcurrent(t *testing.T) {
	p, _ := newTestPath(t)
	runner, err := NewAsyncRunner(p, 0)
	require.NoError(t, err)
	defer runner.Release()
	assert.NotNil(t, runner.pool)
	assert.Equal(t, 10, runner.antsPool.Cap())
}

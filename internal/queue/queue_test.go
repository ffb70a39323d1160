package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/apperr"
	"github.com/bmeyer99/docaiche/internal/model"
)

func TestQueue_EnqueueOverflow(t *testing.T) {
	var mu sync.Mutex
	var handled []string

	q := New(&Config{MaxQueueDepth: 2, Pool: nil}, func(ctx context.Context, req *model.SearchRequest) {
		mu.Lock()
		handled = append(handled, req.RequestID)
		mu.Unlock()
	})
	defer q.Close()

	q.Pause()

	require.NoError(t, q.Enqueue(&model.SearchRequest{RequestID: "a"}))
	require.NoError(t, q.Enqueue(&model.SearchRequest{RequestID: "b"}))

	err := q.Enqueue(&model.SearchRequest{RequestID: "c"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAdmission))
}

func TestQueue_PriorityThenAgeOrdering(t *testing.T) {
	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 3)

	q := New(&Config{MaxQueueDepth: 10, MaxConcurrentSearches: 1}, func(ctx context.Context, req *model.SearchRequest) {
		mu.Lock()
		order = append(order, req.RequestID)
		mu.Unlock()
		done <- struct{}{}
	})
	defer q.Close()

	q.Pause()
	require.NoError(t, q.Enqueue(&model.SearchRequest{RequestID: "low", Priority: 1}))
	require.NoError(t, q.Enqueue(&model.SearchRequest{RequestID: "high", Priority: 9}))
	require.NoError(t, q.Enqueue(&model.SearchRequest{RequestID: "mid", Priority: 5}))
	q.Resume()

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for dispatch")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3)
	assert.Equal(t, "high", order[0])
	assert.Equal(t, "mid", order[1])
	assert.Equal(t, "low", order[2])
}

func TestQueue_Overloaded(t *testing.T) {
	q := New(&Config{MaxQueueDepth: 10, HighWaterMark: 0.5}, func(ctx context.Context, req *model.SearchRequest) {})
	defer q.Close()

	q.Pause()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(&model.SearchRequest{RequestID: "x"}))
	}
	assert.True(t, q.Overloaded())
}

func TestQueue_Clear(t *testing.T) {
	q := New(&Config{MaxQueueDepth: 10}, func(ctx context.Context, req *model.SearchRequest) {})
	defer q.Close()

	q.Pause()
	require.NoError(t, q.Enqueue(&model.SearchRequest{RequestID: "a"}))
	q.Clear()
	assert.Equal(t, 0, q.Stats().Depth)
}

package vectorindex

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmeyer99/docaiche/internal/model"
)

func TestConfig_ValidateRequiresClient(t *testing.T) {
	cfg := &Config{CollectionName: "docs"}
	assert.Error(t, cfg.validate())
}

func TestConfig_ValidateRequiresVectorSizeWhenEnsuringSchema(t *testing.T) {
	cfg := &Config{Client: &qdrant.Client{}, CollectionName: "docs", EnsureSchema: true}
	assert.Error(t, cfg.validate())
}

func TestDecodeValue(t *testing.T) {
	strVal, err := qdrant.NewValue("guide")
	require.NoError(t, err)
	assert.Equal(t, "guide", decodeValue(strVal))

	intVal, err := qdrant.NewValue(int64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), decodeValue(intVal))

	assert.Nil(t, decodeValue(nil))
}

func TestIndex_ToResultDecodesPayload(t *testing.T) {
	idx := &Index{collectionName: "docs"}

	payload, err := qdrant.TryValueMap(map[string]any{
		"title":          "Getting started",
		"snippet":        "Install the CLI",
		"workspace_id":   "ws-1",
		"technology_tag": "react",
		"content_type":   string(model.ContentTypeGuide),
		"quality_score":  0.8,
	})
	require.NoError(t, err)

	point := &qdrant.ScoredPoint{
		Id:      qdrant.NewID("11111111-1111-1111-1111-111111111111"),
		Score:   0.92,
		Payload: payload,
	}

	result := idx.toResult(point)
	assert.Equal(t, "Getting started", result.Title)
	assert.Equal(t, "ws-1", result.WorkspaceID)
	assert.Equal(t, model.ContentTypeGuide, result.ContentType)
	assert.InDelta(t, 0.92, result.RelevanceScore, 0.0001)
	assert.InDelta(t, 0.8, result.QualityScore, 0.0001)
}

func TestIndex_UpsertNoopOnEmpty(t *testing.T) {
	idx := &Index{collectionName: "docs"}
	assert.NoError(t, idx.Upsert(context.Background(), nil))
}

func TestIndex_DeleteNoopOnEmpty(t *testing.T) {
	idx := &Index{collectionName: "docs"}
	assert.NoError(t, idx.Delete(context.Background(), nil))
}

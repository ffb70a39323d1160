// Package vectorindex holds the embedded documents of every workspace in
// one Qdrant collection, partitioned by the workspace_id payload field, and
// answers the per-workspace similarity queries the fan-out stage issues.
package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bmeyer99/docaiche/internal/model"
)

const workspacePayloadKey = "workspace_id"

func ptrOf[T any](v T) *T { return &v }

// Config configures an Index.
type Config struct {
	// Client is the Qdrant client instance. Required.
	Client *qdrant.Client

	// CollectionName is the single collection holding every workspace's
	// points, partitioned by the workspace_id payload field.
	CollectionName string

	// VectorSize is the embedding dimensionality. Required when
	// EnsureSchema is set, since the collection may then be created.
	VectorSize uint64

	// EnsureSchema creates CollectionName if it does not already exist.
	EnsureSchema bool
}

func (c *Config) validate() error {
	if c.Client == nil {
		return errors.New("vectorindex: client is required")
	}
	if c.CollectionName == "" {
		return errors.New("vectorindex: collection name is required")
	}
	if c.EnsureSchema && c.VectorSize == 0 {
		return errors.New("vectorindex: vector size is required when ensuring schema")
	}
	return nil
}

// Index is the per-deployment vector index client.
type Index struct {
	client         *qdrant.Client
	collectionName string
}

// New builds an Index from cfg, optionally creating the backing collection.
func New(ctx context.Context, cfg *Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	idx := &Index{
		client:         cfg.Client,
		collectionName: cfg.CollectionName,
	}

	if cfg.EnsureSchema {
		if err := idx.ensureCollection(ctx, cfg.VectorSize); err != nil {
			return nil, fmt.Errorf("vectorindex: failed to ensure collection: %w", err)
		}
	}

	return idx, nil
}

func (idx *Index) ensureCollection(ctx context.Context, vectorSize uint64) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	return idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: idx.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// Document is one embedded document ready for upsert.
type Document struct {
	ContentID     string
	WorkspaceID   string
	Vector        []float32
	Title         string
	Snippet       string
	FullContent   string
	SourceURL     string
	TechnologyTag string
	ContentType   model.ContentType
	QualityScore  float64
	RecencyScore  float64
	Metadata      map[string]any
}

// Upsert embeds docs into the index, keyed by ContentID (a fresh UUID is
// assigned when ContentID is empty).
func (idx *Index) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		point, err := idx.buildPoint(doc)
		if err != nil {
			return fmt.Errorf("vectorindex: failed to build point for document %s: %w", doc.ContentID, err)
		}
		points = append(points, point)
	}

	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collectionName,
		Wait:           ptrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("vectorindex: failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

func (idx *Index) buildPoint(doc Document) (*qdrant.PointStruct, error) {
	id := doc.ContentID
	if id == "" {
		id = uuid.NewString()
	}

	fields := map[string]any{
		workspacePayloadKey: doc.WorkspaceID,
		"title":             doc.Title,
		"snippet":           doc.Snippet,
		"full_content":      doc.FullContent,
		"source_url":        doc.SourceURL,
		"technology_tag":    doc.TechnologyTag,
		"content_type":      string(doc.ContentType),
		"quality_score":     doc.QualityScore,
		"recency_score":     doc.RecencyScore,
	}
	for k, v := range doc.Metadata {
		fields[k] = v
	}

	payload, err := qdrant.TryValueMap(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metadata to payload: %w", err)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(doc.Vector...),
		Payload: payload,
	}, nil
}

// Query is one similarity search issued against a single workspace.
type Query struct {
	WorkspaceID   string
	Vector        []float32
	Limit         int
	MinScore      float64
	TechnologyTag string // optional, exact-match filter
}

// Search runs a similarity query scoped to one workspace and returns hits
// ordered by descending score.
func (idx *Index) Search(ctx context.Context, q Query) ([]model.SearchResult, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	must := []*qdrant.Condition{
		qdrant.NewMatchKeyword(workspacePayloadKey, q.WorkspaceID),
	}
	if q.TechnologyTag != "" {
		must = append(must, qdrant.NewMatchKeyword("technology_tag", q.TechnologyTag))
	}

	scored, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collectionName,
		Query:          qdrant.NewQuery(q.Vector...),
		Filter:         &qdrant.Filter{Must: must},
		ScoreThreshold: ptrOf(float32(q.MinScore)),
		Limit:          ptrOf(uint64(q.Limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorindex: query against workspace %s failed: %w", q.WorkspaceID, err)
	}

	return idx.toResults(scored), nil
}

func (idx *Index) toResults(points []*qdrant.ScoredPoint) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, idx.toResult(point))
	}
	return results
}

func (idx *Index) toResult(point *qdrant.ScoredPoint) model.SearchResult {
	payload := point.GetPayload()
	metadata := make(map[string]any, len(payload))
	for k, v := range payload {
		metadata[k] = decodeValue(v)
	}

	result := model.SearchResult{
		ContentID:      point.GetId().GetUuid(),
		RelevanceScore: float64(point.GetScore()),
		Metadata:       metadata,
	}
	if title, ok := metadata["title"].(string); ok {
		result.Title = title
	}
	if snippet, ok := metadata["snippet"].(string); ok {
		result.Snippet = snippet
	}
	if full, ok := metadata["full_content"].(string); ok {
		result.FullContent = full
	}
	if url, ok := metadata["source_url"].(string); ok {
		result.SourceURL = url
	}
	if ws, ok := metadata["workspace_id"].(string); ok {
		result.WorkspaceID = ws
	}
	if tag, ok := metadata["technology_tag"].(string); ok {
		result.TechnologyTag = tag
	}
	if ct, ok := metadata["content_type"].(string); ok {
		result.ContentType = model.ContentType(ct)
	}
	if q, ok := metadata["quality_score"].(float64); ok {
		result.QualityScore = q
	}
	if r, ok := metadata["recency_score"].(float64); ok {
		result.RecencyScore = r
	}
	return result
}

func decodeValue(value *qdrant.Value) any {
	if value == nil {
		return nil
	}
	switch kind := value.Kind.(type) {
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return decodeStruct(kind.StructValue)
	case *qdrant.Value_ListValue:
		return decodeList(kind.ListValue)
	default:
		return nil
	}
}

func decodeStruct(s *qdrant.Struct) map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any, len(s.Fields))
	for k, v := range s.Fields {
		out[k] = decodeValue(v)
	}
	return out
}

func decodeList(l *qdrant.ListValue) []any {
	if l == nil {
		return nil
	}
	out := make([]any, len(l.Values))
	for i, v := range l.Values {
		out[i] = decodeValue(v)
	}
	return out
}

// Delete removes every point for contentIDs from the index.
func (idx *Index) Delete(ctx context.Context, contentIDs []string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, len(contentIDs))
	for i, id := range contentIDs {
		ids[i] = qdrant.NewID(id)
	}
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorindex: failed to delete %d points: %w", len(contentIDs), err)
	}
	return nil
}

// Name satisfies obs.HealthChecker.
func (idx *Index) Name() string { return "vector_index" }

// HealthCheck satisfies obs.HealthChecker by confirming the collection is
// reachable.
func (idx *Index) HealthCheck(ctx context.Context) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collectionName)
	if err != nil {
		return fmt.Errorf("vector index unreachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("vector index collection %q does not exist", idx.collectionName)
	}
	return nil
}

// Close releases the underlying Qdrant connection.
func (idx *Index) Close() error {
	return idx.client.Close()
}

package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bmeyer99/docaiche/internal/apperr"
	"github.com/bmeyer99/docaiche/internal/model"
)

// MetadataRecord is the persisted row the metadata store keys by content
// id: technology, content hash, status, an opaque metadata blob, and the
// timestamps the TTLDocument index requires.
type MetadataRecord struct {
	ContentID   string
	Technology  string
	ContentHash string
	Status      string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// MetadataStore persists TTLDocument metadata. The core only needs enough
// of a contract to write new records and enumerate expired ones; the
// concrete storage engine is an external collaborator.
type MetadataStore interface {
	Put(ctx context.Context, rec MetadataRecord) error
	ExpiredBefore(ctx context.Context, cutoff time.Time) ([]MetadataRecord, error)
	Delete(ctx context.Context, contentID string) error
}

// ContentSideStore holds full document content for the short retention
// window between ingestion and the external indexing pipeline picking it
// up. The redis-backed cache.Store adapter satisfies this directly.
type ContentSideStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config configures a Path.
type Config struct {
	Metadata          MetadataStore
	SideStore         ContentSideStore
	BaseTTLDays       int // default 30
	MinTTLDays        int // default 1
	MaxTTLDays        int // default 90
	SideStoreRetention time.Duration // default 1h
}

func (c *Config) validate() error {
	if c.Metadata == nil {
		return fmt.Errorf("ingest config: metadata store is required")
	}
	if c.SideStore == nil {
		return fmt.Errorf("ingest config: content side store is required")
	}
	if c.BaseTTLDays <= 0 {
		c.BaseTTLDays = 30
	}
	if c.MinTTLDays <= 0 {
		c.MinTTLDays = 1
	}
	if c.MaxTTLDays <= 0 {
		c.MaxTTLDays = 90
	}
	if c.SideStoreRetention <= 0 {
		c.SideStoreRetention = time.Hour
	}
	return nil
}

// Path is the TTL-aware ingestion path (C8): it turns selected external
// search hits into cached, expiring documents.
type Path struct {
	metadata MetadataStore
	sideStore ContentSideStore
	baseTTL  int
	minTTL   int
	maxTTL   int
	sideTTL  time.Duration
}

// New builds a Path from cfg.
func New(cfg *Config) (*Path, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Path{
		metadata:  cfg.Metadata,
		sideStore: cfg.SideStore,
		baseTTL:   cfg.BaseTTLDays,
		minTTL:    cfg.MinTTLDays,
		maxTTL:    cfg.MaxTTLDays,
		sideTTL:   cfg.SideStoreRetention,
	}, nil
}

// IngestionMode selects whether this call is part of the orchestrator's
// synchronous stage or an asynchronously scheduled enrichment job; it is
// embedded verbatim into the returned IngestionStatus.
type IngestionMode string

const (
	ModeSynchronous  IngestionMode = "synchronous"
	ModeAsynchronous IngestionMode = "asynchronous"
)

// Ingest classifies, scores, and persists every result in hits, returning
// the built TTLDocuments alongside the embedded ingestion status. A
// per-document failure is recorded in the returned status (its Error holds
// the first failure) but does not abort the remaining documents. Ingest
// has no error return: the status reports Success false when hits were
// given but no document was built.
func (p *Path) Ingest(ctx context.Context, hits []model.SearchResult, sourceTag string, mode IngestionMode) (model.IngestionStatus, []model.TTLDocument) {
	start := time.Now()
	status := model.IngestionStatus{SourceTag: sourceTag, Type: string(mode)}

	docs := make([]model.TTLDocument, 0, len(hits))
	var firstErr error

	for _, hit := range hits {
		doc, err := p.ingestOne(ctx, hit, sourceTag)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		docs = append(docs, doc)
	}

	status.Duration = time.Since(start)
	status.IngestedCount = len(docs)
	status.Success = len(docs) > 0 || len(hits) == 0
	if firstErr != nil {
		status.Error = firstErr.Error()
	}
	return status, docs
}

func (p *Path) ingestOne(ctx context.Context, hit model.SearchResult, sourceTag string) (model.TTLDocument, error) {
	content := hit.FullContent
	if content == "" {
		content = hit.Snippet
	}

	docType := Classify(hit.Title, content)
	technology := hit.TechnologyTag
	if technology == "" {
		technology, _ = hit.Metadata["technology"].(string)
	}
	owner, _ := hit.Metadata["owner"].(string)
	version, _ := hit.Metadata["version"].(string)
	if version == "" {
		version = ExtractVersion(content)
	}
	quality := ExtractQuality(content)

	ttlDays := ComputeTTLDays(Inputs{
		Technology: technology,
		DocType:    docType,
		Content:    content,
		Version:    version,
		Quality:    hit.QualityScore,
	}, p.baseTTL, p.minTTL, p.maxTTL)

	now := time.Now()
	contentID := contentIDFor(hit, sourceTag)
	doc := model.TTLDocument{
		ContentID:    contentID,
		Content:      content,
		SourceURL:    hit.SourceURL,
		Technology:   technology,
		Owner:        owner,
		Version:      version,
		DocumentType: docType,
		TTLDays:      ttlDays,
		CreatedAt:    now,
		ExpiresAt:    now.AddDate(0, 0, ttlDays),
		SourceTag:    sourceTag,
		Quality:      quality,
	}

	if err := p.persist(ctx, doc, sourceTag); err != nil {
		return model.TTLDocument{}, apperr.IngestionFault(fmt.Sprintf("persist document %s", contentID), err)
	}
	return doc, nil
}

func (p *Path) persist(ctx context.Context, doc model.TTLDocument, sourceTag string) error {
	rec := MetadataRecord{
		ContentID:   doc.ContentID,
		Technology:  doc.Technology,
		ContentHash: contentHash(doc.Content),
		Status:      "pending_" + sourceTag,
		Metadata: map[string]any{
			"owner":        doc.Owner,
			"version":      doc.Version,
			"document_type": string(doc.DocumentType),
			"source_url":   doc.SourceURL,
			"ttl_days":     doc.TTLDays,
			"has_code":     doc.Quality.HasCode,
			"link_count":   doc.Quality.LinkCount,
			"word_count":   doc.Quality.WordCount,
			"header_count": doc.Quality.HeaderCount,
		},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}
	if err := p.metadata.Put(ctx, rec); err != nil {
		return fmt.Errorf("write metadata record: %w", err)
	}
	if err := p.sideStore.Set(ctx, sideStoreKey(doc.ContentID), []byte(doc.Content), p.sideTTL); err != nil {
		return fmt.Errorf("write content side store: %w", err)
	}
	return nil
}

// ExpiredDocuments enumerates metadata records whose expiration is at or
// before now, the query interface the external cleanup job runner needs
// to find TTLDocuments that should be removed.
func (p *Path) ExpiredDocuments(ctx context.Context, now time.Time) ([]MetadataRecord, error) {
	return p.metadata.ExpiredBefore(ctx, now)
}

func contentIDFor(hit model.SearchResult, sourceTag string) string {
	if hit.ContentID != "" {
		return hit.ContentID
	}
	sum := sha256.Sum256([]byte(sourceTag + "\x00" + hit.SourceURL))
	return hex.EncodeToString(sum[:16])
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func sideStoreKey(contentID string) string {
	return "docaiche:ingest:pending:" + contentID
}

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMetadataStore persists TTLDocument metadata in redis: one string key
// per content id holding the JSON-encoded record, plus a sorted set keyed
// by expiry unix time so ExpiredBefore can range-query without a table
// scan.
type RedisMetadataStore struct {
	client *redis.Client
}

// NewRedisMetadataStore wraps an existing redis client as a MetadataStore.
func NewRedisMetadataStore(client *redis.Client) *RedisMetadataStore {
	return &RedisMetadataStore{client: client}
}

const (
	metadataKeyPrefix = "docaiche:ingest:meta:"
	expiryIndexKey    = "docaiche:ingest:expiry"
)

func metadataKey(contentID string) string {
	return metadataKeyPrefix + contentID
}

// Put writes rec's JSON-encoded form under its content id and indexes its
// expiration in the sorted set used by ExpiredBefore.
func (s *RedisMetadataStore) Put(ctx context.Context, rec MetadataRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal metadata record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, metadataKey(rec.ContentID), raw, 0)
	pipe.ZAdd(ctx, expiryIndexKey, redis.Z{
		Score:  float64(rec.ExpiresAt.Unix()),
		Member: rec.ContentID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write metadata record %s: %w", rec.ContentID, err)
	}
	return nil
}

// ExpiredBefore returns every metadata record whose expiry is at or
// before cutoff, oldest first.
func (s *RedisMetadataStore) ExpiredBefore(ctx context.Context, cutoff time.Time) ([]MetadataRecord, error) {
	ids, err := s.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range expired content ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = metadataKey(id)
	}
	rawValues, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch expired metadata records: %w", err)
	}

	records := make([]MetadataRecord, 0, len(rawValues))
	for _, raw := range rawValues {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var rec MetadataRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes the content id's metadata record and expiry index entry,
// the terminal mutation the cleanup job runner performs once a TTLDocument
// has actually been removed downstream.
func (s *RedisMetadataStore) Delete(ctx context.Context, contentID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, metadataKey(contentID))
	pipe.ZRem(ctx, expiryIndexKey, contentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete metadata record %s: %w", contentID, err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoitriso/review-service/internal/domain"
)

// ErrMiss is returned when no cached summary exists for the item.
var ErrMiss = errors.New("cache miss")

// SummaryCache stores computed review summaries in Redis. Summaries are
// read far more often than reviews change, so mutations invalidate rather
// than rewrite.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache creates a Redis-backed summary cache.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		client: client,
		ttl:    ttl,
	}
}

func summaryKey(itemType domain.ItemType, itemID int64) string {
	return fmt.Sprintf("review:summary:%d:%d", int(itemType), itemID)
}

// Get retrieves a cached summary. Returns ErrMiss when absent.
func (c *SummaryCache) Get(ctx context.Context, itemType domain.ItemType, itemID int64) (*domain.ReviewSummary, error) {
	data, err := c.client.Get(ctx, summaryKey(itemType, itemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get summary: %w", err)
	}

	var summary domain.ReviewSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}

	return &summary, nil
}

// Set stores a summary with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, summary *domain.ReviewSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	if err := c.client.Set(ctx, summaryKey(summary.ItemType, summary.ItemID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set summary: %w", err)
	}

	return nil
}

// Invalidate drops the cached summary for an item.
func (c *SummaryCache) Invalidate(ctx context.Context, itemType domain.ItemType, itemID int64) error {
	if err := c.client.Del(ctx, summaryKey(itemType, itemID)).Err(); err != nil {
		return fmt.Errorf("redis del summary: %w", err)
	}

	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryCache stores per-membership stock summaries as a redis hash keyed
// by as-of date, so one DEL drops every date for a membership. A generation
// counter per membership, bumped on every invalidation, keeps a summary
// computed before an invalidation from being written back after it.
type SummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSummaryCache(rdb *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{rdb: rdb, ttl: ttl}
}

func summaryKey(membershipID string) string    { return "summary:membership:" + membershipID }
func generationKey(membershipID string) string { return "summary:generation:" + membershipID }

// Get decodes the cached value into dst. It reports false on a miss.
func (c *SummaryCache) Get(ctx context.Context, membershipID, field string, dst any) (bool, error) {
	raw, err := c.rdb.HGet(ctx, summaryKey(membershipID), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Generation returns the membership's current generation; read it before
// computing the value passed to Set.
func (c *SummaryCache) Generation(ctx context.Context, membershipID string) (int64, error) {
	return readGeneration(ctx, c.rdb, membershipID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd getter, membershipID string) (int64, error) {
	n, err := cmd.Get(ctx, generationKey(membershipID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Set stores v only while the generation still equals gen. A write that
// lost to an invalidation is dropped and reported as stored=false.
func (c *SummaryCache) Set(ctx context.Context, membershipID string, gen int64, field string, v any) (bool, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	key := summaryKey(membershipID)
	stored := false
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, payload)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, generationKey(membershipID))
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate bumps the generation and drops every cached date.
func (c *SummaryCache) Invalidate(ctx context.Context, membershipID string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, generationKey(membershipID))
	pipe.Del(ctx, summaryKey(membershipID))
	_, err := pipe.Exec(ctx)
	return err
}

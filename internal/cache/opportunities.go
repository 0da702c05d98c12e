package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hetulpatel/arbscan/internal/markets"
)

const (
	defaultFeedKey    = "arb:opportunities:recent"
	defaultFeedMaxLen = 500
)

// OpportunityFeed keeps a capped, recency-ordered list of detected opportunities.
type OpportunityFeed interface {
	Push(ctx context.Context, opps []markets.Opportunity) error
	Recent(ctx context.Context, limit int) ([]markets.Opportunity, error)
	Ping(ctx context.Context) error
	Close() error
}

type redisOpportunityFeed struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisOpportunityFeed builds a feed backed by a sorted set scored by detection time.
func NewRedisOpportunityFeed(addr, password string, db int, key string, maxLen int) (OpportunityFeed, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return newFeed(client, key, maxLen), nil
}

func newFeed(client *redis.Client, key string, maxLen int) *redisOpportunityFeed {
	if key == "" {
		key = defaultFeedKey
	}
	if maxLen <= 0 {
		maxLen = defaultFeedMaxLen
	}
	return &redisOpportunityFeed{client: client, key: key, maxLen: int64(maxLen)}
}

func (f *redisOpportunityFeed) Ping(ctx context.Context) error {
	if f == nil || f.client == nil {
		return nil
	}
	return f.client.Ping(ctx).Err()
}

func (f *redisOpportunityFeed) Push(ctx context.Context, opps []markets.Opportunity) error {
	if f == nil || f.client == nil || len(opps) == 0 {
		return nil
	}
	members, err := feedMembers(opps)
	if err != nil {
		return err
	}
	pipe := f.client.TxPipeline()
	pipe.ZAdd(ctx, f.key, members...)
	// Keep the newest maxLen entries.
	pipe.ZRemRangeByRank(ctx, f.key, 0, -f.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push opportunities: %w", err)
	}
	return nil
}

func (f *redisOpportunityFeed) Recent(ctx context.Context, limit int) ([]markets.Opportunity, error) {
	if f == nil || f.client == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	raw, err := f.client.ZRevRange(ctx, f.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: recent opportunities: %w", err)
	}
	return decodeMembers(raw), nil
}

func (f *redisOpportunityFeed) Close() error {
	if f == nil || f.client == nil {
		return nil
	}
	return f.client.Close()
}

func feedMembers(opps []markets.Opportunity) ([]redis.Z, error) {
	out := make([]redis.Z, 0, len(opps))
	for _, op := range opps {
		payload, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("marshal opportunity %s: %w", op.ID, err)
		}
		out = append(out, redis.Z{Score: score(op.DetectedAt), Member: string(payload)})
	}
	return out, nil
}

func decodeMembers(raw []string) []markets.Opportunity {
	out := make([]markets.Opportunity, 0, len(raw))
	for _, item := range raw {
		var op markets.Opportunity
		if err := json.Unmarshal([]byte(item), &op); err != nil {
			continue
		}
		out = append(out, op)
	}
	return out
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

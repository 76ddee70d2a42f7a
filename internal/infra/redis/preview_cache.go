package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-raffle-service/internal/domain"
)

// CandidateLoader derives the candidate list from a backing ledger.
type CandidateLoader interface {
	LoadCandidates(ctx context.Context, competitionID string) ([]domain.Candidate, error)
}

// PreviewCache caches candidate previews in Redis as JSON and falls back to a
// loader on cache miss. Ledger writers must call Invalidate afterwards; the
// TTL only bounds staleness if they forget.
type PreviewCache struct {
	client *redis.Client
	loader CandidateLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPreviewCache(client *redis.Client, loader CandidateLoader, ttl time.Duration) *PreviewCache {
	return &PreviewCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PreviewCache) Candidates(ctx context.Context, competitionID string) ([]domain.Candidate, error) {
	key := c.key(competitionID)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if candidates, ok := decodeCandidates(raw); ok {
			return candidates, nil
		}
	}

	result, err, _ := c.sf.Do(competitionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			if candidates, ok := decodeCandidates(raw); ok {
				return candidates, nil
			}
		}

		candidates, err := c.loader.LoadCandidates(ctx, competitionID)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(candidates)
		if err == nil {
			_ = c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err()
		}
		return candidates, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Candidate), nil
}

func (c *PreviewCache) Invalidate(ctx context.Context, competitionID string) error {
	return c.client.Del(ctx, c.key(competitionID)).Err()
}

func (c *PreviewCache) key(competitionID string) string {
	return "draw:" + competitionID + ":preview"
}

func decodeCandidates(raw []byte) ([]domain.Candidate, bool) {
	var candidates []domain.Candidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, false
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	return candidates, true
}

func (c *PreviewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

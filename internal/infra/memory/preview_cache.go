package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-raffle-service/internal/domain"
)

// CandidateLoader derives the candidate list from a backing ledger.
type CandidateLoader interface {
	LoadCandidates(ctx context.Context, competitionID string) ([]domain.Candidate, error)
}

// PreviewCache caches candidate previews with TTL to avoid re-aggregating the
// ledger on every admin page load.
type PreviewCache struct {
	loader CandidateLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPreview
}

type cachedPreview struct {
	candidates []domain.Candidate
	expiresAt  time.Time
}

func NewPreviewCache(loader CandidateLoader, ttl time.Duration) *PreviewCache {
	return &PreviewCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPreview),
	}
}

func (c *PreviewCache) Candidates(ctx context.Context, competitionID string) ([]domain.Candidate, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[competitionID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.candidates, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(competitionID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[competitionID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.candidates, nil
		}
		c.mu.RUnlock()

		candidates, err := c.loader.LoadCandidates(ctx, competitionID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[competitionID] = cachedPreview{
			candidates: candidates,
			expiresAt:  now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return candidates, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Candidate), nil
}

func (c *PreviewCache) Invalidate(_ context.Context, competitionID string) error {
	c.mu.Lock()
	delete(c.cache, competitionID)
	c.mu.Unlock()
	return nil
}

func (c *PreviewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

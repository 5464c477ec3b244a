package db

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
)

const (
	cacheNumCounters = 1e5
	cacheMaxCost     = 1 << 22 // 4MB of cached rows
	cacheBufferItems = 64
	cacheTTL         = 5 * time.Minute

	profileKeyPrefix = "profile:"
	newUserKeyPrefix = "new_user:"
)

// CachedStore layers a short-TTL read cache over the profile and
// new-user lookups, which run on every inbound message. Writes go
// straight through and invalidate the affected keys.
type CachedStore struct {
	*Store
	cache *ristretto.Cache
}

func NewCachedStore(s *Store) (*CachedStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &CachedStore{Store: s, cache: cache}, nil
}

func (c *CachedStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	key := profileKeyPrefix + userID
	if v, ok := c.cache.Get(key); ok {
		if p, ok := v.(*models.UserProfile); ok {
			return p, nil
		}
	}
	p, err := c.Store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		c.cache.SetWithTTL(key, p, int64(len(userID))+64, cacheTTL)
	}
	return p, nil
}

func (c *CachedStore) IsNewUser(ctx context.Context, userID string) (bool, error) {
	key := newUserKeyPrefix + userID
	if v, ok := c.cache.Get(key); ok {
		if isNew, ok := v.(bool); ok {
			return isNew, nil
		}
	}
	isNew, err := c.Store.IsNewUser(ctx, userID)
	if err != nil {
		return false, err
	}
	c.cache.SetWithTTL(key, isNew, int64(len(userID))+1, cacheTTL)
	return isNew, nil
}

func (c *CachedStore) SaveProfile(ctx context.Context, userID string, age *int, gender *string, platform string) error {
	if err := c.Store.SaveProfile(ctx, userID, age, gender, platform); err != nil {
		return err
	}
	c.invalidate(userID)
	return nil
}

func (c *CachedStore) SaveDiagnosis(ctx context.Context, userID, platform, symptoms, diagnosis string, confidence float64) (uint, error) {
	id, err := c.Store.SaveDiagnosis(ctx, userID, platform, symptoms, diagnosis, confidence)
	if err != nil {
		return 0, err
	}
	// History is no longer empty, so the new-user verdict changed.
	c.cache.Del(newUserKeyPrefix + userID)
	return id, nil
}

func (c *CachedStore) invalidate(userID string) {
	c.cache.Del(profileKeyPrefix + userID)
	c.cache.Del(newUserKeyPrefix + userID)
}

// Close releases the cache's internal goroutines.
func (c *CachedStore) Close() {
	c.cache.Close()
}

package form

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	stateTTL    = 30 * time.Minute
	stateMaxLRU = 4096
	stateKey    = "form:"
)

// StateStore keeps the last submitted form values per browser session.
type StateStore interface {
	Get(ctx context.Context, sessionID string) (map[string]string, error)
	Save(ctx context.Context, sessionID string, values map[string]string) error
}

type RedisStateStore struct {
	Client *redis.Client
}

// Get returns nil values for an unknown or expired session.
func (s *RedisStateStore) Get(ctx context.Context, sessionID string) (map[string]string, error) {
	val, err := s.Client.Get(ctx, stateKey+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(val), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *RedisStateStore) Save(ctx context.Context, sessionID string, values map[string]string) error {
	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, stateKey+sessionID, b, stateTTL).Err()
}

// MemoryStateStore is the in-process fallback when no redis is configured.
type MemoryStateStore struct {
	cache *expirable.LRU[string, map[string]string]
}

func NewMemoryStateStore(size int, ttl time.Duration) *MemoryStateStore {
	if size <= 0 {
		size = stateMaxLRU
	}
	if ttl <= 0 {
		ttl = stateTTL
	}
	return &MemoryStateStore{cache: expirable.NewLRU[string, map[string]string](size, nil, ttl)}
}

func (s *MemoryStateStore) Get(_ context.Context, sessionID string) (map[string]string, error) {
	v, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, nil
	}
	return maps.Clone(v), nil
}

func (s *MemoryStateStore) Save(_ context.Context, sessionID string, values map[string]string) error {
	s.cache.Add(sessionID, maps.Clone(values))
	return nil
}

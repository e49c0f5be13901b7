package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spamguardian/spam-guardian/internal/domain/entity"
	"github.com/spamguardian/spam-guardian/internal/domain/repository"
)

// DefaultKeyPrefix namespaces verdict keys
const DefaultKeyPrefix = "spamguard:verdict:"

type verdictCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewVerdictCache creates a Redis-backed verdict cache. Entries expire after
// ttl; zero keeps them forever.
func NewVerdictCache(client *redis.Client, prefix string, ttl time.Duration) repository.VerdictCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &verdictCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *verdictCache) key(k string) string {
	return c.prefix + k
}

func (c *verdictCache) Get(ctx context.Context, key string) (*entity.Verdict, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached verdict: %w", err)
	}

	var verdict entity.Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		return nil, fmt.Errorf("failed to decode cached verdict: %w", err)
	}
	return &verdict, nil
}

func (c *verdictCache) Set(ctx context.Context, key string, verdict *entity.Verdict) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache verdict: %w", err)
	}
	return nil
}

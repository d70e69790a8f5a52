package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RedisCache mirrors thread history in redis with a TTL so history survives
// a process restart and can be read by other consumers. It is a cache, never
// the authority.
type RedisCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisCache(client *redisv9.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, threadID string) ([]Message, bool, error) {
	raw, err := c.client.Get(ctx, c.key(threadID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

func (c *RedisCache) Set(ctx context.Context, threadID string, messages []Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(threadID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, threadID string) error {
	if err := c.client.Del(ctx, c.key(threadID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *RedisCache) key(threadID string) string {
	return "qa:history:" + threadID
}

// CachedStore writes through to the redis cache and falls back to it when
// the in-memory primary has no entry for a thread (fresh process).
type CachedStore struct {
	primary Store
	cache   *RedisCache
}

func NewCachedStore(primary Store, cache *RedisCache) *CachedStore {
	return &CachedStore{primary: primary, cache: cache}
}

func (s *CachedStore) History(ctx context.Context, threadID string) ([]Message, error) {
	msgs, err := s.primary.History(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		return msgs, nil
	}
	cached, hit, err := s.cache.Get(ctx, threadID)
	if err != nil {
		log.Printf("history cache read failed for %s: %v", threadID, err)
		return msgs, nil
	}
	if !hit {
		return msgs, nil
	}
	// rehydrate the primary so later reads stay in-process
	if err := s.primary.Replace(ctx, threadID, cached); err != nil {
		return nil, err
	}
	return cached, nil
}

func (s *CachedStore) Replace(ctx context.Context, threadID string, messages []Message) error {
	if err := s.primary.Replace(ctx, threadID, messages); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, threadID, messages); err != nil {
		log.Printf("history cache write failed for %s: %v", threadID, err)
	}
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, threadID string) error {
	if err := s.primary.Delete(ctx, threadID); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, threadID); err != nil {
		log.Printf("history cache delete failed for %s: %v", threadID, err)
	}
	return nil
}

package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/vidharvest/internal/domain"
)

// RedisClient is the subset of redis commands used by RedisLedger
type RedisClient interface {
	SAdd(ctx context.Context, key string, members ...interface{}) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	Close() error
}

type redisClient struct {
	client *redis.Client
}

// NewRedisClient connects to the redis server at addr
func NewRedisClient(addr string) RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &redisClient{client: rdb}
}

func (r *redisClient) SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	return r.client.SAdd(ctx, key, members...).Result()
}

func (r *redisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}

// RedisLedger implements domain.Ledger as a redis set
type RedisLedger struct {
	client  RedisClient
	key     string
	timeout time.Duration

	mu    sync.RWMutex
	items map[domain.WorkItem]struct{}
}

// NewRedisLedger loads the members of the set at key
func NewRedisLedger(client RedisClient, key string) (*RedisLedger, error) {
	l := &RedisLedger{
		client:  client,
		key:     key,
		timeout: 5 * time.Second,
		items:   make(map[domain.WorkItem]struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	members, err := client.SMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger set %s: %w", key, err)
	}
	for _, m := range members {
		l.items[domain.WorkItem(m)] = struct{}{}
	}
	return l, nil
}

// Contains reports whether the item is recorded
func (l *RedisLedger) Contains(item domain.WorkItem) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.items[item]
	return ok
}

// Append adds the item to the set
func (l *RedisLedger) Append(item domain.WorkItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.items[item]; ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if _, err := l.client.SAdd(ctx, l.key, string(item)); err != nil {
		return fmt.Errorf("failed to add %s to ledger set: %w", item, err)
	}

	l.items[item] = struct{}{}
	return nil
}

// Len returns the number of recorded items
func (l *RedisLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Close closes the redis connection
func (l *RedisLedger) Close() error {
	return l.client.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

const (
	DefaultTTL = 30 * time.Second
	keyPrefix  = "rec:user:"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Key identifies one request shape. Exclusion lists are hashed so the key
// stays short and order-independent.
type Key struct {
	UserID     string
	Context    domain.RecommendationContext
	Limit      int
	ExcludeIDs []string
}

func (k Key) String() string {
	return fmt.Sprintf("%s%s:ctx:%s:limit:%d:ex:%016x", keyPrefix, k.UserID, k.Context, k.Limit, excludeHash(k.ExcludeIDs))
}

func userPattern(userID string) string {
	return keyPrefix + userID + ":ctx:*"
}

func excludeHash(ids []string) uint64 {
	if len(ids) == 0 {
		return 0
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return xxhash.Sum64String(strings.Join(sorted, "\x00"))
}

// Get returns found=false on a miss.
func (c *Cache) Get(ctx context.Context, key Key) (*domain.RecommendationResult, bool, error) {
	k := key.String()
	val, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get recommendations from cache: %w", err)
	}

	var res domain.RecommendationResult
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal recommendations %s: %w", k, err)
	}
	return &res, true, nil
}

func (c *Cache) Set(ctx context.Context, key Key, res *domain.RecommendationResult) error {
	val, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	if err := c.client.Set(ctx, key.String(), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set recommendations in cache: %w", err)
	}
	return nil
}

// ClearUserCache drops every cached result for userID. Called when the user
// records a new interaction.
func (c *Cache) ClearUserCache(ctx context.Context, userID string) error {
	iter := c.client.Scan(ctx, 0, userPattern(userID), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// NewClient parses a redis:// URL and verifies the server answers.
func NewClient(ctx context.Context, url string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

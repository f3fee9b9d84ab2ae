// Copyright 2026 PolicyCopilot
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"policycopilot/platform/shared/logger"
)

// QueryCache stores retrieved passage sets in Redis keyed by a normalized
// query fingerprint. Only retrieval results are cached, never final
// answers, so the pipeline behaves identically with the cache on or off.
type QueryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewQueryCache connects to Redis and verifies it with a ping. Returns nil
// when caching is disabled or Redis is unreachable; a nil cache is valid
// and means retrieval always hits the store.
func NewQueryCache(cfg CacheConfig) *QueryCache {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.RedisDB,
	})

	log := logger.New("cache")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("", "redis unreachable, caching disabled", map[string]interface{}{
			"addr":  cfg.RedisAddr,
			"error": err.Error(),
		})
		return nil
	}

	return newQueryCacheWithClient(client, cfg)
}

func newQueryCacheWithClient(client *redis.Client, cfg CacheConfig) *QueryCache {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		client: client,
		ttl:    ttl,
		log:    logger.New("cache"),
	}
}

// Fingerprint normalizes query text (lowercase, collapsed whitespace) and
// hashes it, so trivially reworded duplicates share a cache entry.
func Fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached passages for the query text, if present. Any
// Redis or decode error reads as a miss.
func (c *QueryCache) Get(ctx context.Context, queryText string) ([]RetrievedPassage, bool) {
	data, err := c.client.Get(ctx, cacheKey(queryText)).Bytes()
	if err != nil {
		return nil, false
	}

	var passages []RetrievedPassage
	if err := json.Unmarshal(data, &passages); err != nil {
		return nil, false
	}
	return passages, true
}

// Set stores the passages under the query fingerprint with the configured
// TTL. Write failures are logged and ignored.
func (c *QueryCache) Set(ctx context.Context, queryText string, passages []RetrievedPassage) {
	data, err := json.Marshal(passages)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(queryText), data, c.ttl).Err(); err != nil {
		c.log.Warn("", "cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// InvalidateAll drops every cached retrieval, used when the policy corpus
// is re-ingested.
func (c *QueryCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "retrieval:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func cacheKey(queryText string) string {
	return "retrieval:" + Fingerprint(queryText)
}

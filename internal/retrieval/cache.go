package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedRetriever memoizes retrieval results in Redis. Redis being down is
// never an error: lookups fall through to the inner retriever and store
// failures are only logged.
type CachedRetriever struct {
	inner Retriever
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedRetriever(inner Retriever, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedRetriever {
	return &CachedRetriever{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(query string, topK int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("retrieval:%s:%d", hex.EncodeToString(sum[:16]), topK)
}

func (c *CachedRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	key := cacheKey(query, topK)

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var snippets []Snippet
		if jsonErr := json.Unmarshal([]byte(raw), &snippets); jsonErr == nil {
			return snippets, nil
		}
	} else if err != redis.Nil {
		c.log.Debug().Err(err).Msg("retrieval cache read failed")
	}

	snippets, err := c.inner.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if raw, jsonErr := json.Marshal(snippets); jsonErr == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Debug().Err(err).Msg("retrieval cache write failed")
		}
	}
	return snippets, nil
}

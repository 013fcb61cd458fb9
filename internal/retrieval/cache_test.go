package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestCachedRetriever_FallsThroughWhenRedisDown(t *testing.T) {
	inner := NewKeywordRetrieverFromDocs(map[string]string{
		"faq.txt": "Refunds are processed within five business days.",
	})

	// Nothing listens here; every command fails fast.
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewCachedRetriever(inner, rdb, time.Minute, zerolog.Nop())

	snippets, err := c.Retrieve(context.Background(), "refunds processed days", 3)
	if err != nil {
		t.Fatalf("expected fallthrough to inner retriever, got %v", err)
	}
	if len(snippets) != 1 || snippets[0].Source != "faq.txt" {
		t.Fatalf("unexpected snippets: %+v", snippets)
	}
}

func TestCachedRetriever_PropagatesInnerError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewCachedRetriever(&failing{}, rdb, time.Minute, zerolog.Nop())

	if _, err := c.Retrieve(context.Background(), "anything at all", 3); err == nil {
		t.Fatalf("expected inner error to propagate")
	}
}

type failing struct{}

func (f *failing) Retrieve(context.Context, string, int) ([]Snippet, error) {
	return nil, context.DeadlineExceeded
}

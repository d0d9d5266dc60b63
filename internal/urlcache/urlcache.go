package urlcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Signer issues a signed, time-limited access URL for a stored photo. The
// storage backend is an external collaborator; only the interface lives
// here.
type Signer interface {
	SignURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// Cache memoizes signed URLs in redis with a TTL shorter than the
// signature lifetime, so a cached URL is always still valid when served.
type Cache struct {
	rdb    *redis.Client
	signer Signer
	ttl    time.Duration
}

func New(rdb *redis.Client, signer Signer, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{rdb: rdb, signer: signer, ttl: ttl}
}

// SignedURL returns a cached signed URL for the object key, signing and
// caching on miss. Redis being down degrades to signing every time rather
// than failing the request.
func (c *Cache) SignedURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", errors.New("empty object key")
	}

	key := "signed_url:" + objectKey
	if c.rdb != nil {
		if cached, err := c.rdb.Get(ctx, key).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}

	// Sign for twice the cache TTL so cached entries never outlive the
	// signature.
	signed, err := c.signer.SignURL(ctx, objectKey, 2*c.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", objectKey, err)
	}

	if c.rdb != nil {
		// Cache write failures are not fatal; next request re-signs.
		c.rdb.Set(ctx, key, signed, c.ttl)
	}
	return signed, nil
}

// Invalidate drops a cached entry, e.g. after the underlying photo is
// replaced.
func (c *Cache) Invalidate(ctx context.Context, objectKey string) {
	if c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, "signed_url:"+objectKey)
}

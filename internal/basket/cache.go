package basket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

const cacheKeyPrefix = "basket:"

// CachedStore is a read-through Redis cache in front of another Store.
// Concurrent misses for the same basket share one load. Every Save, failed
// or not, drops the cached copy so a conflict retry reads the latest version.
type CachedStore struct {
	next   Store
	rdb    redis.UniversalClient
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func NewCachedStore(next Store, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(id string) string {
	return cacheKeyPrefix + id
}

func (c *CachedStore) Get(ctx context.Context, id string) (*domain.Basket, error) {
	v, err, _ := c.group.Do(id, func() (any, error) {
		return c.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	b, _ := v.(*domain.Basket)
	if b == nil {
		return nil, nil
	}
	// Callers mutate the result; shared singleflight values must not leak.
	cp := *b
	cp.Lines = append([]domain.BasketLine(nil), b.Lines...)
	return &cp, nil
}

func (c *CachedStore) load(ctx context.Context, id string) (*domain.Basket, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var b domain.Basket
		if err := json.Unmarshal(raw, &b); err == nil {
			return &b, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached basket", "basket_id", id)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "basket cache read failed", "basket_id", id, "error", err)
	}

	b, err := c.next.Get(ctx, id)
	if err != nil || b == nil {
		return b, err
	}

	raw, err = json.Marshal(b)
	if err != nil {
		return nil, errors.Wrap(err, "encode basket")
	}
	if err := c.rdb.Set(ctx, cacheKey(id), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "basket cache write failed", "basket_id", id, "error", err)
	}
	return b, nil
}

func (c *CachedStore) Save(ctx context.Context, b *domain.Basket) error {
	err := c.next.Save(ctx, b)
	if delErr := c.rdb.Del(ctx, cacheKey(b.ID)).Err(); delErr != nil {
		c.logger.WarnContext(ctx, "basket cache invalidation failed", "basket_id", b.ID, "error", delErr)
	}
	return err
}

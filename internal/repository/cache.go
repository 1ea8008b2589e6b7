package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

const cacheGenerationKey = "ticket:cache:gen"

// cachedTicketRepository decorates a TicketRepository with a redis
// read-through cache for single-ticket lookups. Keys carry a generation
// number; bulk recategorization bumps it, invalidating every entry at once
// without scanning the keyspace. Cache trouble never fails a request, it
// only falls through to the store.
type cachedTicketRepository struct {
	inner  TicketRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedTicketRepository wraps inner with the redis cache.
func NewCachedTicketRepository(inner TicketRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) TicketRepository {
	return &cachedTicketRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *cachedTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return c.inner.Create(ctx, ticket)
}

func (c *cachedTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	key := c.key(ctx, id)
	if key != "" {
		if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var ticket domain.Ticket
			if err := json.Unmarshal(cached, &ticket); err == nil {
				return &ticket, nil
			}
		}
	}

	ticket, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if encoded, err := json.Marshal(ticket); err == nil {
			if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
				c.logger.Debug("ticket cache set failed", zap.Int64("id", id), zap.Error(err))
			}
		}
	}
	return ticket, nil
}

func (c *cachedTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	// List results are not cached: they change on every write and the
	// ordering guarantee must always reflect the store.
	return c.inner.List(ctx, filter)
}

func (c *cachedTicketRepository) UpdateFields(ctx context.Context, id int64, fields TicketUpdate) error {
	if err := c.inner.UpdateFields(ctx, id, fields); err != nil {
		return err
	}
	if key := c.key(ctx, id); key != "" {
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.logger.Debug("ticket cache evict failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	return nil
}

func (c *cachedTicketRepository) BulkRecategorize(ctx context.Context, filter RecategorizeFilter, newCategory string) (int64, error) {
	count, err := c.inner.BulkRecategorize(ctx, filter, newCategory)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		if err := c.client.Incr(ctx, cacheGenerationKey).Err(); err != nil {
			c.logger.Warn("ticket cache generation bump failed", zap.Error(err))
		}
	}
	return count, nil
}

// key builds the generation-scoped cache key, or "" when redis is
// unreachable so callers skip the cache.
func (c *cachedTicketRepository) key(ctx context.Context, id int64) string {
	gen, err := c.client.Get(ctx, cacheGenerationKey).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("ticket:g%d:%d", gen, id)
}

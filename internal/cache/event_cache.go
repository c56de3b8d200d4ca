package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// EventCache stores serialized events for read-through lookups. Failures are
// logged and treated as misses.
type EventCache struct {
	log    *slog.Logger
	client *redis.Client
	ttl    time.Duration
}

// NewEventCache constructs an EventCache.
func NewEventCache(log *slog.Logger, client *redis.Client, ttl time.Duration) *EventCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &EventCache{log: log, client: client, ttl: ttl}
}

// GetEvent returns a cached event.
func (c *EventCache) GetEvent(ctx context.Context, id string) (*model.Event, bool) {
	raw, err := c.client.Get(ctx, eventKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("event cache read failed", slog.String("event_id", id), sl.Err(err))
		}
		return nil, false
	}
	var e model.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn("event cache entry corrupt", slog.String("event_id", id), sl.Err(err))
		return nil, false
	}
	return &e, true
}

// SetEvent caches e.
func (c *EventCache) SetEvent(ctx context.Context, e *model.Event) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, eventKey(e.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("event cache write failed", slog.String("event_id", e.ID), sl.Err(err))
	}
}

// InvalidateEvent drops the cached copy of an event.
func (c *EventCache) InvalidateEvent(ctx context.Context, id string) {
	if err := c.client.Del(ctx, eventKey(id)).Err(); err != nil {
		c.log.Warn("event cache invalidate failed", slog.String("event_id", id), sl.Err(err))
	}
}

func eventKey(id string) string {
	return "nsc:event:" + id
}

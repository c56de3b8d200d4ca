package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers message ids so redelivered webhooks are processed once.
type Dedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedup constructs a Dedup that forgets ids after ttl.
func NewDedup(client *redis.Client, ttl time.Duration) *Dedup {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Dedup{client: client, ttl: ttl}
}

// MarkNew records id and reports whether it had not been seen before.
func (d *Dedup) MarkNew(ctx context.Context, id string) (bool, error) {
	return d.client.SetNX(ctx, dedupKey(id), time.Now().UTC().Unix(), d.ttl).Result()
}

// Forget drops id so a later redelivery is processed again.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.client.Del(ctx, dedupKey(id)).Err()
}

func dedupKey(id string) string {
	return "nsc:webhook:seen:" + id
}

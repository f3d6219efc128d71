package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}

// Deduper implements once-only processing keyed by event id. SeenOnce marks
// the key and reports whether it had been marked before.
type Deduper struct {
	R   *redis.Client
	TTL time.Duration
}

func (d *Deduper) SeenOnce(ctx context.Context, key string) (bool, error) {
	set, err := d.R.SetNX(ctx, key, "1", d.TTL).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

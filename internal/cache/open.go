package cache

import (
	"context"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// Options selects the cache backend.
type Options struct {
	Type       string // memory or redis
	Redis      RedisConfig
	Prefix     string
	MaxEntries int
}

// Open returns the configured query cache and locker and a func that
// releases them. A configured but unreachable Redis falls back to the
// in-process implementations.
func Open(ctx context.Context, opts Options) (Cache, Locker, func()) {
	if opts.Type == "redis" {
		client, err := NewRedisClient(ctx, opts.Redis)
		if err == nil {
			logrus.WithField("addr", opts.Redis.Addr).Info("Redis cache initialized")
			return NewRedisCache(client, opts.Prefix+":cache"),
				NewRedisLocker(client, opts.Prefix+":lock"),
				func() { client.Close() }
		}
		logrus.WithError(err).Warn("Redis connection failed, using in-memory cache")
	}

	memory := NewMemoryCache(opts.MaxEntries, time.Minute)
	return memory, NewMemoryLocker(), func() { memory.Close() }
}

// LockAll takes one lock per key in sorted order, so callers holding
// overlapping key sets never interleave or deadlock. The returned func
// releases them in reverse order.
func LockAll(ctx context.Context, l Locker, keys []string, ttl time.Duration) (func(), error) {
	sorted := append([]string(nil), keys...)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range sorted {
		release, err := l.Lock(ctx, key, ttl)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

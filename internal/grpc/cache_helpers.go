package grpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	maxRefreshDelay     = time.Second
)

// readThrough serves score reads from the cache, collapses concurrent
// misses per key and refreshes hit keys off the request path.
type readThrough struct {
	cache  Cacher
	group  singleflight.Group
	ttl    time.Duration
	rec    CacheRecorder
	logger *zap.Logger
}

// jitteredTTL spreads expiries by up to 15s either way so keys written by
// one batch run do not all lapse together. The result is never below half
// the configured TTL.
func (rt *readThrough) jitteredTTL() time.Duration {
	if rt.ttl <= 0 {
		return rt.ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	return max(rt.ttl+jitter, rt.ttl/2)
}

func (rt *readThrough) store(key string, value any, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttl := rt.jitteredTTL()
	if err := rt.cache.Set(ctx, key, value, ttl); err != nil {
		rt.logger.Warn("cache write failed", zap.String("key", key), zap.String("reason", reason), zap.Error(err))
		return
	}
	rt.logger.Debug("cache written", zap.String("key", key), zap.String("reason", reason), zap.Duration("ttl", ttl))
}

func (rt *readThrough) hit() {
	if rt.rec != nil {
		rt.rec.CacheHit()
	}
}

func (rt *readThrough) miss() {
	if rt.rec != nil {
		rt.rec.CacheMiss()
	}
}

// refresh re-reads key in the background after a hit. At most one refresh
// per key is in flight.
func refresh[T any](rt *readThrough, key string, fn FetchFunc[T]) {
	go func() {
		time.Sleep(time.Duration(rand.Int63n(int64(maxRefreshDelay))))

		_, _, _ = rt.group.Do("refresh:"+key, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				rt.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			rt.store(key, value, "refresh")
			return nil, nil
		})
	}()
}

// cached returns the value under key, calling fn on a miss. Cache read
// errors are treated as misses and the write after a miss never blocks
// the caller.
func cached[T any](ctx context.Context, rt *readThrough, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	var hit T
	err := rt.cache.Get(ctx, key, &hit)
	switch {
	case err == nil:
		rt.hit()
		refresh(rt, key, fn)
		return hit, nil
	case errors.Is(err, redis.Nil):
		rt.logger.Debug("cache miss", zap.String("key", key))
	default:
		rt.logger.Warn("cache read failed, loading from store", zap.String("key", key), zap.Error(err))
	}
	rt.miss()

	v, err, _ := rt.group.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		go rt.store(key, value, "miss")
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cached value for %q has type %T", key, v)
	}
	return value, nil
}

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/redis/go-redis/v9"

	"home-services-server/models"
)

func TestNoopAlwaysMisses(t *testing.T) {
	c := qt.New(t)
	var cache ServiceCache = Noop{}
	cache.SetService(context.Background(), &models.Service{ID: 1})
	_, ok := cache.GetService(context.Background(), 1)
	c.Assert(ok, qt.IsFalse)
}

func TestRedisFailuresAreMisses(t *testing.T) {
	c := qt.New(t)

	// Nothing listens on this port, so every command fails fast.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := NewRedisCacheFromClient(client, time.Minute)
	defer cache.Close()

	ctx := context.Background()
	cache.SetService(ctx, &models.Service{ID: 3, Name: "Laundry"})
	_, ok := cache.GetService(ctx, 3)
	c.Assert(ok, qt.IsFalse)
	cache.InvalidateService(ctx, 3)
}

func TestNewRedisCacheReportsUnreachableServer(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, "127.0.0.1:1", time.Minute)
	c.Assert(err, qt.ErrorMatches, `connecting to redis at 127.0.0.1:1: .*`)
}

func TestServiceKey(t *testing.T) {
	qt.Assert(t, serviceKey(42), qt.Equals, "service:42")
}

func liveRedis(c *qt.C) *RedisCache {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		c.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cache, err := NewRedisCache(ctx, addr, time.Minute)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { cache.Close() })
	return cache
}

func TestRedisRoundTrip(t *testing.T) {
	c := qt.New(t)
	cache := liveRedis(c)
	ctx := context.Background()
	cache.client.Del(ctx, serviceKey(901))

	cache.SetService(ctx, &models.Service{ID: 901, Name: "Deep cleaning"})
	got, ok := cache.GetService(ctx, 901)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got.Name, qt.Equals, "Deep cleaning")
}

func TestRedisStaleWriteAfterInvalidationIsDropped(t *testing.T) {
	c := qt.New(t)
	cache := liveRedis(c)
	ctx := context.Background()
	cache.client.Del(ctx, serviceKey(902))

	cache.SetService(ctx, &models.Service{ID: 902, Name: "old"})
	cache.InvalidateService(ctx, 902)
	// a reader that loaded the row before the update now writes it back
	cache.SetService(ctx, &models.Service{ID: 902, Name: "old"})

	_, ok := cache.GetService(ctx, 902)
	c.Assert(ok, qt.IsFalse)
	ttl, err := cache.client.TTL(ctx, serviceKey(902)).Result()
	c.Assert(err, qt.IsNil)
	c.Assert(ttl <= invalidationHold, qt.IsTrue)
}

// Package cache holds a read-through cache for service details.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"

	"home-services-server/models"
)

// ServiceCache caches service detail responses. Failures are logged and
// treated as misses; the store stays the source of truth.
type ServiceCache interface {
	GetService(ctx context.Context, id uint) (*models.Service, bool)
	SetService(ctx context.Context, service *models.Service)
	InvalidateService(ctx context.Context, id uint)
}

// invalidationHold is how long an invalidated key refuses new entries. A
// read that loaded the row before the write finished cannot cache it back.
const invalidationHold = 10 * time.Second

const tombstone = "invalidated"

// RedisCache stores services as JSON under service:<id>
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis and pings it
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, errors.Annotatef(err, "connecting to redis at %s", addr)
	}
	log.Println("✅ Connected to Redis")
	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func serviceKey(id uint) string {
	return fmt.Sprintf("service:%d", id)
}

func (r *RedisCache) GetService(ctx context.Context, id uint) (*models.Service, bool) {
	data, err := r.client.Get(ctx, serviceKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ Redis get %s failed: %v", serviceKey(id), err)
		}
		return nil, false
	}
	if string(data) == tombstone {
		return nil, false
	}
	var service models.Service
	if err := json.Unmarshal(data, &service); err != nil {
		log.Printf("⚠️ Dropping corrupt cache entry %s: %v", serviceKey(id), err)
		r.InvalidateService(ctx, id)
		return nil, false
	}
	return &service, true
}

func (r *RedisCache) SetService(ctx context.Context, service *models.Service) {
	data, err := json.Marshal(service)
	if err != nil {
		log.Printf("⚠️ Could not encode service %d for cache: %v", service.ID, err)
		return
	}
	// SETNX leaves a tombstone in place
	if err := r.client.SetNX(ctx, serviceKey(service.ID), data, r.ttl).Err(); err != nil {
		log.Printf("⚠️ Redis set %s failed: %v", serviceKey(service.ID), err)
	}
}

func (r *RedisCache) InvalidateService(ctx context.Context, id uint) {
	if err := r.client.Set(ctx, serviceKey(id), tombstone, invalidationHold).Err(); err != nil {
		log.Printf("⚠️ Redis invalidate %s failed: %v", serviceKey(id), err)
	}
}

// Close releases the redis connection pool
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Noop never stores anything
type Noop struct{}

func (Noop) GetService(context.Context, uint) (*models.Service, bool) { return nil, false }
func (Noop) SetService(context.Context, *models.Service)               {}
func (Noop) InvalidateService(context.Context, uint)                   {}

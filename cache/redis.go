package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend 基于 Redis 的外部键值后端。
// 与 LRUBackend 遵守同一套契约：TTL 由 Redis 过期机制承担，
// 容量淘汰交给 Redis 自身的 maxmemory 策略。
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend 包装一个已建连的 Redis 客户端。
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get 读取缓存值；redis.Nil 为未命中，其他错误上抛由 Layer 做 fail-open。
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set 写入缓存值，ttl 为 0 时不设过期。
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

// Delete 删除一个条目。
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

// Clear 按键前缀扫描删除全部缓存条目。
func (b *RedisBackend) Clear(ctx context.Context) error {
	iter := b.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := b.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

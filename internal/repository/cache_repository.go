package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist remembers access tokens revoked before their expiry.
type TokenBlacklist interface {
	Add(ctx context.Context, tokenID string, ttl time.Duration) error
	Contains(ctx context.Context, tokenID string) (bool, error)
}

// Locker hands out short-lived named locks.
type Locker interface {
	// TryLock returns false when the lock is already held.
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name string) error
}

type redisTokenBlacklist struct {
	redisClient *redis.Client
}

// NewTokenBlacklist creates a Redis backed TokenBlacklist.
func NewTokenBlacklist(redisClient *redis.Client) TokenBlacklist {
	return &redisTokenBlacklist{redisClient: redisClient}
}

func blacklistKey(tokenID string) string {
	return fmt.Sprintf("auth:blacklist:%s", tokenID)
}

func (b *redisTokenBlacklist) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.redisClient.Set(ctx, blacklistKey(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *redisTokenBlacklist) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.redisClient.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}

type redisLocker struct {
	redisClient *redis.Client
	prefix      string
}

// NewLocker creates a Redis SETNX based Locker; prefix namespaces its keys.
func NewLocker(redisClient *redis.Client, prefix string) Locker {
	return &redisLocker{redisClient: redisClient, prefix: prefix}
}

func (l *redisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.redisClient.SetNX(ctx, l.prefix+name, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return ok, nil
}

func (l *redisLocker) Unlock(ctx context.Context, name string) error {
	return l.redisClient.Del(ctx, l.prefix+name).Err()
}

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Blacklist хранит токены, отозванные до истечения срока
type Blacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

const blacklistPrefix = "blacklist:"

type RedisBlacklist struct {
	rdb *redis.Client
}

func NewRedisBlacklist(rdb *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistPrefix+token, 1, ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryBlacklist хранит отзывы в памяти процесса: без Redis и в тестах
type MemoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{revoked: make(map[string]time.Time)}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = time.Now().Add(ttl)
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.revoked[token]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(b.revoked, token)
		return false, nil
	}
	return true, nil
}

package assets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickwarner/consentstudio/internal/models"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "banner:asset:"

// RedisRegistry keeps pending binaries in Redis so every API replica sees
// the same attachments. Each token is a hash with name, size, type and data.
type RedisRegistry struct {
	client redis.UniversalClient
	// TTL expires abandoned attachments. Zero keeps them until removed.
	ttl time.Duration
}

// NewRedisRegistry returns a Registry backed by client.
func NewRedisRegistry(client redis.UniversalClient, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

func redisKey(token string) string {
	return redisKeyPrefix + TokenID(token)
}

// Attach stores h under token, replacing any previous binary.
func (r *RedisRegistry) Attach(ctx context.Context, token string, h models.BinaryHandle) error {
	if !models.IsReferenceToken(token) {
		return ErrInvalidToken
	}
	key := redisKey(token)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"name", h.Name,
			"size", strconv.FormatInt(h.Size, 10),
			"type", h.MimeType,
			"data", h.Data,
		)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis attach %s: %w", token, err)
	}
	return nil
}

// Resolve returns the binary stored under token.
func (r *RedisRegistry) Resolve(ctx context.Context, token string) (models.BinaryHandle, bool, error) {
	if !models.IsReferenceToken(token) {
		return models.BinaryHandle{}, false, nil
	}
	vals, err := r.client.HGetAll(ctx, redisKey(token)).Result()
	if err != nil {
		return models.BinaryHandle{}, false, fmt.Errorf("redis resolve %s: %w", token, err)
	}
	if len(vals) == 0 {
		return models.BinaryHandle{}, false, nil
	}
	size, _ := strconv.ParseInt(vals["size"], 10, 64)
	return models.BinaryHandle{
		Name:     vals["name"],
		Size:     size,
		MimeType: vals["type"],
		Data:     []byte(vals["data"]),
	}, true, nil
}

// Remove deletes the given tokens.
func (r *RedisRegistry) Remove(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		keys = append(keys, redisKey(t))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis remove assets: %w", err)
	}
	return nil
}

// Len counts pending binaries with SCAN.
func (r *RedisRegistry) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan assets: %w", err)
		}
		n += len(keys)
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}

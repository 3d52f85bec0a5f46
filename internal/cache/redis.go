package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chunkpipe/internal/store"
)

const chunkKeyPrefix = "chunk:"

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client.
func NewRedisCache(addr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func chunkKey(docID string, index int) string {
	return fmt.Sprintf("%s%s:%d", chunkKeyPrefix, docID, index)
}

func (c *RedisCache) GetChunk(ctx context.Context, docID string, index int) (*store.Chunk, error) {
	data, err := c.client.Get(ctx, chunkKey(docID, index)).Bytes()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, err
	}

	var chunk store.Chunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (c *RedisCache) SetChunk(ctx context.Context, chunk store.Chunk, ttl time.Duration) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, chunkKey(chunk.DocumentID, chunk.Index), data, ttl).Err()
}

// InvalidateDocument removes every cached chunk of one document. Keys are
// scanned by the document prefix so other documents stay cached.
func (c *RedisCache) InvalidateDocument(ctx context.Context, docID string) error {
	iter := c.client.Scan(ctx, 0, chunkKeyPrefix+docID+":*", 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if count > 0 {
		_, err := pipe.Exec(ctx)
		return err
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

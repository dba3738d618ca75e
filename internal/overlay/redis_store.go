package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisOverlayKeyPrefix = "overlays:item:"
	redisStreamKeyPrefix  = "overlays:stream:"

	// Optimistic transactions are retried this many times when a concurrent
	// writer touches the watched key.
	redisTxAttempts = 3
)

// RedisStore keeps each overlay as a JSON string and an insertion-ordered
// list of overlay ids per stream.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func redisOverlayKey(id string) string { return redisOverlayKeyPrefix + id }

func redisStreamKey(streamID string) string { return redisStreamKeyPrefix + streamID }

// Insert implements Store.Insert.
func (s *RedisStore) Insert(ctx context.Context, o Overlay) (string, error) {
	o.ID = uuid.NewString()
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("failed to marshal overlay: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisOverlayKey(o.ID), data, 0)
		pipe.RPush(ctx, redisStreamKey(o.StreamID), o.ID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert overlay: %w", err)
	}
	return o.ID, nil
}

// ListByStream implements Store.ListByStream.
func (s *RedisStore) ListByStream(ctx context.Context, streamID string) ([]Overlay, error) {
	ids, err := s.client.LRange(ctx, redisStreamKey(streamID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list overlay ids: %w", err)
	}
	out := make([]Overlay, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisOverlayKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get overlays: %w", err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Deleted between LRANGE and MGET.
			continue
		}
		var o Overlay
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overlay: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Update implements Store.Update.
func (s *RedisStore) Update(ctx context.Context, id string, p Patch) error {
	key := redisOverlayKey(id)
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		o, err := getRedisOverlay(ctx, tx, key)
		if err != nil {
			return err
		}
		p.Apply(&o)
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("failed to marshal overlay: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	})
}

// Delete implements Store.Delete.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key := redisOverlayKey(id)
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		o, err := getRedisOverlay(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.LRem(ctx, redisStreamKey(o.StreamID), 0, id)
			return nil
		})
		return err
	})
}

// Close implements Store.Close.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	var err error
	for attempt := 0; attempt < redisTxAttempts; attempt++ {
		err = s.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("redis transaction failed: %w", err)
}

func getRedisOverlay(ctx context.Context, tx *redis.Tx, key string) (Overlay, error) {
	var o Overlay
	val, err := tx.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return o, ErrNotFound
		}
		return o, fmt.Errorf("failed to get overlay: %w", err)
	}
	if err := json.Unmarshal([]byte(val), &o); err != nil {
		return o, fmt.Errorf("failed to unmarshal overlay: %w", err)
	}
	return o, nil
}

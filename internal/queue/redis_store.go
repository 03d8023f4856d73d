package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "grading:jobs:pending"

// RedisStore is a Redis-list-backed Store. Jobs survive process restarts;
// the list is the single pending buffer shared by the worker pool.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore builds a store on the given client. An empty key selects the
// default list name.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Push appends the job to the pending list.
func (s *RedisStore) Push(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := s.client.LPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}

	return nil
}

// Pop blocks on the pending list until a job arrives or ctx ends. The short
// BRPOP timeout keeps cancellation responsive.
func (s *RedisStore) Pop(ctx context.Context) (Job, error) {
	for {
		result, err := s.client.BRPop(ctx, time.Second, s.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			return Job{}, fmt.Errorf("pop job: %w", err)
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return Job{}, fmt.Errorf("unmarshal job: %w", err)
		}

		return job, nil
	}
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}

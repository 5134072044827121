// Package queue moves render jobs between the API and cmd/worker through a
// Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scenecast/internal/jobs"
)

// Envelope is one queued job.
type Envelope struct {
	TaskID  string       `json:"taskId"`
	Request jobs.Request `json:"request"`
}

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

func (q *RedisQueue) Name() string { return q.queueName }

// Push appends an envelope; consumers pop from the other end (FIFO).
func (q *RedisQueue) Push(ctx context.Context, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return q.rdb.LPush(ctx, q.queueName, b).Err()
}

// Pop blocks up to timeout for the next envelope (BRPOP). It returns
// nil, nil when the timeout passes with an empty queue.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Envelope, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}

	var env Envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Len reports the number of waiting envelopes.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.queueName).Result()
}

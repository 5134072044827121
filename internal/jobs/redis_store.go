package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "scenecast:job:"
	maxTxRetries   = 10
)

// RedisStore keeps records as JSON strings so several API and worker
// processes share one view of every job.
type RedisStore struct {
	rdb *redis.Client
	// ttl is applied on create and refreshed on each transition; 0 keeps
	// records forever.
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, redisKey(job.ID), payload, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	return getJSON(ctx, s.rdb, redisKey(id))
}

func (s *RedisStore) Complete(ctx context.Context, id string, res Result) error {
	return s.update(ctx, id, func(j *Job) error { return j.complete(res, s.now().UTC()) })
}

func (s *RedisStore) Fail(ctx context.Context, id string, msg string) error {
	return s.update(ctx, id, func(j *Job) error { return j.fail(msg, s.now().UTC()) })
}

// Ping checks the connection; used by health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// update applies mutate under WATCH so two writers cannot both move the
// same job out of processing.
func (s *RedisStore) update(ctx context.Context, id string, mutate func(*Job) error) error {
	key := redisKey(id)
	txf := func(tx *redis.Tx) error {
		job, err := getJSON(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := mutate(job); err != nil {
			return err
		}
		payload, err := json.Marshal(job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update job %s: too much contention", id)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON(ctx context.Context, c getter, key string) (*Job, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", key, err)
	}
	return &job, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

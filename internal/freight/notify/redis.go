package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKey  = "freightdesk:notify"
	deadLetterKey    = ":dead"
	processingSuffix = ":processing"
)

// RedisQueue keeps jobs as JSON in a Redis list so they survive restarts and
// can be shared by several instances. Producers LPUSH and workers BLMOVE the
// oldest job into a processing list, giving FIFO order. A job leaves the
// processing list only when it is acked, so a worker that dies mid-delivery
// leaves it behind for Recover.
type RedisQueue struct {
	client *redis.Client
	key    string

	// Block bounds each BLMOVE so workers notice cancellation.
	Block time.Duration
}

// NewRedisQueue connects to redisURL and verifies the connection.
func NewRedisQueue(ctx context.Context, redisURL, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisQueueFromClient(client, key), nil
}

func NewRedisQueueFromClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisQueue{client: client, key: key, Block: 2 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

func (q *RedisQueue) processingKey() string { return q.key + processingSuffix }

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		raw, err := q.client.BLMove(ctx, q.key, q.processingKey(), "RIGHT", "LEFT", q.Block).Result()
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
			return Job{}, fmt.Errorf("move job: %w", err)
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			// Undecodable payloads would be recovered forever; park them raw.
			_ = q.client.LPush(ctx, q.key+deadLetterKey, raw).Err()
			_ = q.client.LRem(ctx, q.processingKey(), 1, raw).Err()
			return Job{}, fmt.Errorf("decode job: %w", err)
		}
		job.receipt = raw
		return job, nil
	}
}

// Ack drops job from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	if job.receipt == "" {
		return nil
	}
	if err := q.client.LRem(ctx, q.processingKey(), 1, job.receipt).Err(); err != nil {
		return fmt.Errorf("ack job: %w", err)
	}
	return nil
}

// Recover moves unacked jobs back onto the queue, oldest first, and reports
// how many were moved. Call it before workers start. With several instances
// sharing a key, jobs another instance still has in flight are requeued too
// and may be delivered twice.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processingKey(), q.key, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover jobs: %w", err)
		}
		n++
	}
}

// InFlight reports how many jobs are dequeued but not yet acked.
func (q *RedisQueue) InFlight(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.processingKey()).Result()
	return int(n), err
}

func (q *RedisQueue) DeadLetter(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.client.LPush(ctx, q.key+deadLetterKey, data).Err()
}

// DeadLetters returns up to limit parked jobs, newest first.
func (q *RedisQueue) DeadLetters(ctx context.Context, limit int64) ([]Job, error) {
	raw, err := q.client.LRange(ctx, q.key+deadLetterKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(raw))
	for _, r := range raw {
		var job Job
		if err := json.Unmarshal([]byte(r), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	return int(n), err
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

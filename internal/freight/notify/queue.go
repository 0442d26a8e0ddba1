package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
)

var (
	ErrQueueFull   = errors.New("notify: queue full")
	ErrQueueClosed = errors.New("notify: queue closed")
)

// Job is one message waiting for delivery.
type Job struct {
	ID         string                  `json:"id"`
	Kind       domain.NotificationKind `json:"kind"`
	To         string                  `json:"to"`
	Params     map[string]any          `json:"params,omitempty"`
	EnqueuedAt time.Time               `json:"enqueuedAt"`

	// LastError is only set on dead-lettered jobs.
	LastError string `json:"lastError,omitempty"`

	// receipt is the payload a RedisQueue handed out; Ack removes it.
	receipt string
}

// Queue hands jobs from request goroutines to dispatcher workers.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (Job, error)

	// DeadLetter parks a job whose delivery attempts were exhausted.
	DeadLetter(ctx context.Context, job Job) error

	// Ack marks a dequeued job as finished, sent or parked. A job that is
	// never acked is handed out again after a restart.
	Ack(ctx context.Context, job Job) error

	Len(ctx context.Context) (int, error)
	Close() error
}

// MemoryQueue is a bounded in-process queue. Jobs are lost on restart.
type MemoryQueue struct {
	jobs chan Job

	mu     sync.Mutex
	dead   []Job
	closed bool
}

// NewMemoryQueue defaults a non-positive size to 1024.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{jobs: make(chan Job, size)}
}

// Enqueue never blocks; a full buffer is reported as ErrQueueFull.
func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job, ok := <-q.jobs:
		if !ok {
			return Job{}, ErrQueueClosed
		}
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (q *MemoryQueue) DeadLetter(_ context.Context, job Job) error {
	q.mu.Lock()
	q.dead = append(q.dead, job)
	q.mu.Unlock()
	return nil
}

// Ack is a no-op: a MemoryQueue forgets a job once it is dequeued.
func (q *MemoryQueue) Ack(context.Context, Job) error { return nil }

// DeadLetters returns a copy of the parked jobs.
func (q *MemoryQueue) DeadLetters() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.dead...)
}

func (q *MemoryQueue) Len(context.Context) (int, error) {
	return len(q.jobs), nil
}

// Close stops accepting jobs. Jobs already buffered can still be dequeued.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

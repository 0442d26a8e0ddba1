package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
)

func newTestRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewRedisQueueFromClient(client, "test:notify")
	q.Block = 50 * time.Millisecond
	t.Cleanup(func() { _ = q.Close() })
	return q, mr
}

func TestRedisQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestRedisQueue(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, Job{ID: id, Kind: domain.NotifyQuoteReceived, To: "ada@example.com"}))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, want, job.ID)
		require.Equal(t, domain.NotifyQuoteReceived, job.Kind)
	}
}

func TestRedisQueue_DequeueHonoursCancel(t *testing.T) {
	q, _ := newTestRedisQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisQueue_DeadLetter(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestRedisQueue(t)

	require.NoError(t, q.DeadLetter(ctx, Job{ID: "x", LastError: "boom"}))
	require.True(t, mr.Exists("test:notify:dead"))

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.Equal(t, "boom", dead[0].LastError)
}

func TestRedisQueue_WithDispatcher(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestRedisQueue(t)
	mailer := &flakyMailer{failures: 1}
	d, _ := newTestDispatcher(q, mailer, nil, Config{})

	require.NoError(t, d.Notify(ctx, domain.NotifyMFAEnabled, "ada@example.com", map[string]any{"name": "Ada"}))
	d.Start(ctx, 1)
	require.Eventually(t, func() bool {
		_, sent := mailer.snapshot()
		n, err := q.InFlight(ctx)
		return len(sent) == 1 && err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)
	d.Stop(ctx)
}

func TestRedisQueue_UnackedJobsAreRecovered(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestRedisQueue(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, Job{ID: id, Kind: domain.NotifyQuoteReceived, To: "ada@example.com"}))
	}

	// A worker takes two jobs and dies before acking either.
	for _, want := range []string{"a", "b"} {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, want, job.ID)
	}
	inFlight, err := q.InFlight(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, inFlight)
	require.True(t, mr.Exists("test:notify:processing"))

	restarted := NewRedisQueueFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:notify")
	restarted.Block = 50 * time.Millisecond
	t.Cleanup(func() { _ = restarted.Close() })

	n, err := restarted.Recover(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for _, want := range []string{"a", "b", "c"} {
		job, err := restarted.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, want, job.ID)
		require.NoError(t, restarted.Ack(ctx, job))
	}
	inFlight, err = restarted.InFlight(ctx)
	require.NoError(t, err)
	require.Zero(t, inFlight)

	n, err = restarted.Recover(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRedisQueue_DeadLetteredJobsAreAcked(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestRedisQueue(t)
	mailer := &flakyMailer{failures: 100}
	d, _ := newTestDispatcher(q, mailer, nil, Config{})

	require.NoError(t, d.Notify(ctx, domain.NotifyMFAEnabled, "ada@example.com", map[string]any{"name": "Ada"}))
	d.Start(ctx, 1)
	require.Eventually(t, func() bool {
		dead, err := q.DeadLetters(ctx, 10)
		n, ferr := q.InFlight(ctx)
		return err == nil && ferr == nil && len(dead) == 1 && n == 0
	}, 2*time.Second, 10*time.Millisecond)
	d.Stop(ctx)

	queued, err := q.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, queued)
}

func TestRedisQueue_AckWithoutReceiptIsNoop(t *testing.T) {
	q, _ := newTestRedisQueue(t)
	require.NoError(t, q.Ack(context.Background(), Job{ID: "never-dequeued"}))
}

// Package notify delivers customer emails off the request path. Services
// enqueue a Job; dispatcher workers render it and hand it to a Mailer with
// bounded retries, parking jobs that never succeed in a dead-letter list.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
)

// MinAttempts is the floor applied to Config.MaxAttempts.
const MinAttempts = 3

type Config struct {
	MaxAttempts    int
	Backoff        time.Duration // multiplied by the attempt number
	AttemptTimeout time.Duration
}

// Result is the outcome of one Deliver call.
type Result struct {
	Attempts int
	Err      error

	// unparked is set when a failed job could not be dead-lettered. The job
	// is left unacked so it is delivered again after a restart.
	unparked bool
}

type Dispatcher struct {
	queue     Queue
	mailer    Mailer
	templates *Templates
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       Config

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewDispatcher(q Queue, m Mailer, t *Templates, mt *metrics.Metrics, logger *slog.Logger, cfg Config) *Dispatcher {
	cfg.MaxAttempts = max(cfg.MaxAttempts, MinAttempts)
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if t == nil {
		t = NewTemplates()
	}
	return &Dispatcher{
		queue:     q,
		mailer:    m,
		templates: t,
		metrics:   mt,
		logger:    logger,
		cfg:       cfg,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify queues a message and returns without waiting for delivery.
func (d *Dispatcher) Notify(ctx context.Context, kind domain.NotificationKind, to string, params map[string]any) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("notify: recipient is required")
	}
	if !d.templates.Known(kind) {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	job := Job{
		ID:         idx.New().String(),
		Kind:       kind,
		To:         to,
		Params:     params,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	if n, err := d.queue.Len(ctx); err == nil {
		d.metrics.SetQueueDepth(n)
	}
	return nil
}

// Deliver renders job and sends it, retrying with linear backoff up to
// MaxAttempts times. A job that still fails is dead-lettered.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) Result {
	l := d.logger.With(
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.String("to", domain.MaskEmail(job.To)),
	)

	msg, err := d.templates.Render(job.Kind, job.To, job.Params)
	if err != nil {
		// Rendering is deterministic; retrying cannot help.
		l.Error("notification render failed", slog.Any("error", err))
		parked := d.park(ctx, l, job, err)
		d.metrics.Notification(string(job.Kind), "failed", 0)
		return Result{Err: err, unparked: !parked}
	}

	var lastErr error
	attempt := 0
	for attempt < d.cfg.MaxAttempts {
		attempt++

		actx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		lastErr = d.mailer.Send(actx, msg)
		cancel()
		if lastErr == nil {
			l.Info("notification sent", slog.Int("attempts", attempt))
			d.metrics.Notification(string(job.Kind), "sent", attempt)
			return Result{Attempts: attempt}
		}

		l.Warn("notification attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", d.cfg.MaxAttempts),
			slog.Any("error", lastErr),
		)
		if attempt == d.cfg.MaxAttempts {
			break
		}
		if err := d.sleep(ctx, time.Duration(attempt)*d.cfg.Backoff); err != nil {
			lastErr = err
			break
		}
	}

	l.Error("notification failed", slog.Int("attempts", attempt), slog.Any("error", lastErr))
	parked := d.park(ctx, l, job, lastErr)
	d.metrics.Notification(string(job.Kind), "failed", attempt)
	return Result{Attempts: attempt, Err: lastErr, unparked: !parked}
}

func (d *Dispatcher) park(ctx context.Context, l *slog.Logger, job Job, cause error) bool {
	job.LastError = cause.Error()
	if err := d.queue.DeadLetter(context.WithoutCancel(ctx), job); err != nil {
		l.Error("dead-letter failed", slog.Any("error", err))
		return false
	}
	return true
}

// finish acks job unless it failed and could not be parked.
func (d *Dispatcher) finish(ctx context.Context, job Job, res Result) {
	if res.unparked {
		return
	}
	if err := d.queue.Ack(ctx, job); err != nil {
		d.logger.Error("notification ack failed", slog.String("job_id", job.ID), slog.Any("error", err))
	}
}

// Start launches n workers. Calling Start twice is a no-op.
func (d *Dispatcher) Start(ctx context.Context, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	if n <= 0 {
		n = 1
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.running = true
	for range n {
		d.wg.Add(1)
		go d.work(ctx)
	}
	d.logger.Info("notification dispatcher started", slog.Int("workers", n))
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return
			}
			d.logger.Error("notification dequeue failed", slog.Any("error", err))
			if d.sleep(ctx, d.cfg.Backoff) != nil {
				return
			}
			continue
		}
		// An in-flight delivery finishes even when Stop is called.
		dctx := context.WithoutCancel(ctx)
		d.finish(dctx, job, d.Deliver(dctx, job))
		if n, err := d.queue.Len(ctx); err == nil {
			d.metrics.SetQueueDepth(n)
		}
	}
}

// Stop halts the workers and waits for in-flight deliveries. Jobs still
// buffered in a MemoryQueue are delivered before Stop returns, bounded by
// ctx.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()

	if mq, ok := d.queue.(*MemoryQueue); ok {
		_ = mq.Close()
		for ctx.Err() == nil {
			job, err := mq.Dequeue(ctx)
			if err != nil {
				break
			}
			d.finish(ctx, job, d.Deliver(ctx, job))
		}
	}
	d.logger.Info("notification dispatcher stopped")
}

// Package service holds the freightdesk use cases. Services re-read state from
// the store before every mutation and hand notifications to the dispatcher
// only after the write has committed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

const (
	// casBudget caps how long a read-modify-write keeps retrying version
	// conflicts when ctx carries no earlier deadline.
	casBudget = 10 * time.Second

	casMaxBackoff = 50 * time.Millisecond
)

// retryOnConflict runs attempt until it returns anything other than
// store.ErrConflict. Each retry re-runs the whole attempt, so the read is
// always fresh. Waits are jittered and doubled up to casMaxBackoff; the loop
// gives up with ErrConflict once ctx ends or casBudget elapses.
func retryOnConflict(ctx context.Context, attempt func() error) error {
	ctx, cancel := context.WithTimeout(ctx, casBudget)
	defer cancel()

	backoff := time.Millisecond
	for {
		err := attempt()
		if !errors.Is(err, store.ErrConflict) {
			return err
		}

		t := time.NewTimer(backoff/2 + rand.N(backoff))
		select {
		case <-ctx.Done():
			t.Stop()
			return ErrConflict
		case <-t.C:
		}
		backoff = min(backoff*2, casMaxBackoff)
	}
}

// Notifier queues a message for asynchronous delivery.
type Notifier interface {
	Notify(ctx context.Context, kind domain.NotificationKind, to string, params map[string]any) error
}

// notify hands a message to n. Failure is logged and counted, never returned:
// a lost email must not undo the transition that triggered it.
func notify(
	ctx context.Context,
	n Notifier,
	m *metrics.Metrics,
	kind domain.NotificationKind,
	to string,
	params map[string]any,
) {
	if n == nil || to == "" {
		return
	}
	if err := n.Notify(ctx, kind, to, params); err != nil {
		slogx.FromContext(ctx).Warn("notification failed",
			slog.String("kind", string(kind)),
			slog.String("to", domain.MaskEmail(to)),
			slog.Any("error", err),
		)
		m.Notification(string(kind), "enqueue_failed", 0)
	}
}

// Principal is the authenticated caller as established by the bearer token.
type Principal struct {
	UserID   string
	Username string
	IsAdmin  bool
}

func (p Principal) Authenticated() bool { return p.UserID != "" }

// RequireRole fails with ErrUnauthorized for anonymous callers and
// ErrForbidden when p lacks role.
func RequireRole(p Principal, role domain.Role) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}
	if role == domain.RoleAdmin && !p.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// mapStoreErr converts store sentinels into service sentinels and passes
// anything else through untouched.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists), errors.Is(err, store.ErrConflict):
		return ErrConflict
	case errors.Is(err, store.ErrCooldown):
		return ErrRateLimited
	default:
		return err
	}
}

package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store/drivers/sqlite"
	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cryptox.SetPepper("test-pepper")
	cryptox.SetArgon2Params(cryptox.Argon2Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})
	os.Exit(m.Run())
}

var (
	epoch = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	admin = Principal{UserID: "admin-1", Username: "admin", IsAdmin: true}
	buyer = Principal{UserID: "customer-1", Username: "buyer"}
)

// fakeClock is a manually advanced clock shared by every service in a test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	Kind   domain.NotificationKind
	To     string
	Params map[string]any
}

// recordingNotifier keeps every message; set fail to simulate a broken queue.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (n *recordingNotifier) Notify(_ context.Context, kind domain.NotificationKind, to string, params map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("queue unavailable")
	}
	n.sent = append(n.sent, sentMessage{Kind: kind, To: to, Params: params})
	return nil
}

func (n *recordingNotifier) last(kind domain.NotificationKind) (sentMessage, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind {
			return n.sent[i], true
		}
	}
	return sentMessage{}, false
}

func (n *recordingNotifier) count(kind domain.NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

// seedUser stores an active customer with the given password.
func seedUser(t *testing.T, s *sqlite.Store, email, username, password string) domain.User {
	t.Helper()
	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:            idx.New().String(),
		Email:         email,
		Username:      username,
		PasswordHash:  hash,
		Role:          domain.RoleCustomer,
		AccountStatus: domain.AccountActive,
		KYCStatus:     domain.KYCNotSubmitted,
		CreatedAt:     epoch,
		UpdatedAt:     epoch,
	}
	u.SetName("Ada", "Lovelace")
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

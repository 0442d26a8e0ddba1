package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict means the record changed since it was read (version mismatch).
	ErrConflict = errors.New("store: version conflict")

	// ErrCooldown means a one-time code was issued too recently to be replaced.
	ErrCooldown = errors.New("store: cooldown active")
)

// AnyVersion passed as an expected version disables the version check.
// Stored versions start at 1.
const AnyVersion int64 = 0

// Store is the root data access interface implemented by the sqlite and mongo
// drivers. Every multi-step write is a single repository call so each driver
// can make it atomic in its own way; there is no caller-visible transaction.
type Store interface {
	Users() Users
	Codes() Codes
	Quotes() Quotes
	Shipments() Shipments

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Page selects a 1-based page of results.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects a normalized (lower-cased) address.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the email or username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser replaces every mutable column except the password hash,
	// provided the stored version still equals u.Version, and bumps the
	// version. Returns ErrConflict or ErrNotFound otherwise.
	UpdateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error

	// ListUsers returns a page ordered by creation (newest first) and the total count.
	ListUsers(ctx context.Context, p Page) ([]domain.User, int, error)

	DeleteUser(ctx context.Context, userID string) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Codes interface {
	// IssueCode stores c, replacing any code for the same (email, purpose)
	// created at or before notAfter. A newer existing code yields ErrCooldown
	// and is left untouched. The check and replace are one atomic step.
	IssueCode(ctx context.Context, c domain.OneTimeCode, notAfter time.Time) error

	GetCode(ctx context.Context, email string, purpose domain.CodePurpose) (domain.OneTimeCode, error)

	// ConsumeCode deletes the code iff its hash matches and it is unexpired at
	// now. Otherwise it returns ErrNotFound, so a code is usable only once.
	ConsumeCode(ctx context.Context, email string, purpose domain.CodePurpose, codeHash string, now time.Time) error

	// RecordFailedAttempt bumps the attempt counter and deletes the code once
	// it reaches maxAttempts.
	RecordFailedAttempt(ctx context.Context, email string, purpose domain.CodePurpose, maxAttempts int) error

	DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}

// QuoteFilter narrows ListQuotes. Status is matched against the effective
// status at Now; empty matches everything.
type QuoteFilter struct {
	Status domain.QuoteStatus
	Now    time.Time
	Page
}

type QuoteStats struct {
	Total     int
	ThisMonth int
	ByStatus  map[domain.QuoteStatus]int
}

type Quotes interface {
	// CreateQuote returns ErrAlreadyExists on a duplicate quote number.
	CreateQuote(ctx context.Context, q domain.Quote) error

	GetQuoteByID(ctx context.Context, id string) (domain.Quote, error)
	GetQuoteByNumber(ctx context.Context, number string) (domain.Quote, error)

	// UpdateQuote writes q if the stored version still equals q.Version and
	// stores q.Version+1. Returns ErrConflict or ErrNotFound otherwise.
	UpdateQuote(ctx context.Context, q domain.Quote) error

	DeleteQuote(ctx context.Context, id string) error

	ListQuotes(ctx context.Context, f QuoteFilter) ([]domain.Quote, int, error)

	// QuoteStats counts by effective status at now; ThisMonth counts quotes
	// created at or after monthStart.
	QuoteStats(ctx context.Context, now, monthStart time.Time) (QuoteStats, error)

	// ExpireQuotes persists the expired status for quotes whose window has
	// closed and that carry no admin override.
	ExpireQuotes(ctx context.Context, now time.Time) (int64, error)
}

type ShipmentFilter struct {
	Status domain.ShipmentStatus
	Page
}

type Shipments interface {
	// CreateShipment returns ErrAlreadyExists on a duplicate tracking number.
	CreateShipment(ctx context.Context, s domain.Shipment) error

	GetShipmentByID(ctx context.Context, id string) (domain.Shipment, error)
	GetShipmentByTrackingNumber(ctx context.Context, number string) (domain.Shipment, error)

	// AppendEvent adds ev to the history and sets status and current location
	// from it in one atomic step, provided the stored version equals version.
	// AnyVersion skips the check; concurrent unconditional appends are
	// serialised by the driver and none is lost.
	AppendEvent(ctx context.Context, id string, version int64, ev domain.TrackingEvent) error

	// ReplaceDetails swaps the metadata blocks under the same version check.
	ReplaceDetails(ctx context.Context, id string, version int64, d domain.ShipmentDetails, at time.Time) error

	AddNote(ctx context.Context, id string, n domain.Note) error

	DeleteShipment(ctx context.Context, id string) error

	ListShipments(ctx context.Context, f ShipmentFilter) ([]domain.Shipment, int, error)
}

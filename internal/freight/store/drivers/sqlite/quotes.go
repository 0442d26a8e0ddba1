package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
)

type quotesRepo struct {
	db *sql.DB
}

// quoteDetails is the request half of a quote, kept as one JSON column since
// it is never queried on.
type quoteDetails struct {
	Customer            domain.Contact     `json:"customer"`
	Origin              domain.Location    `json:"origin"`
	Destination         domain.Location    `json:"destination"`
	Package             domain.Package     `json:"package"`
	ServiceType         domain.ServiceType `json:"serviceType"`
	Urgency             domain.Urgency     `json:"urgency"`
	PreferredDate       *time.Time         `json:"preferredDate,omitempty"`
	SpecialInstructions string             `json:"specialInstructions,omitempty"`
}

const quoteColumns = `id, quote_number, customer_email, details, status, status_override,
	quoted_price, estimated_delivery, quoted_by, quoted_at, admin_notes,
	expires_at, created_at, updated_at, version`

func encodeQuoteDetails(q domain.Quote) (string, error) {
	b, err := json.Marshal(quoteDetails{
		Customer:            q.Customer,
		Origin:              q.Origin,
		Destination:         q.Destination,
		Package:             q.Package,
		ServiceType:         q.ServiceType,
		Urgency:             q.Urgency,
		PreferredDate:       q.PreferredDate,
		SpecialInstructions: q.SpecialInstructions,
	})
	return string(b), err
}

func scanQuote(row rowScanner) (domain.Quote, error) {
	var (
		q                    domain.Quote
		customerEmail        string
		details              string
		override             int
		price                int64
		estimatedDelivery    sql.NullInt64
		quotedAt             sql.NullInt64
		expiresAt            int64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &customerEmail, &details, &q.Status, &override,
		&price, &estimatedDelivery, &q.QuotedBy, &quotedAt, &q.AdminNotes,
		&expiresAt, &createdAt, &updatedAt, &q.Version,
	)
	if err != nil {
		return domain.Quote{}, mapNotFound(err)
	}

	var d quoteDetails
	if err := json.Unmarshal([]byte(details), &d); err != nil {
		return domain.Quote{}, fmt.Errorf("sqlite: decode quote %s: %w", q.ID, err)
	}
	q.Customer = d.Customer
	q.Origin = d.Origin
	q.Destination = d.Destination
	q.Package = d.Package
	q.ServiceType = d.ServiceType
	q.Urgency = d.Urgency
	q.PreferredDate = d.PreferredDate
	q.SpecialInstructions = d.SpecialInstructions

	q.StatusOverride = override == 1
	q.QuotedPrice = domain.Money(price)
	q.EstimatedDelivery = fromNullMillis(estimatedDelivery)
	q.QuotedAt = fromNullMillis(quotedAt)
	q.ExpiresAt = fromMillis(expiresAt)
	q.CreatedAt = fromMillis(createdAt)
	q.UpdatedAt = fromMillis(updatedAt)
	return q, nil
}

func (r *quotesRepo) CreateQuote(ctx context.Context, q domain.Quote) error {
	details, err := encodeQuoteDetails(q)
	if err != nil {
		return err
	}
	version := q.Version
	if version == 0 {
		version = 1
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO quotes (`+quoteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.QuoteNumber, q.Customer.Email, details, q.Status, boolInt(q.StatusOverride),
		int64(q.QuotedPrice), toNullMillis(q.EstimatedDelivery), q.QuotedBy, toNullMillis(q.QuotedAt), q.AdminNotes,
		toMillis(q.ExpiresAt), toMillis(q.CreatedAt), toMillis(q.UpdatedAt), version,
	)
	return mapUnique(err)
}

func (r *quotesRepo) GetQuoteByID(ctx context.Context, id string) (domain.Quote, error) {
	return scanQuote(r.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id))
}

func (r *quotesRepo) GetQuoteByNumber(ctx context.Context, number string) (domain.Quote, error) {
	return scanQuote(r.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE quote_number = ?`, number))
}

func (r *quotesRepo) UpdateQuote(ctx context.Context, q domain.Quote) error {
	details, err := encodeQuoteDetails(q)
	if err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE quotes SET
				customer_email = ?, details = ?, status = ?, status_override = ?,
				quoted_price = ?, estimated_delivery = ?, quoted_by = ?, quoted_at = ?, admin_notes = ?,
				updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?`,
			q.Customer.Email, details, q.Status, boolInt(q.StatusOverride),
			int64(q.QuotedPrice), toNullMillis(q.EstimatedDelivery), q.QuotedBy, toNullMillis(q.QuotedAt), q.AdminNotes,
			toMillis(q.UpdatedAt), q.ID, q.Version,
		)
		if err := expectOne(res, err); err != nil {
			return conflictOrMissing(ctx, tx, "quotes", q.ID, err)
		}
		return nil
	})
}

func (r *quotesRepo) DeleteQuote(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id)
	return expectOne(res, err)
}

// effectiveStatusSQL mirrors domain.Quote.EffectiveStatus; the single
// parameter is now in unix milliseconds.
const effectiveStatusSQL = `CASE
	WHEN status_override = 0 AND status <> 'expired' AND expires_at <= ? THEN 'expired'
	ELSE status END`

func (r *quotesRepo) ListQuotes(ctx context.Context, f store.QuoteFilter) ([]domain.Quote, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, effectiveStatusSQL+` = ?`)
		args = append(args, toMillis(f.Now), f.Status)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+quoteColumns+` FROM quotes`+clause+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset())...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	quotes := []domain.Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, q)
	}
	return quotes, total, rows.Err()
}

func (r *quotesRepo) QuoteStats(ctx context.Context, now, monthStart time.Time) (store.QuoteStats, error) {
	stats := store.QuoteStats{ByStatus: make(map[domain.QuoteStatus]int, len(domain.QuoteStatuses))}
	for _, s := range domain.QuoteStatuses {
		stats.ByStatus[s] = 0
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+effectiveStatusSQL+` AS eff, COUNT(*) FROM quotes GROUP BY eff`,
		toMillis(now),
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status domain.QuoteStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return stats, err
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quotes WHERE created_at >= ?`, toMillis(monthStart),
	).Scan(&stats.ThisMonth)
	return stats, err
}

func (r *quotesRepo) ExpireQuotes(ctx context.Context, now time.Time) (int64, error) {
	ms := toMillis(now)
	res, err := r.db.ExecContext(ctx, `UPDATE quotes
		SET status = 'expired', updated_at = ?, version = version + 1
		WHERE status_override = 0 AND status <> 'expired' AND expires_at <= ?`,
		ms, ms,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// conflictOrMissing turns a failed version-checked write into ErrConflict when
// the row still exists and ErrNotFound when it does not.
func conflictOrMissing(ctx context.Context, db dbtx, table, id string, err error) error {
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	var one int
	switch scanErr := db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one); {
	case scanErr == nil:
		return store.ErrConflict
	case errors.Is(scanErr, sql.ErrNoRows):
		return store.ErrNotFound
	default:
		return scanErr
	}
}

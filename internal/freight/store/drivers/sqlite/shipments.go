package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
)

type shipmentsRepo struct {
	db *sql.DB
}

const shipmentColumns = `id, tracking_number, details, status, current_location,
	created_by, created_at, updated_at, version`

func scanShipment(row rowScanner) (domain.Shipment, error) {
	var (
		s                    domain.Shipment
		details              string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&s.ID, &s.TrackingNumber, &details, &s.Status, &s.CurrentLocation,
		&s.CreatedBy, &createdAt, &updatedAt, &s.Version,
	)
	if err != nil {
		return domain.Shipment{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(details), &s.ShipmentDetails); err != nil {
		return domain.Shipment{}, fmt.Errorf("sqlite: decode shipment %s: %w", s.ID, err)
	}
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	s.Events = []domain.TrackingEvent{}
	s.Notes = []domain.Note{}
	return s, nil
}

// loadHistory fills in events and notes. It must run after any cursor over
// shipments is closed since the pool holds a single connection.
func loadHistory(ctx context.Context, db dbtx, s *domain.Shipment) error {
	rows, err := db.QueryContext(ctx, `
		SELECT recorded_at, status, location, description, recorded_by
		FROM tracking_events WHERE shipment_id = ? ORDER BY seq`, s.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			ev domain.TrackingEvent
			at int64
		)
		if err := rows.Scan(&at, &ev.Status, &ev.Location, &ev.Description, &ev.RecordedBy); err != nil {
			_ = rows.Close()
			return err
		}
		ev.Timestamp = fromMillis(at)
		s.Events = append(s.Events, ev)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	rows, err = db.QueryContext(ctx, `
		SELECT id, added_at, body, added_by
		FROM shipment_notes WHERE shipment_id = ? ORDER BY added_at, id`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			n  domain.Note
			at int64
		)
		if err := rows.Scan(&n.ID, &at, &n.Text, &n.AddedBy); err != nil {
			return err
		}
		n.Timestamp = fromMillis(at)
		s.Notes = append(s.Notes, n)
	}
	return rows.Err()
}

func (r *shipmentsRepo) getBy(ctx context.Context, column, value string) (domain.Shipment, error) {
	s, err := scanShipment(r.db.QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE `+column+` = ?`, value))
	if err != nil {
		return domain.Shipment{}, err
	}
	if err := loadHistory(ctx, r.db, &s); err != nil {
		return domain.Shipment{}, err
	}
	return s, nil
}

func (r *shipmentsRepo) GetShipmentByID(ctx context.Context, id string) (domain.Shipment, error) {
	return r.getBy(ctx, "id", id)
}

func (r *shipmentsRepo) GetShipmentByTrackingNumber(ctx context.Context, number string) (domain.Shipment, error) {
	return r.getBy(ctx, "tracking_number", number)
}

func (r *shipmentsRepo) CreateShipment(ctx context.Context, s domain.Shipment) error {
	details, err := json.Marshal(s.ShipmentDetails)
	if err != nil {
		return err
	}
	version := s.Version
	if version == 0 {
		version = 1
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO shipments (`+shipmentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.TrackingNumber, string(details), s.Status, s.CurrentLocation,
			s.CreatedBy, toMillis(s.CreatedAt), toMillis(s.UpdatedAt), version,
		)
		if err != nil {
			return mapUnique(err)
		}
		for i, ev := range s.Events {
			if err := insertEvent(ctx, tx, s.ID, i+1, ev); err != nil {
				return err
			}
		}
		for _, n := range s.Notes {
			if err := insertNote(ctx, tx, s.ID, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertEvent(ctx context.Context, tx dbtx, shipmentID string, seq int, ev domain.TrackingEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tracking_events (shipment_id, seq, recorded_at, status, location, description, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		shipmentID, seq, toMillis(ev.Timestamp), ev.Status, ev.Location, ev.Description, ev.RecordedBy,
	)
	return err
}

func insertNote(ctx context.Context, tx dbtx, shipmentID string, n domain.Note) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shipment_notes (id, shipment_id, added_at, body, added_by)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, shipmentID, toMillis(n.Timestamp), n.Text, n.AddedBy,
	)
	return mapUnique(err)
}

func (r *shipmentsRepo) AppendEvent(ctx context.Context, id string, version int64, ev domain.TrackingEvent) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE shipments
			SET status = ?, current_location = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND (? = 0 OR version = ?)`,
			ev.Status, ev.Location, toMillis(ev.Timestamp), id, version, version,
		)
		if err := expectOne(res, err); err != nil {
			return conflictOrMissing(ctx, tx, "shipments", id, err)
		}

		var seq int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM tracking_events WHERE shipment_id = ?`, id,
		).Scan(&seq); err != nil {
			return err
		}
		return insertEvent(ctx, tx, id, seq, ev)
	})
}

func (r *shipmentsRepo) ReplaceDetails(
	ctx context.Context,
	id string,
	version int64,
	d domain.ShipmentDetails,
	at time.Time,
) error {
	details, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE shipments
			SET details = ?, updated_at = ?, version = version + 1
			WHERE id = ? AND version = ?`,
			string(details), toMillis(at), id, version,
		)
		if err := expectOne(res, err); err != nil {
			return conflictOrMissing(ctx, tx, "shipments", id, err)
		}
		return nil
	})
}

// AddNote does not bump the version; notes are an unordered side channel and
// never race with status changes.
func (r *shipmentsRepo) AddNote(ctx context.Context, id string, n domain.Note) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE shipments SET updated_at = ? WHERE id = ?`, toMillis(n.Timestamp), id)
		if err := expectOne(res, err); err != nil {
			return err
		}
		return insertNote(ctx, tx, id, n)
	})
}

func (r *shipmentsRepo) DeleteShipment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shipments WHERE id = ?`, id)
	return expectOne(res, err)
}

func (r *shipmentsRepo) ListShipments(ctx context.Context, f store.ShipmentFilter) ([]domain.Shipment, int, error) {
	clause := ""
	var args []any
	if f.Status != "" {
		clause = " WHERE status = ?"
		args = append(args, f.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipments`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments`+clause+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset())...,
	)
	if err != nil {
		return nil, 0, err
	}
	shipments := []domain.Shipment{}
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			_ = rows.Close()
			return nil, 0, err
		}
		shipments = append(shipments, s)
	}
	if err := rows.Close(); err != nil {
		return nil, 0, err
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range shipments {
		if err := loadHistory(ctx, r.db, &shipments[i]); err != nil {
			return nil, 0, err
		}
	}
	return shipments, total, nil
}

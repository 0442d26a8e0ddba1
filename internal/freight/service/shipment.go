package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

type ShipmentService struct {
	Store    store.Store
	Notifier Notifier
	Metrics  *metrics.Metrics
	Clock    Clock
	Numbers  Numbers

	// StrictTransitions rejects tracking events that move a shipment
	// backwards or past delivery.
	StrictTransitions bool
}

type EventInput struct {
	Status      domain.ShipmentStatus `json:"status"`
	Location    string                `json:"location"`
	Description string                `json:"description"`
}

// MetadataUpdate is the body of a metadata replacement. The tracking fields
// exist only so a request that sets them can be refused; history changes go
// through AppendEvent.
type MetadataUpdate struct {
	domain.ShipmentDetails
	Status          *domain.ShipmentStatus `json:"status,omitempty"`
	CurrentLocation *string                `json:"currentLocation,omitempty"`
	TrackingEvents  []domain.TrackingEvent `json:"trackingEvents,omitempty"`
}

type ShipmentFilter struct {
	Status domain.ShipmentStatus
	store.Page
}

func validateParty(v *validator, p domain.Party, field string) {
	v.required(p.Name, field+".name")
	validateLocation(v, p.Location, field)
	if p.Email != "" {
		v.check(validEmail(domain.NormalizeEmail(p.Email)), field+".email", "must be a valid email address")
	}
}

func validateDetails(d *domain.ShipmentDetails) error {
	if d.Service.Tier == "" {
		d.Service.Tier = domain.TierStandard
	}
	d.Sender.Email = domain.NormalizeEmail(d.Sender.Email)
	d.Recipient.Email = domain.NormalizeEmail(d.Recipient.Email)

	var v validator
	validateParty(&v, d.Sender, "sender")
	validateParty(&v, d.Recipient, "recipient")
	v.check(d.Package.Weight > 0, "package.weight", "must be greater than zero")
	v.check(d.Package.DeclaredValue >= 0, "package.declaredValue", "must not be negative")
	v.check(d.Service.Tier.Valid(), "service.tier", "must be one of standard, express, overnight, international")
	v.check(d.Service.Cost >= 0, "service.cost", "must not be negative")
	return v.err()
}

// requireStaff checks that a mutation is attributed to an admin.
func requireStaff(actor Principal) error {
	if actor.UserID == "" {
		return ErrUnauthorized
	}
	return RequireRole(actor, domain.RoleAdmin)
}

// Create registers a shipment in pending with an empty history.
func (s *ShipmentService) Create(ctx context.Context, actor Principal, d domain.ShipmentDetails) (domain.Shipment, error) {
	if err := requireStaff(actor); err != nil {
		return domain.Shipment{}, err
	}
	if err := validateDetails(&d); err != nil {
		return domain.Shipment{}, err
	}

	now := s.Clock.now()
	sh := domain.Shipment{
		ID:              idx.NewAt(now).String(),
		ShipmentDetails: d,
		Status:          domain.ShipmentPending,
		Events:          []domain.TrackingEvent{},
		Notes:           []domain.Note{},
		CreatedBy:       actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	number, err := s.Numbers.allocate(TrackingNumberPrefix, func(number string) error {
		sh.TrackingNumber = number
		return s.Store.Shipments().CreateShipment(ctx, sh)
	})
	if err != nil {
		return domain.Shipment{}, mapStoreErr(err)
	}
	sh.TrackingNumber = number

	slogx.FromContext(ctx).Info("shipment created",
		slog.String("shipment_id", sh.ID),
		slog.String("tracking_number", sh.TrackingNumber),
		slog.String("created_by", actor.UserID),
	)
	notify(ctx, s.Notifier, s.Metrics, domain.NotifyShipmentCreated, sh.Recipient.Email, shipmentParams(sh))
	return sh, nil
}

// AppendEvent records a tracking event and moves status and location with
// it. Without strict transitions the store appends under its own lock, so
// concurrent events are linearised and all of them land. With strict
// transitions the forward check needs the current history, so the append is
// conditional on the version that was checked and retried on conflict.
func (s *ShipmentService) AppendEvent(ctx context.Context, actor Principal, id string, in EventInput) (domain.Shipment, error) {
	if err := requireStaff(actor); err != nil {
		return domain.Shipment{}, err
	}

	var v validator
	v.check(in.Status.ValidEvent(), "status", "must be one of picked-up, in-transit, out-for-delivery, delivered, delayed, exception")
	v.required(in.Location, "location")
	if err := v.err(); err != nil {
		return domain.Shipment{}, err
	}

	newEvent := func() domain.TrackingEvent {
		return domain.TrackingEvent{
			Timestamp:   s.Clock.now(),
			Status:      in.Status,
			Location:    strings.TrimSpace(in.Location),
			Description: strings.TrimSpace(in.Description),
			RecordedBy:  actor.UserID,
		}
	}

	var ev domain.TrackingEvent
	if !s.StrictTransitions {
		ev = newEvent()
		if err := s.Store.Shipments().AppendEvent(ctx, id, store.AnyVersion, ev); err != nil {
			return domain.Shipment{}, mapStoreErr(err)
		}
	} else {
		err := retryOnConflict(ctx, func() error {
			sh, err := s.Store.Shipments().GetShipmentByID(ctx, id)
			if err != nil {
				return mapStoreErr(err)
			}
			if err := sh.CheckForward(in.Status); err != nil {
				return fmt.Errorf("%w: %v", ErrConflict, err)
			}
			ev = newEvent()
			return s.Store.Shipments().AppendEvent(ctx, sh.ID, sh.Version, ev)
		})
		if err != nil {
			return domain.Shipment{}, mapStoreErr(err)
		}
	}

	sh, err := s.Store.Shipments().GetShipmentByID(ctx, id)
	if err != nil {
		return domain.Shipment{}, mapStoreErr(err)
	}

	s.Metrics.ShipmentEvent(string(ev.Status))
	slogx.FromContext(ctx).Info("tracking event recorded",
		slog.String("shipment_id", sh.ID),
		slog.String("status", string(ev.Status)),
		slog.String("actor", actor.UserID),
	)
	notify(ctx, s.Notifier, s.Metrics, domain.NotifyShipmentStatus, sh.Recipient.Email, eventParams(sh, ev))
	return sh, nil
}

// ReplaceMetadata swaps sender, recipient, package, service and driver.
// Status, location and history are never touched here.
func (s *ShipmentService) ReplaceMetadata(ctx context.Context, actor Principal, id string, upd MetadataUpdate) (domain.Shipment, error) {
	if err := requireStaff(actor); err != nil {
		return domain.Shipment{}, err
	}

	var v validator
	v.check(upd.Status == nil, "status", "use the status endpoint to record tracking events")
	v.check(upd.CurrentLocation == nil, "currentLocation", "is derived from tracking events")
	v.check(upd.TrackingEvents == nil, "trackingEvents", "history is append-only")
	if err := v.err(); err != nil {
		return domain.Shipment{}, err
	}
	d := upd.ShipmentDetails
	if err := validateDetails(&d); err != nil {
		return domain.Shipment{}, err
	}

	var sh domain.Shipment
	err := retryOnConflict(ctx, func() error {
		var err error
		sh, err = s.Store.Shipments().GetShipmentByID(ctx, id)
		if err != nil {
			return mapStoreErr(err)
		}
		now := s.Clock.now()
		if err := s.Store.Shipments().ReplaceDetails(ctx, sh.ID, sh.Version, d, now); err != nil {
			return err
		}
		sh.ShipmentDetails = d
		sh.Version++
		sh.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Shipment{}, mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("shipment metadata replaced",
		slog.String("shipment_id", sh.ID),
		slog.String("actor", actor.UserID),
	)
	return sh, nil
}

// AddNote attaches an attributed internal note.
func (s *ShipmentService) AddNote(ctx context.Context, actor Principal, id, text string) (domain.Note, error) {
	if err := requireStaff(actor); err != nil {
		return domain.Note{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Note{}, invalid("note", "is required")
	}

	now := s.Clock.now()
	n := domain.Note{
		ID:        idx.NewAt(now).String(),
		Timestamp: now,
		Text:      text,
		AddedBy:   actor.UserID,
	}
	if err := s.Store.Shipments().AddNote(ctx, id, n); err != nil {
		return domain.Note{}, mapStoreErr(err)
	}
	return n, nil
}

// Lookup is the public view by tracking number.
func (s *ShipmentService) Lookup(ctx context.Context, trackingNumber string) (domain.Shipment, error) {
	sh, err := s.Store.Shipments().GetShipmentByTrackingNumber(ctx, strings.TrimSpace(trackingNumber))
	return sh, mapStoreErr(err)
}

func (s *ShipmentService) Get(ctx context.Context, actor Principal, id string) (domain.Shipment, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Shipment{}, err
	}
	sh, err := s.Store.Shipments().GetShipmentByID(ctx, id)
	return sh, mapStoreErr(err)
}

func (s *ShipmentService) List(ctx context.Context, actor Principal, f ShipmentFilter) ([]domain.Shipment, int, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, 0, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, invalid("status", "unknown status")
	}
	list, total, err := s.Store.Shipments().ListShipments(ctx, store.ShipmentFilter{Status: f.Status, Page: f.Page})
	return list, total, mapStoreErr(err)
}

func (s *ShipmentService) Delete(ctx context.Context, actor Principal, id string) error {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.Store.Shipments().DeleteShipment(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	slogx.FromContext(ctx).Info("shipment deleted", slog.String("shipment_id", id), slog.String("actor", actor.UserID))
	return nil
}

// eventParams describes ev rather than the re-read head, which a later
// concurrent append may already have moved.
func eventParams(sh domain.Shipment, ev domain.TrackingEvent) map[string]any {
	p := shipmentParams(sh)
	p["status"] = string(ev.Status)
	p["currentLocation"] = ev.Location
	return p
}

func shipmentParams(sh domain.Shipment) map[string]any {
	return map[string]any{
		"name":            sh.Recipient.Name,
		"trackingNumber":  sh.TrackingNumber,
		"status":          string(sh.Status),
		"currentLocation": sh.CurrentLocation,
		"origin":          sh.Sender.City,
		"destination":     sh.Recipient.City,
	}
}

package http

import (
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
)

// Response bodies. Domain types carry no JSON tags so storage fields such as
// the password hash can never leak by accident.

type userView struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	Username      string               `json:"username"`
	FirstName     string               `json:"firstName"`
	LastName      string               `json:"lastName"`
	FullName      string               `json:"fullName"`
	Phone         string               `json:"phone,omitempty"`
	Address       *domain.Location     `json:"address,omitempty"`
	Role          domain.Role          `json:"role"`
	AccountStatus domain.AccountStatus `json:"accountStatus"`
	KYCStatus     domain.KYCStatus     `json:"kycStatus"`
	KYCReviewedBy string               `json:"kycReviewedBy,omitempty"`
	KYCReviewedAt *time.Time           `json:"kycReviewedAt,omitempty"`
	MFAEnabled    bool                 `json:"mfaEnabled"`
	EmailVerified bool                 `json:"emailVerified"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func newUserView(u domain.User) userView {
	v := userView{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName,
		Phone:         u.Phone,
		Role:          u.Role,
		AccountStatus: u.AccountStatus,
		KYCStatus:     u.KYCStatus,
		KYCReviewedBy: u.KYCReviewedBy,
		KYCReviewedAt: u.KYCReviewedAt,
		MFAEnabled:    u.MFAEnabled,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if u.Address != (domain.Location{}) {
		addr := u.Address
		v.Address = &addr
	}
	return v
}

type quoteView struct {
	ID                  string             `json:"id"`
	QuoteNumber         string             `json:"quoteNumber"`
	Customer            domain.Contact     `json:"customer"`
	Origin              domain.Location    `json:"origin"`
	Destination         domain.Location    `json:"destination"`
	Package             domain.Package     `json:"package"`
	ServiceType         domain.ServiceType `json:"serviceType"`
	Urgency             domain.Urgency     `json:"urgency"`
	PreferredDate       *time.Time         `json:"preferredDate,omitempty"`
	SpecialInstructions string             `json:"specialInstructions,omitempty"`
	Status              domain.QuoteStatus `json:"status"`
	QuotedPrice         *domain.Money      `json:"quotedPrice,omitempty"`
	EstimatedDelivery   *time.Time         `json:"estimatedDelivery,omitempty"`
	QuotedBy            string             `json:"quotedBy,omitempty"`
	QuotedAt            *time.Time         `json:"quotedAt,omitempty"`
	AdminNotes          string             `json:"adminNotes,omitempty"`
	ExpiresAt           time.Time          `json:"expiresAt"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// newQuoteView renders q for an admin. Public callers get publicQuoteView.
func newQuoteView(q domain.Quote) quoteView {
	v := quoteView{
		ID:                  q.ID,
		QuoteNumber:         q.QuoteNumber,
		Customer:            q.Customer,
		Origin:              q.Origin,
		Destination:         q.Destination,
		Package:             q.Package,
		ServiceType:         q.ServiceType,
		Urgency:             q.Urgency,
		PreferredDate:       q.PreferredDate,
		SpecialInstructions: q.SpecialInstructions,
		Status:              q.Status,
		EstimatedDelivery:   q.EstimatedDelivery,
		QuotedBy:            q.QuotedBy,
		QuotedAt:            q.QuotedAt,
		AdminNotes:          q.AdminNotes,
		ExpiresAt:           q.ExpiresAt,
		CreatedAt:           q.CreatedAt,
		UpdatedAt:           q.UpdatedAt,
	}
	if q.QuotedPrice > 0 {
		price := q.QuotedPrice
		v.QuotedPrice = &price
	}
	return v
}

func publicQuoteView(q domain.Quote) quoteView {
	v := newQuoteView(q)
	v.AdminNotes = ""
	return v
}

type shipmentView struct {
	ID              string                 `json:"id"`
	TrackingNumber  string                 `json:"trackingNumber"`
	Sender          domain.Party           `json:"sender"`
	Recipient       domain.Party           `json:"recipient"`
	Package         domain.Package         `json:"package"`
	Service         domain.ServiceLevel    `json:"service"`
	Driver          *domain.Driver         `json:"driver,omitempty"`
	Status          domain.ShipmentStatus  `json:"status"`
	CurrentLocation string                 `json:"currentLocation"`
	TrackingEvents  []domain.TrackingEvent `json:"trackingEvents"`
	Notes           []domain.Note          `json:"notes,omitempty"`
	CreatedBy       string                 `json:"createdBy,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

func newShipmentView(s domain.Shipment) shipmentView {
	events := s.Events
	if events == nil {
		events = []domain.TrackingEvent{}
	}
	v := shipmentView{
		ID:              s.ID,
		TrackingNumber:  s.TrackingNumber,
		Sender:          s.Sender,
		Recipient:       s.Recipient,
		Package:         s.Package,
		Service:         s.Service,
		Status:          s.Status,
		CurrentLocation: s.CurrentLocation,
		TrackingEvents:  events,
		Notes:           s.Notes,
		CreatedBy:       s.CreatedBy,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.Driver != (domain.Driver{}) {
		d := s.Driver
		v.Driver = &d
	}
	return v
}

// publicShipmentView hides internal notes and staff attribution.
func publicShipmentView(s domain.Shipment) shipmentView {
	v := newShipmentView(s)
	v.Notes = nil
	v.CreatedBy = ""
	events := make([]domain.TrackingEvent, len(v.TrackingEvents))
	for i, ev := range v.TrackingEvents {
		ev.RecordedBy = ""
		events[i] = ev
	}
	v.TrackingEvents = events
	return v
}

type pageView[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func newPage[T any, D any](items []D, conv func(D) T, total, page, limit int) pageView[T] {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = conv(it)
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pageView[T]{Items: out, Total: total, Page: page, Limit: limit, Pages: pages}
}

package domain

import "time"

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteQuoted   QuoteStatus = "quoted"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteDeclined QuoteStatus = "declined"
	QuoteExpired  QuoteStatus = "expired"
)

var QuoteStatuses = []QuoteStatus{QuotePending, QuoteQuoted, QuoteAccepted, QuoteDeclined, QuoteExpired}

func (s QuoteStatus) Valid() bool {
	for _, v := range QuoteStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ServiceType string

const (
	ServiceAir     ServiceType = "air"
	ServiceOcean   ServiceType = "ocean"
	ServiceGround  ServiceType = "ground"
	ServiceExpress ServiceType = "express"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceAir, ServiceOcean, ServiceGround, ServiceExpress:
		return true
	}
	return false
}

type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyASAP     Urgency = "asap"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyStandard, UrgencyUrgent, UrgencyASAP:
		return true
	}
	return false
}

// QuoteValidity is the fixed window after which a quote is expired.
const QuoteValidity = 7 * 24 * time.Hour

type Quote struct {
	ID                  string
	QuoteNumber         string
	Customer            Contact
	Origin              Location
	Destination         Location
	Package             Package
	ServiceType         ServiceType
	Urgency             Urgency
	PreferredDate       *time.Time
	SpecialInstructions string

	Status QuoteStatus
	// StatusOverride is set when an admin sets the status after expiry; the
	// stored status then wins over the clock.
	StatusOverride bool

	QuotedPrice       Money
	EstimatedDelivery *time.Time
	QuotedBy          string
	QuotedAt          *time.Time
	AdminNotes        string

	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// EffectiveStatus derives the status observed by callers at now.
func (q Quote) EffectiveStatus(now time.Time) QuoteStatus {
	if q.StatusOverride || q.Status == QuoteExpired {
		return q.Status
	}
	if !q.ExpiresAt.IsZero() && !now.Before(q.ExpiresAt) {
		return QuoteExpired
	}
	return q.Status
}

// SetStatus moves the quote to next on behalf of actor. The pricing
// attribution is stamped on the first transition into quoted only.
func (q *Quote) SetStatus(next QuoteStatus, actor string, now time.Time) {
	prev := q.EffectiveStatus(now)
	if prev == QuoteExpired && next != QuoteExpired {
		q.StatusOverride = true
	}
	if next == QuoteQuoted && prev != QuoteQuoted && q.QuotedAt == nil {
		at := now
		q.QuotedBy = actor
		q.QuotedAt = &at
	}
	q.Status = next
}

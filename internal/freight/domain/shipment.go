package domain

import (
	"errors"
	"time"
)

type ShipmentStatus string

const (
	ShipmentPending        ShipmentStatus = "pending"
	ShipmentPickedUp       ShipmentStatus = "picked-up"
	ShipmentInTransit      ShipmentStatus = "in-transit"
	ShipmentOutForDelivery ShipmentStatus = "out-for-delivery"
	ShipmentDelivered      ShipmentStatus = "delivered"
	ShipmentDelayed        ShipmentStatus = "delayed"
	ShipmentException      ShipmentStatus = "exception"
)

var ShipmentStatuses = []ShipmentStatus{
	ShipmentPending, ShipmentPickedUp, ShipmentInTransit, ShipmentOutForDelivery,
	ShipmentDelivered, ShipmentDelayed, ShipmentException,
}

func (s ShipmentStatus) Valid() bool {
	for _, v := range ShipmentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ValidEvent reports whether s may be recorded by a tracking event.
// pending is only ever the initial projection.
func (s ShipmentStatus) ValidEvent() bool {
	return s.Valid() && s != ShipmentPending
}

// progress ranks the main-line statuses; interruptions are unranked.
var progress = map[ShipmentStatus]int{
	ShipmentPending:        0,
	ShipmentPickedUp:       1,
	ShipmentInTransit:      2,
	ShipmentOutForDelivery: 3,
	ShipmentDelivered:      4,
}

var (
	ErrShipmentDelivered = errors.New("shipment already delivered")
	ErrShipmentRegress   = errors.New("shipment status cannot move backwards")
)

type ServiceTier string

const (
	TierStandard      ServiceTier = "standard"
	TierExpress       ServiceTier = "express"
	TierOvernight     ServiceTier = "overnight"
	TierInternational ServiceTier = "international"
)

func (t ServiceTier) Valid() bool {
	switch t {
	case TierStandard, TierExpress, TierOvernight, TierInternational:
		return true
	}
	return false
}

type ServiceLevel struct {
	Tier              ServiceTier `json:"tier" bson:"tier"`
	Cost              Money       `json:"cost" bson:"cost"`
	EstimatedDelivery *time.Time  `json:"estimatedDelivery,omitempty" bson:"estimated_delivery,omitempty"`
}

type TrackingEvent struct {
	Timestamp   time.Time      `json:"timestamp" bson:"timestamp"`
	Status      ShipmentStatus `json:"status" bson:"status"`
	Location    string         `json:"location" bson:"location"`
	Description string         `json:"description,omitempty" bson:"description,omitempty"`
	RecordedBy  string         `json:"recordedBy,omitempty" bson:"recorded_by,omitempty"`
}

type Note struct {
	ID        string    `json:"id" bson:"id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Text      string    `json:"note" bson:"text"`
	AddedBy   string    `json:"addedBy" bson:"added_by"`
}

// ShipmentDetails is everything about a shipment that may be replaced
// wholesale. Status, location and history are deliberately absent.
type ShipmentDetails struct {
	Sender    Party        `json:"sender" bson:"sender"`
	Recipient Party        `json:"recipient" bson:"recipient"`
	Package   Package      `json:"package" bson:"package"`
	Service   ServiceLevel `json:"service" bson:"service"`
	Driver    Driver       `json:"driver" bson:"driver"`
}

type Shipment struct {
	ID             string
	TrackingNumber string
	ShipmentDetails

	Status          ShipmentStatus
	CurrentLocation string
	Events          []TrackingEvent
	Notes           []Note

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// Append records ev and projects it onto Status and CurrentLocation.
func (s *Shipment) Append(ev TrackingEvent) {
	s.Events = append(s.Events, ev)
	s.Status = ev.Status
	s.CurrentLocation = ev.Location
}

// CheckForward enforces forward-only progress: delayed and exception may
// interleave from any undelivered state, main-line statuses never go below the
// furthest one already reached, and delivered is terminal.
func (s Shipment) CheckForward(next ShipmentStatus) error {
	if s.Status == ShipmentDelivered {
		return ErrShipmentDelivered
	}
	rank, ranked := progress[next]
	if !ranked {
		return nil
	}
	if rank < s.furthest() {
		return ErrShipmentRegress
	}
	return nil
}

func (s Shipment) furthest() int {
	best := 0
	for _, ev := range s.Events {
		if r, ok := progress[ev.Status]; ok && r > best {
			best = r
		}
	}
	return best
}

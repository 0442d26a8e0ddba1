package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type shipmentsRepo struct {
	col *mongo.Collection
}

// shipmentDoc keeps events and notes embedded so an append is a single
// document update.
type shipmentDoc struct {
	ID                     string `bson:"_id"`
	TrackingNumber         string `bson:"tracking_number"`
	domain.ShipmentDetails `bson:",inline"`

	Status          domain.ShipmentStatus  `bson:"status"`
	CurrentLocation string                 `bson:"current_location"`
	Events          []domain.TrackingEvent `bson:"events"`
	Notes           []domain.Note          `bson:"notes"`

	CreatedBy string    `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Version   int64     `bson:"version"`
}

func toShipmentDoc(s domain.Shipment) shipmentDoc {
	d := shipmentDoc(s)
	if d.Events == nil {
		d.Events = []domain.TrackingEvent{}
	}
	if d.Notes == nil {
		d.Notes = []domain.Note{}
	}
	if d.Version == 0 {
		d.Version = 1
	}
	return d
}

func (d shipmentDoc) toDomain() domain.Shipment {
	s := domain.Shipment(d)
	if s.Events == nil {
		s.Events = []domain.TrackingEvent{}
	}
	if s.Notes == nil {
		s.Notes = []domain.Note{}
	}
	return s
}

func (r *shipmentsRepo) CreateShipment(ctx context.Context, s domain.Shipment) error {
	return insertOne(ctx, r.col, toShipmentDoc(s))
}

func (r *shipmentsRepo) GetShipmentByID(ctx context.Context, id string) (domain.Shipment, error) {
	d, err := findOne[shipmentDoc](ctx, r.col, bson.D{{Key: "_id", Value: id}})
	return d.toDomain(), err
}

func (r *shipmentsRepo) GetShipmentByTrackingNumber(ctx context.Context, number string) (domain.Shipment, error) {
	d, err := findOne[shipmentDoc](ctx, r.col, bson.D{{Key: "tracking_number", Value: number}})
	return d.toDomain(), err
}

func (r *shipmentsRepo) AppendEvent(ctx context.Context, id string, version int64, ev domain.TrackingEvent) error {
	return updateVersioned(ctx, r.col, id, version, bson.D{
		{Key: "$push", Value: bson.D{{Key: "events", Value: ev}}},
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: ev.Status},
			{Key: "current_location", Value: ev.Location},
			{Key: "updated_at", Value: ev.Timestamp},
		}},
	})
}

func (r *shipmentsRepo) ReplaceDetails(
	ctx context.Context,
	id string,
	version int64,
	d domain.ShipmentDetails,
	at time.Time,
) error {
	return updateVersioned(ctx, r.col, id, version, bson.D{{Key: "$set", Value: bson.D{
		{Key: "sender", Value: d.Sender},
		{Key: "recipient", Value: d.Recipient},
		{Key: "package", Value: d.Package},
		{Key: "service", Value: d.Service},
		{Key: "driver", Value: d.Driver},
		{Key: "updated_at", Value: at},
	}}})
}

func (r *shipmentsRepo) AddNote(ctx context.Context, id string, n domain.Note) error {
	res, err := r.col.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{
			{Key: "$push", Value: bson.D{{Key: "notes", Value: n}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: n.Timestamp}}},
		},
	)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *shipmentsRepo) DeleteShipment(ctx context.Context, id string) error {
	return deleteByID(ctx, r.col, id)
}

func (r *shipmentsRepo) ListShipments(ctx context.Context, f store.ShipmentFilter) ([]domain.Shipment, int, error) {
	filter := bson.D{}
	if f.Status != "" {
		filter = bson.D{{Key: "status", Value: f.Status}}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError(err)
	}
	docs, err := findMany[shipmentDoc](ctx, r.col, filter, pageOptions(f.Page))
	if err != nil {
		return nil, 0, err
	}
	shipments := make([]domain.Shipment, 0, len(docs))
	for _, d := range docs {
		shipments = append(shipments, d.toDomain())
	}
	return shipments, int(total), nil
}

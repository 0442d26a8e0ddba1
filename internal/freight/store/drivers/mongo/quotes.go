package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type quotesRepo struct {
	col *mongo.Collection
}

type quoteDoc struct {
	ID                  string             `bson:"_id"`
	QuoteNumber         string             `bson:"quote_number"`
	Customer            domain.Contact     `bson:"customer"`
	Origin              domain.Location    `bson:"origin"`
	Destination         domain.Location    `bson:"destination"`
	Package             domain.Package     `bson:"package"`
	ServiceType         domain.ServiceType `bson:"service_type"`
	Urgency             domain.Urgency     `bson:"urgency"`
	PreferredDate       *time.Time         `bson:"preferred_date,omitempty"`
	SpecialInstructions string             `bson:"special_instructions,omitempty"`
	Status              domain.QuoteStatus `bson:"status"`
	StatusOverride      bool               `bson:"status_override"`
	QuotedPrice         domain.Money       `bson:"quoted_price"`
	EstimatedDelivery   *time.Time         `bson:"estimated_delivery,omitempty"`
	QuotedBy            string             `bson:"quoted_by,omitempty"`
	QuotedAt            *time.Time         `bson:"quoted_at,omitempty"`
	AdminNotes          string             `bson:"admin_notes,omitempty"`
	ExpiresAt           time.Time          `bson:"expires_at"`
	CreatedAt           time.Time          `bson:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at"`
	Version             int64              `bson:"version"`
}

func (r *quotesRepo) CreateQuote(ctx context.Context, q domain.Quote) error {
	if q.Version == 0 {
		q.Version = 1
	}
	return insertOne(ctx, r.col, quoteDoc(q))
}

func (r *quotesRepo) GetQuoteByID(ctx context.Context, id string) (domain.Quote, error) {
	d, err := findOne[quoteDoc](ctx, r.col, bson.D{{Key: "_id", Value: id}})
	return domain.Quote(d), err
}

func (r *quotesRepo) GetQuoteByNumber(ctx context.Context, number string) (domain.Quote, error) {
	d, err := findOne[quoteDoc](ctx, r.col, bson.D{{Key: "quote_number", Value: number}})
	return domain.Quote(d), err
}

func (r *quotesRepo) UpdateQuote(ctx context.Context, q domain.Quote) error {
	return updateVersioned(ctx, r.col, q.ID, q.Version, bson.D{{Key: "$set", Value: bson.D{
		{Key: "customer", Value: q.Customer},
		{Key: "origin", Value: q.Origin},
		{Key: "destination", Value: q.Destination},
		{Key: "package", Value: q.Package},
		{Key: "service_type", Value: q.ServiceType},
		{Key: "urgency", Value: q.Urgency},
		{Key: "preferred_date", Value: q.PreferredDate},
		{Key: "special_instructions", Value: q.SpecialInstructions},
		{Key: "status", Value: q.Status},
		{Key: "status_override", Value: q.StatusOverride},
		{Key: "quoted_price", Value: q.QuotedPrice},
		{Key: "estimated_delivery", Value: q.EstimatedDelivery},
		{Key: "quoted_by", Value: q.QuotedBy},
		{Key: "quoted_at", Value: q.QuotedAt},
		{Key: "admin_notes", Value: q.AdminNotes},
		{Key: "updated_at", Value: q.UpdatedAt},
	}}})
}

func (r *quotesRepo) DeleteQuote(ctx context.Context, id string) error {
	return deleteByID(ctx, r.col, id)
}

// effectiveStatusFilter matches quotes whose status as observed at now is s.
func effectiveStatusFilter(s domain.QuoteStatus, now time.Time) bson.D {
	if s == domain.QuoteExpired {
		return bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "status", Value: domain.QuoteExpired}},
			bson.D{
				{Key: "status_override", Value: false},
				{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now}}},
			},
		}}}
	}
	return bson.D{
		{Key: "status", Value: s},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "status_override", Value: true}},
			bson.D{{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now}}}},
		}},
	}
}

func (r *quotesRepo) ListQuotes(ctx context.Context, f store.QuoteFilter) ([]domain.Quote, int, error) {
	filter := bson.D{}
	if f.Status != "" {
		filter = effectiveStatusFilter(f.Status, f.Now)
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapError(err)
	}
	docs, err := findMany[quoteDoc](ctx, r.col, filter, pageOptions(f.Page))
	if err != nil {
		return nil, 0, err
	}
	quotes := make([]domain.Quote, 0, len(docs))
	for _, d := range docs {
		quotes = append(quotes, domain.Quote(d))
	}
	return quotes, int(total), nil
}

func (r *quotesRepo) QuoteStats(ctx context.Context, now, monthStart time.Time) (store.QuoteStats, error) {
	stats := store.QuoteStats{ByStatus: make(map[domain.QuoteStatus]int, len(domain.QuoteStatuses))}
	for _, s := range domain.QuoteStatuses {
		n, err := r.col.CountDocuments(ctx, effectiveStatusFilter(s, now))
		if err != nil {
			return stats, wrapError(err)
		}
		stats.ByStatus[s] = int(n)
		stats.Total += int(n)
	}

	n, err := r.col.CountDocuments(ctx, bson.D{{Key: "created_at", Value: bson.D{{Key: "$gte", Value: monthStart}}}})
	if err != nil {
		return stats, wrapError(err)
	}
	stats.ThisMonth = int(n)
	return stats, nil
}

func (r *quotesRepo) ExpireQuotes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.D{
			{Key: "status_override", Value: false},
			{Key: "status", Value: bson.D{{Key: "$ne", Value: domain.QuoteExpired}}},
			{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now}}},
		},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "status", Value: domain.QuoteExpired},
				{Key: "updated_at", Value: now},
			}},
			{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
		},
	)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.ModifiedCount, nil
}

// Package mongo is the MongoDB store driver. Documents are mapped through
// private *Doc types so the domain package stays free of storage concerns.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	colUsers     = "users"
	colCodes     = "one_time_codes"
	colQuotes    = "quotes"
	colShipments = "shipments"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri and selects dbName. Indexes are created by
// ApplyMigrations.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) Users() store.Users         { return &usersRepo{col: s.col(colUsers)} }
func (s *Store) Codes() store.Codes         { return &codesRepo{col: s.col(colCodes)} }
func (s *Store) Quotes() store.Quotes       { return &quotesRepo{col: s.col(colQuotes)} }
func (s *Store) Shipments() store.Shipments { return &shipmentsRepo{col: s.col(colShipments)} }

// ApplyMigrations creates the indexes the repositories rely on. Unique
// indexes back the identifier and login uniqueness rules; the TTL index lets
// the server reap expired codes on its own.
func (s *Store) ApplyMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	type idx struct {
		col    string
		keys   bson.D
		unique bool
		ttl    bool
	}

	indexes := []idx{
		{colUsers, bson.D{{Key: "email", Value: 1}}, true, false},
		{colUsers, bson.D{{Key: "username", Value: 1}}, true, false},
		{colUsers, bson.D{{Key: "created_at", Value: -1}}, false, false},

		{colCodes, bson.D{{Key: "expires_at", Value: 1}}, false, true},

		{colQuotes, bson.D{{Key: "quote_number", Value: 1}}, true, false},
		{colQuotes, bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}, false, false},
		{colQuotes, bson.D{{Key: "created_at", Value: -1}}, false, false},

		{colShipments, bson.D{{Key: "tracking_number", Value: 1}}, true, false},
		{colShipments, bson.D{{Key: "status", Value: 1}}, false, false},
		{colShipments, bson.D{{Key: "created_at", Value: -1}}, false, false},
	}

	for _, ix := range indexes {
		opts := options.Index()
		if ix.unique {
			opts.SetUnique(true)
		}
		if ix.ttl {
			opts.SetExpireAfterSeconds(0)
		}
		if _, err := s.col(ix.col).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: ix.keys, Options: opts}); err != nil {
			return fmt.Errorf("mongo: create index on %s: %w", ix.col, err)
		}
	}

	// Users written before versioning start at 1, like fresh inserts.
	if _, err := s.col(colUsers).UpdateMany(ctx,
		bson.D{{Key: "version", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "version", Value: int64(1)}}}},
	); err != nil {
		return fmt.Errorf("mongo: backfill user versions: %w", err)
	}
	return nil
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (T, error) {
	var result T
	if err := col.FindOne(ctx, filter).Decode(&result); err != nil {
		return result, wrapError(err)
	}
	return result, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	results := []T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, cursor.Err()
}

func insertOne(ctx context.Context, col *mongo.Collection, doc any) error {
	_, err := col.InsertOne(ctx, doc)
	return wrapError(err)
}

func deleteByID(ctx context.Context, col *mongo.Collection, id string) error {
	res, err := col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func updateFields(ctx context.Context, col *mongo.Collection, id string, set bson.D) error {
	res, err := col.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// updateVersioned applies update to the document with the given id and
// version, bumping the version. A miss is resolved to ErrConflict or
// ErrNotFound depending on whether the document still exists.
func updateVersioned(ctx context.Context, col *mongo.Collection, id string, version int64, update bson.D) error {
	update = append(update, bson.E{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}})
	filter := bson.D{{Key: "_id", Value: id}}
	if version != store.AnyVersion {
		filter = append(filter, bson.E{Key: "version", Value: version})
	}
	res, err := col.UpdateOne(ctx, filter, update)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := col.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func pageOptions(p store.Page) *options.FindOptionsBuilder {
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(p.Offset())).
		SetLimit(int64(p.Limit))
}

package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type codesRepo struct {
	col *mongo.Collection
}

type codeDoc struct {
	Key       string             `bson:"_id"`
	Email     string             `bson:"email"`
	Purpose   domain.CodePurpose `bson:"purpose"`
	CodeHash  string             `bson:"code_hash"`
	Attempts  int                `bson:"attempts"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

// codeKey gives each (email, purpose) pair a single document.
func codeKey(email string, purpose domain.CodePurpose) string {
	return string(purpose) + ":" + email
}

func (r *codesRepo) IssueCode(ctx context.Context, c domain.OneTimeCode, notAfter time.Time) error {
	// The filter only matches an existing code old enough to be replaced. A
	// newer one makes the upsert collide on _id, which is the cooldown.
	_, err := r.col.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: codeKey(c.Email, c.Purpose)},
			{Key: "created_at", Value: bson.D{{Key: "$lte", Value: notAfter}}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "email", Value: c.Email},
			{Key: "purpose", Value: c.Purpose},
			{Key: "code_hash", Value: c.CodeHash},
			{Key: "attempts", Value: 0},
			{Key: "created_at", Value: c.CreatedAt},
			{Key: "expires_at", Value: c.ExpiresAt},
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrCooldown
	}
	return wrapError(err)
}

func (r *codesRepo) GetCode(ctx context.Context, email string, purpose domain.CodePurpose) (domain.OneTimeCode, error) {
	d, err := findOne[codeDoc](ctx, r.col, bson.D{{Key: "_id", Value: codeKey(email, purpose)}})
	if err != nil {
		return domain.OneTimeCode{}, err
	}
	return domain.OneTimeCode{
		Email:     d.Email,
		Purpose:   d.Purpose,
		CodeHash:  d.CodeHash,
		Attempts:  d.Attempts,
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
	}, nil
}

func (r *codesRepo) ConsumeCode(
	ctx context.Context,
	email string,
	purpose domain.CodePurpose,
	codeHash string,
	now time.Time,
) error {
	res, err := r.col.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: codeKey(email, purpose)},
		{Key: "code_hash", Value: codeHash},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now}}},
	})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *codesRepo) RecordFailedAttempt(
	ctx context.Context,
	email string,
	purpose domain.CodePurpose,
	maxAttempts int,
) error {
	key := codeKey(email, purpose)
	if _, err := r.col.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "attempts", Value: 1}}}},
	); err != nil {
		return wrapError(err)
	}
	_, err := r.col.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: key},
		{Key: "attempts", Value: bson.D{{Key: "$gte", Value: maxAttempts}}},
	})
	return wrapError(err)
}

func (r *codesRepo) DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now}}}})
	if err != nil {
		return 0, wrapError(err)
	}
	return res.DeletedCount, nil
}

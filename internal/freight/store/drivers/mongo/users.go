package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type usersRepo struct {
	col *mongo.Collection
}

type userDoc struct {
	ID            string               `bson:"_id"`
	Email         string               `bson:"email"`
	Username      string               `bson:"username"`
	FirstName     string               `bson:"first_name"`
	LastName      string               `bson:"last_name"`
	FullName      string               `bson:"full_name"`
	Phone         string               `bson:"phone"`
	Address       domain.Location      `bson:"address"`
	PasswordHash  string               `bson:"password_hash"`
	Role          domain.Role          `bson:"role"`
	AccountStatus domain.AccountStatus `bson:"account_status"`
	KYCStatus     domain.KYCStatus     `bson:"kyc_status"`
	KYCReviewedBy string               `bson:"kyc_reviewed_by"`
	KYCReviewedAt *time.Time           `bson:"kyc_reviewed_at,omitempty"`
	MFAEnabled    bool                 `bson:"mfa_enabled"`
	MFASecret     *string              `bson:"mfa_secret,omitempty"`
	EmailVerified bool                 `bson:"email_verified"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
	Version       int64                `bson:"version"`
}

func toUserDoc(u domain.User) userDoc {
	return userDoc(u)
}

func (d userDoc) toDomain() domain.User {
	return domain.User(d)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	d, err := findOne[userDoc](ctx, r.col, bson.D{{Key: "_id", Value: id}})
	return d.toDomain(), err
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	d, err := findOne[userDoc](ctx, r.col, bson.D{{Key: "email", Value: email}})
	return d.toDomain(), err
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	d, err := findOne[userDoc](ctx, r.col, bson.D{{Key: "username", Value: username}})
	return d.toDomain(), err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	u.Version = max(u.Version, 1)
	return insertOne(ctx, r.col, toUserDoc(u))
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	return updateVersioned(ctx, r.col, u.ID, u.Version, bson.D{{Key: "$set", Value: bson.D{
		{Key: "email", Value: u.Email},
		{Key: "username", Value: u.Username},
		{Key: "first_name", Value: u.FirstName},
		{Key: "last_name", Value: u.LastName},
		{Key: "full_name", Value: u.FullName},
		{Key: "phone", Value: u.Phone},
		{Key: "address", Value: u.Address},
		{Key: "role", Value: u.Role},
		{Key: "account_status", Value: u.AccountStatus},
		{Key: "kyc_status", Value: u.KYCStatus},
		{Key: "kyc_reviewed_by", Value: u.KYCReviewedBy},
		{Key: "kyc_reviewed_at", Value: u.KYCReviewedAt},
		{Key: "mfa_enabled", Value: u.MFAEnabled},
		{Key: "mfa_secret", Value: u.MFASecret},
		{Key: "email_verified", Value: u.EmailVerified},
		{Key: "updated_at", Value: u.UpdatedAt},
	}}})
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	return updateFields(ctx, r.col, userID, bson.D{
		{Key: "password_hash", Value: hash},
		{Key: "updated_at", Value: at},
	})
}

func (r *usersRepo) ListUsers(ctx context.Context, p store.Page) ([]domain.User, int, error) {
	total, err := r.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, wrapError(err)
	}
	docs, err := findMany[userDoc](ctx, r.col, bson.D{}, pageOptions(p))
	if err != nil {
		return nil, 0, err
	}
	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, int(total), nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return deleteByID(ctx, r.col, userID)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return false, wrapError(err)
	}
	return n == 0, nil
}

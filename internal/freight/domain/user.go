package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type AccountStatus string

const (
	AccountActive      AccountStatus = "active"
	AccountPending     AccountStatus = "pending"
	AccountSuspended   AccountStatus = "suspended"
	AccountDeactivated AccountStatus = "deactivated"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountPending, AccountSuspended, AccountDeactivated:
		return true
	}
	return false
}

// CanLogin reports whether credentials for this account may open a session.
func (s AccountStatus) CanLogin() bool {
	return s == AccountActive || s == AccountPending
}

type KYCStatus string

const (
	KYCNotSubmitted KYCStatus = "notSubmitted"
	KYCPending      KYCStatus = "pending"
	KYCApproved     KYCStatus = "approved"
	KYCRejected     KYCStatus = "rejected"
)

func (s KYCStatus) Valid() bool {
	switch s {
	case KYCNotSubmitted, KYCPending, KYCApproved, KYCRejected:
		return true
	}
	return false
}

type User struct {
	ID            string
	Email         string // stored lower-cased
	Username      string
	FirstName     string
	LastName      string
	FullName      string // derived by SetName
	Phone         string
	Address       Location
	PasswordHash  string // argon2id PHC or legacy bcrypt
	Role          Role
	AccountStatus AccountStatus
	KYCStatus     KYCStatus
	KYCReviewedBy string
	KYCReviewedAt *time.Time
	MFAEnabled    bool
	MFASecret     *string // sealed TOTP secret
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64 // bumped by every profile or status write
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// SetName updates the name parts and recomputes FullName.
func (u *User) SetName(first, last string) {
	u.FirstName = strings.TrimSpace(first)
	u.LastName = strings.TrimSpace(last)
	u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MaskEmail keeps the first two characters of the local part:
// "user@x.com" becomes "us***@x.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if len(local) > 2 {
		local = local[:2]
	}
	return local + "***@" + domain
}

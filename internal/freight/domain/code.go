package domain

import "time"

// CodePurpose scopes a one-time code; each (email, purpose) has at most one
// live code.
type CodePurpose string

const (
	PurposePasswordReset     CodePurpose = "password_reset"
	PurposeEmailVerification CodePurpose = "email_verification"
)

func (p CodePurpose) Valid() bool {
	return p == PurposePasswordReset || p == PurposeEmailVerification
}

type OneTimeCode struct {
	Email     string
	Purpose   CodePurpose
	CodeHash  string // SHA-256 fingerprint, the plaintext is never stored
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Live reports whether the code is still inside its TTL window at now.
func (c OneTimeCode) Live(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

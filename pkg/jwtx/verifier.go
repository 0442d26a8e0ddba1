package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates EdDSA tokens against a KeySet.
type Verifier struct {
	Keys   *KeySet
	Issuer string
	Leeway time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewVerifier returns a verifier with a 30 second clock-skew allowance.
func NewVerifier(keys *KeySet, issuer string) *Verifier {
	return &Verifier{Keys: keys, Issuer: issuer, Leeway: 30 * time.Second}
}

// Verify checks the signature, issuer and validity window of tokenStr.
func (v *Verifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		// exp/nbf are checked below against the injectable clock.
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKID
		}
		pub, err := v.Keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
		}
		return pub, nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownKID) {
			return Claims{}, ErrUnknownKID
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Claims{}, ErrMalformed
	}
	if err := claims.ValidateIssuer(v.Issuer); err != nil {
		return Claims{}, err
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	if err := claims.ValidateExpiry(now(), v.Leeway); err != nil {
		return Claims{}, err
	}
	return *claims, nil
}

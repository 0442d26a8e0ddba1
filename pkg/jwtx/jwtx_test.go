package jwtx_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/aussiebroadwan/freightdesk/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T) *jwtx.Signer {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	s, err := jwtx.NewSigner(key)
	require.NoError(t, err)
	return s
}

func TestSignAndVerify(t *testing.T) {
	signer := newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	require.True(t, keys.IsReady())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	claims := jwtx.NewSessionClaims("01HUSER", "dispatch", true, "freightdesk", time.Hour, now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	v := jwtx.NewVerifier(keys, "freightdesk")
	v.Now = func() time.Time { return now.Add(30 * time.Minute) }

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01HUSER", got.Subject)
	require.Equal(t, "dispatch", got.Username)
	require.True(t, got.IsAdmin)

	t.Run("expired", func(t *testing.T) {
		v.Now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := jwtx.NewVerifier(keys, "someone-else")
		other.Now = func() time.Time { return now }
		_, err := other.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := jwtx.NewVerifier(jwtx.NewKeySet(), "").Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := v.Verify(token[:len(token)-2] + "xx")
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestKeySet_PublicJWKS(t *testing.T) {
	a, b := newSigner(t), newSigner(t)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(a))
	require.NoError(t, keys.AddSigner(b))
	require.NoError(t, keys.AddSigner(a))

	jwks := keys.PublicJWKS()
	require.Len(t, jwks.Keys, 2)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, a.KID(), jwks.Keys[0].Kid)

	require.Error(t, keys.AddJWK(jwtx.JWK{Kty: "RSA"}))
}

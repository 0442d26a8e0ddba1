package cryptox

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	SetPepper("test-pepper")
	// Keep hashing cheap in tests.
	SetArgon2Params(Argon2Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})
	os.Exit(m.Run())
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"unicode password", "пароль密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, VerifyPassword(tt.password, hash))
			require.ErrorIs(t, VerifyPassword(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	a, err := HashPassword("samepassword")
	require.NoError(t, err)
	b, err := HashPassword("samepassword")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPassword_PepperChange(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)

	SetPepper("rotated")
	t.Cleanup(func() { SetPepper("test-pepper") })

	require.ErrorIs(t, VerifyPassword("secret1", hash), ErrPasswordMismatch)
}

func TestVerifyPassword_Bcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, VerifyPassword("hunter22", string(legacy)))
	require.ErrorIs(t, VerifyPassword("hunter23", string(legacy)), ErrPasswordMismatch)
	require.True(t, NeedsRehash(string(legacy)))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	tests := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
	}
	for _, h := range tests {
		require.ErrorIs(t, VerifyPassword("x", h), ErrUnsupportedHash, h)
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	require.False(t, NeedsRehash(hash))

	SetArgon2Params(Argon2Params{MemoryKiB: 2048, Iterations: 1, Parallelism: 1})
	t.Cleanup(func() { SetArgon2Params(Argon2Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1}) })
	require.True(t, NeedsRehash(hash))
}

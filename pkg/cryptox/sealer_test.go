package cryptox_test

import (
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("master"))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)
	require.NotContains(t, sealed, "JBSWY3DPEHPK3PXP")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", string(plain))

	other, err := cryptox.NewSealer([]byte("other"))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	require.Error(t, err)

	_, err = s.Open("AA")
	require.ErrorIs(t, err, cryptox.ErrSealedTooShort)
}

func TestLoadSealer_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealer.key")

	a, err := cryptox.LoadSealer(path)
	require.NoError(t, err)
	sealed, err := a.Seal([]byte("x"))
	require.NoError(t, err)

	b, err := cryptox.LoadSealer(path)
	require.NoError(t, err)
	plain, err := b.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "x", string(plain))
}

package idx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/freightdesk/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = idx.Parse("not-a-ulid")
	require.ErrorIs(t, err, idx.ErrInvalid)
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewAt(tm)
	require.WithinDuration(t, tm, id.Time(), time.Millisecond)
}

func TestNumber(t *testing.T) {
	n := idx.Number("qte")
	require.Len(t, n, 3+26)
	require.True(t, idx.HasPrefix(n, "QTE"))
	require.False(t, idx.HasPrefix(n, "SHP"))
	require.False(t, idx.HasPrefix("QTE123", "QTE"))
}

// Numbers minted concurrently inside the same millisecond must still differ.
func TestNumberConcurrentUniqueness(t *testing.T) {
	const n = 10000
	out := make(chan string, n)

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out <- idx.Number("SHP")
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[string]struct{}, n)
	for v := range out {
		_, dup := seen[v]
		require.False(t, dup, "duplicate number %s", v)
		seen[v] = struct{}{}
	}
	require.Len(t, seen, n)
}

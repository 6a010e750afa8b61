package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	a := New()
	uri, err := a.Archive(context.Background(), "tournaments/tournament=1843", "<html></html>")
	require.NoError(t, err)
	require.Equal(t, "memory://tournaments/tournament=1843", uri)

	html, ok := a.Get("tournaments/tournament=1843")
	require.True(t, ok)
	require.Equal(t, "<html></html>", html)
	require.Equal(t, 1, a.Len())
}

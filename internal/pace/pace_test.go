package pace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacer_DelaysAreIndependent(t *testing.T) {
	t.Parallel()

	p := New(500*time.Millisecond, 2*time.Second)
	require.Equal(t, 500*time.Millisecond, p.Delay(Steady))
	require.Equal(t, 2*time.Second, p.Delay(PostError))
}

func TestPacer_WaitHonorsCancellation(t *testing.T) {
	t.Parallel()

	p := New(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Wait(ctx, Steady)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestPacer_ZeroDelayReturnsImmediately(t *testing.T) {
	t.Parallel()

	p := New(0, 0)
	require.NoError(t, p.Wait(context.Background(), Steady))
	require.NoError(t, p.Wait(context.Background(), PostError))
}

func TestPacer_ObserverSeesCompletedWaits(t *testing.T) {
	t.Parallel()

	var gotKind Kind
	var gotDelay time.Duration
	p := New(time.Millisecond, 5*time.Millisecond, WithObserver(func(kind Kind, d time.Duration) {
		gotKind = kind
		gotDelay = d
	}))

	require.NoError(t, p.Wait(context.Background(), PostError))
	require.Equal(t, PostError, gotKind)
	require.Equal(t, 5*time.Millisecond, gotDelay)
}

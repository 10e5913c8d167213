package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMapKeepsOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	got, err := Map(context.Background(), 3, items, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{50, 10, 40, 20, 30}, got)
}

func TestMapBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 32)

	_, err := Map(context.Background(), 4, items, func(context.Context, int) (struct{}, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestMapFirstErrorCancels(t *testing.T) {
	boom := errors.New("boom")
	var cancelled, finished int32
	running := make(chan struct{})

	_, err := Map(context.Background(), 2, []int{0, 1, 2, 3, 4, 5}, func(ctx context.Context, n int) (int, error) {
		if n == 0 {
			<-running
			return 0, boom
		}
		if n == 1 {
			close(running)
		}
		select {
		case <-ctx.Done():
			atomic.AddInt32(&cancelled, 1)
			return 0, ctx.Err()
		case <-time.After(time.Second):
			atomic.AddInt32(&finished, 1)
			return n, nil
		}
	})
	require.ErrorIs(t, err, boom)
	require.Positive(t, atomic.LoadInt32(&cancelled))
	require.Zero(t, atomic.LoadInt32(&finished))
}

func TestMapEmpty(t *testing.T) {
	got, err := Map(context.Background(), 0, nil, func(context.Context, int) (int, error) {
		return 0, errors.New("unreachable")
	})
	require.NoError(t, err)
	require.Empty(t, got)
}

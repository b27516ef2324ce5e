// SPDX-License-Identifier: MIT

package device_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/stretchr/testify/require"
)

// TestStreamIssueOrder verifies that tasks run strictly in submission order.
func TestStreamIssueOrder(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	defer func() { require.NoError(t, dc.Close()) }()

	var (
		mu  sync.Mutex
		got []int
	)
	const n = 500
	for i := 0; i < n; i++ {
		i := i
		_, err := dc.Submit("append", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, dc.Synchronize(context.Background()))

	require.Len(t, got, n)
	for i := range got {
		require.Equal(t, i, got[i])
	}
}

func TestTokenSeqAndWait(t *testing.T) {
	t.Parallel()
	s := device.NewStream(0, nil)
	defer func() { require.NoError(t, s.Close()) }()

	release := make(chan struct{})
	t1, err := s.Submit("blocked", func() error { <-release; return nil })
	require.NoError(t, err)
	t2, err := s.Submit("after", func() error { return nil })
	require.NoError(t, err)
	require.Less(t, t1.Seq(), t2.Seq())
	require.False(t, t2.Completed(), "ordered after a blocked task")
	require.Nil(t, t2.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, t2.Wait(ctx), context.DeadlineExceeded, "wait is bounded, work is not cancelled")

	close(release)
	require.NoError(t, t2.Wait(context.Background()))
	require.True(t, t1.Completed())
}

// TestStickyFault checks that a fault surfaces at the next sync and skips later work.
func TestStickyFault(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	defer dc.Close()

	boom := errors.New("boom")
	bad, err := dc.Submit("bad", func() error { return boom })
	require.NoError(t, err, "submission never reports execution faults")
	ran := false
	skipped, err := dc.Submit("later", func() error { ran = true; return nil })
	require.NoError(t, err)

	err = dc.Synchronize(context.Background())
	require.ErrorIs(t, err, device.ErrDeviceFault)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, bad.Err(), boom)
	require.ErrorIs(t, skipped.Err(), device.ErrSkipped)
	require.False(t, ran)

	// the fault is reported once; the stream is usable again
	require.NoError(t, dc.Synchronize(context.Background()))
	ok, err := dc.Submit("ok", func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, ok.Wait(context.Background()))
}

func TestPanicBecomesFault(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	defer dc.Close()

	_, err := dc.Submit("panics", func() error { panic("kernel bug") })
	require.NoError(t, err)
	err = dc.Synchronize(context.Background())
	require.ErrorIs(t, err, device.ErrDeviceFault)
	require.Contains(t, err.Error(), "kernel bug")
}

func TestSubmitAfterClose(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	require.NoError(t, dc.Close())
	require.NoError(t, dc.Close(), "Close is idempotent")
	_, err := dc.Submit("late", func() error { return nil })
	require.ErrorIs(t, err, device.ErrStreamClosed)
	require.ErrorIs(t, dc.Synchronize(context.Background()), device.ErrStreamClosed)
}

func TestParallelForCoversRange(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct{ workers, n int }{{1, 10}, {4, 10}, {16, 3}, {0, 1000}, {3, 0}} {
		hits := make([]int, tc.n)
		err := device.ParallelFor(tc.workers, tc.n, func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				hits[i]++
			}
			return nil
		})
		require.NoError(t, err)
		for i, h := range hits {
			require.Equal(t, 1, h, "workers=%d n=%d i=%d", tc.workers, tc.n, i)
		}
	}
}

func TestParallelForLowestErrorWins(t *testing.T) {
	t.Parallel()
	err := device.ParallelFor(4, 8, func(lo, hi int) error {
		if lo >= 2 {
			return errors.New("chunk starting at " + string(rune('0'+lo)))
		}
		return nil
	})
	require.EqualError(t, err, "chunk starting at 2")

	err = device.ParallelFor(2, 4, func(lo, hi int) error {
		var s []int
		_ = s[lo+10]
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "panic")
}

// TestSubmitOrSkip runs onSkip in place of a task skipped after a fault,
// and never for a task that executes.
func TestSubmitOrSkip(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	defer dc.Close()

	var skips []error
	_, err := dc.SubmitOrSkip("ran", func() error { return errors.New("boom") },
		func(err error) { skips = append(skips, err) })
	require.NoError(t, err)
	ran := false
	_, err = dc.SubmitOrSkip("later", func() error { ran = true; return nil },
		func(err error) { skips = append(skips, err) })
	require.NoError(t, err)

	require.ErrorIs(t, dc.Synchronize(context.Background()), device.ErrDeviceFault)
	require.False(t, ran)
	require.Len(t, skips, 1)
	require.ErrorIs(t, skips[0], device.ErrSkipped)
}

func TestNilBufferBytes(t *testing.T) {
	t.Parallel()
	var b *device.Buffer
	require.Nil(t, b.Bytes())
	require.Zero(t, b.Len())
}

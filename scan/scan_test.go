package scan

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRejectsInvalidInterval(t *testing.T) {
	s := New(&Config{
		Scan: func(context.Context) error { return nil },
	})

	assert.ErrorIs(t, s.Start(0), ErrInvalidInterval)
	assert.ErrorIs(t, s.Start(-time.Second), ErrInvalidInterval)
	assert.False(t, s.Active())
}

func TestScansImmediatelyAndRepeatedly(t *testing.T) {
	scans := make(chan struct{}, 16)

	s := New(&Config{
		Scan: func(context.Context) error {
			select {
			case scans <- struct{}{}:
			default:
			}
			return nil
		},
	})
	defer s.Close()

	require.NoError(t, s.Start(5*time.Millisecond))
	assert.True(t, s.Active())
	assert.Equal(t, 5*time.Millisecond, s.Interval())

	for i := 0; i < 3; i++ {
		select {
		case <-scans:
		case <-time.After(time.Second):
			t.Fatal("no scan")
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	var scans int32

	s := New(&Config{
		Scan: func(context.Context) error {
			atomic.AddInt32(&scans, 1)
			return nil
		},
	})

	require.NoError(t, s.Start(time.Hour))

	s.Stop()
	s.Stop()

	assert.False(t, s.Active())
	assert.Equal(t, time.Duration(0), s.Interval())

	s.Close()
}

func TestSecondLeaseCancelsFirst(t *testing.T) {
	cancelled := make(chan struct{})
	started := make(chan struct{})

	var calls int32

	s := New(&Config{
		Scan: func(ctx context.Context) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(started)

				// the first lease blocks until it is cancelled
				<-ctx.Done()
				close(cancelled)
			}
			return nil
		},
	})
	defer s.Close()

	require.NoError(t, s.Start(time.Hour))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first lease did not scan")
	}

	require.NoError(t, s.Start(time.Hour))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("first lease was not cancelled")
	}

	assert.True(t, s.Active())
	assert.Equal(t, time.Hour, s.Interval())
}

func TestScanErrorsDoNotStopTheLease(t *testing.T) {
	scans := make(chan struct{}, 16)

	s := New(&Config{
		Scan: func(context.Context) error {
			select {
			case scans <- struct{}{}:
			default:
			}
			return assert.AnError
		},
	})
	defer s.Close()

	require.NoError(t, s.Start(5*time.Millisecond))

	for i := 0; i < 2; i++ {
		select {
		case <-scans:
		case <-time.After(time.Second):
			t.Fatal("no scan")
		}
	}
}

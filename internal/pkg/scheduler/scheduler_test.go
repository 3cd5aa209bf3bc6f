// internal/pkg/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunsJobOnInterval(t *testing.T) {
	var runs atomic.Int32

	s := New(zap.NewNop())
	s.Add("tick", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.Wait()
}

func TestStopsOnContextCancel(t *testing.T) {
	var runs atomic.Int32

	s := New(zap.NewNop())
	s.Add("tick", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Wait()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, runs.Load())
}

func TestOverlappingTicksAreSkipped(t *testing.T) {
	var concurrent atomic.Int32
	var peak atomic.Int32

	s := New(zap.NewNop())
	s.Add("slow", 5*time.Millisecond, func(ctx context.Context) error {
		n := concurrent.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(30 * time.Millisecond)
		concurrent.Add(-1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	s.Wait()

	require.Equal(t, int32(1), peak.Load())
}

func TestJobFailureDoesNotStopLoop(t *testing.T) {
	var runs atomic.Int32

	s := New(zap.NewNop())
	s.Add("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("transient")
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.Wait()
}

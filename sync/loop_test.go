package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	smsync "github.com/smntfs/go-smntfs/sync"
	"github.com/smntfs/go-smntfs/testhelper"
)

func TestRunPeriodicContinuesAfterFailure(t *testing.T) {
	c := testhelper.NewFakeClock(time.Unix(0, 0))
	logger, hook := logtest.NewNullLogger()

	calls := make(chan int, 3)
	n := 0
	flush := func() error {
		n++
		calls <- n
		if n == 1 {
			return errors.New("device went away")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- smsync.RunPeriodic(ctx, time.Second, flush, smsync.WithClock(c), smsync.WithLogger(logger))
	}()

	for want := 1; want <= 3; want++ {
		c.WaitForTimers(1)
		c.Advance(time.Second)
		require.Equal(t, want, <-calls)
	}

	c.WaitForTimers(1)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "Periodic sync failed", entry.Message)
	require.EqualError(t, entry.Data[logrus.ErrorKey].(error), "device went away")
}

func TestRunPeriodicWaitsForInterval(t *testing.T) {
	c := testhelper.NewFakeClock(time.Unix(0, 0))
	flushed := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = smsync.RunPeriodic(ctx, 5*time.Second, func() error {
			flushed <- struct{}{}
			return nil
		}, smsync.WithClock(c))
	}()

	c.WaitForTimers(1)
	c.Advance(4 * time.Second)
	select {
	case <-flushed:
		t.Fatal("flushed before the interval elapsed")
	case <-time.After(10 * time.Millisecond):
	}
	c.Advance(time.Second)
	<-flushed
}

func TestRunPeriodicRejectsInterval(t *testing.T) {
	err := smsync.RunPeriodic(context.Background(), 0, func() error { return nil })
	require.EqualError(t, err, "periodic sync needs a positive interval, got 0s")
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsEveryInterval(t *testing.T) {
	clk := testclock.NewClock(epoch)
	runs := make(chan struct{}, 10)
	s := NewScheduler(SchedulerConfig{
		Name:     "test",
		Interval: time.Hour,
		Jitter:   time.Minute,
		Clock:    clk,
	}, func(ctx context.Context) error {
		runs <- struct{}{}
		return nil
	}, nil)
	s.jitter = func(time.Duration) time.Duration { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		require.NoError(t, clk.WaitAdvance(time.Hour, time.Second, 1))
		select {
		case <-runs:
		case <-time.After(time.Second):
			t.Fatalf("job did not run after interval %d", i+1)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	require.Empty(t, runs)
}

func TestScheduler_RunAtStartAndSurvivesJobErrors(t *testing.T) {
	clk := testclock.NewClock(epoch)
	runs := make(chan struct{}, 10)
	s := NewScheduler(SchedulerConfig{
		Interval:   time.Hour,
		RunAtStart: true,
		Clock:      clk,
	}, func(ctx context.Context) error {
		runs <- struct{}{}
		return errors.New("boom")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("job did not run at start")
	}

	require.NoError(t, clk.WaitAdvance(time.Hour, time.Second, 1))
	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("scheduler stopped after a failing job")
	}
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Jitter: -time.Second}, func(context.Context) error { return nil }, nil)
	require.Equal(t, 24*time.Hour, s.cfg.Interval)
	require.Zero(t, s.cfg.Jitter)
	require.NotNil(t, s.cfg.Clock)
	require.Zero(t, s.jitter(0))
}

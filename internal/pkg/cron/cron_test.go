package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTriggerRunsJob(t *testing.T) {
	s := New()
	done := make(chan struct{})
	s.Register(Job{
		Name:     "probe",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})

	require.NoError(t, s.Trigger("probe"))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered job never ran")
	}
}

func TestTriggerUnknownJob(t *testing.T) {
	s := New()
	require.Error(t, s.Trigger("nope"))
}

func TestTriggeredJobRunsOnSchedulerContext(t *testing.T) {
	s := New()
	got := make(chan error, 1)
	s.Register(Job{
		Name:     "backup",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			got <- ctx.Err()
			return nil
		},
	})
	s.Start(context.Background())

	// The request context that carried the trigger dies as soon as the
	// handler returns. The job must see the scheduler's context, still live.
	require.NoError(t, s.Trigger("backup"))

	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("triggered job never ran")
	}
}

func TestJobStatusAfterFailure(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "flaky",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	require.NoError(t, s.Trigger("flaky"))
	require.Eventually(t, func() bool {
		info, err := s.Get("flaky")
		return err == nil && info.Status == StatusReject && info.Message == "boom"
	}, 2*time.Second, 10*time.Millisecond)
}

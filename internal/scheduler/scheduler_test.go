package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterIsNoOpForDuplicateName(t *testing.T) {
	s := New(testLogger())
	var calls int32
	s.Register("queue-worker", "first", time.Hour, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	s.Register("queue-worker", "second", time.Minute, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	status := s.Status()
	require.Len(t, status, 1)
	require.Equal(t, "first", status[0].Description)
}

func TestJobRunsAndRecordsStatus(t *testing.T) {
	s := New(testLogger())
	var count int32
	s.Register("queue-worker", "tick", 20*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&count) >= 2 }, time.Second, 5*time.Millisecond)

	status := s.Status()
	require.Len(t, status, 1)
	require.Equal(t, "ok", status[0].LastStatus)
	require.False(t, status[0].LastRunAt.IsZero())
	require.False(t, status[0].NextRunAt().IsZero())

	cancel()
	s.Stop()
}

func TestJobRecordsErrorStatus(t *testing.T) {
	s := New(testLogger())
	s.Register("retention-cleanup", "sweep", 20*time.Millisecond, func(context.Context) error {
		return errors.New("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	require.Eventually(t, func() bool {
		status := s.Status()
		return len(status) == 1 && status[0].LastStatus != ""
	}, time.Second, 5*time.Millisecond)

	status := s.Status()
	require.Contains(t, status[0].LastStatus, "boom")

	cancel()
	s.Stop()
}

func TestNextRunAtZeroBeforeFirstRun(t *testing.T) {
	status := JobStatus{IntervalSeconds: 5}
	require.True(t, status.NextRunAt().IsZero())
}

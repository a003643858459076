package watcher

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortedUniqueDedupesAndOrders(t *testing.T) {
	out := sortedUnique([]uint32{5, 3, 5, 1, 9, 3})
	require.Equal(t, []uint32{1, 3, 5, 9}, out)
}

func TestSortedUniqueEmpty(t *testing.T) {
	require.Empty(t, sortedUnique(nil))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSupervisorStatusErrorsWhenNotRunning(t *testing.T) {
	sup := NewSupervisor(func(int64) Callbacks { return nil }, testLogger())
	_, err := sup.Status(42)
	require.Error(t, err)
}

func TestSupervisorIsScanningFalseWhenNotRunning(t *testing.T) {
	sup := NewSupervisor(func(int64) Callbacks { return nil }, testLogger())
	require.False(t, sup.IsScanning(42))
}

func TestSupervisorStopWatchOnUnknownMailboxIsNoop(t *testing.T) {
	sup := NewSupervisor(func(int64) Callbacks { return nil }, testLogger())
	sup.StopWatch(99)
}

func TestSupervisorStopAllOnEmptySupervisorReturnsImmediately(t *testing.T) {
	sup := NewSupervisor(func(int64) Callbacks { return nil }, testLogger())
	sup.StopAll()
}

package cli

import (
	"testing"

	"ordertracker/internal/api"

	"github.com/stretchr/testify/assert"
)

func TestOutputFormatterPrintModules(t *testing.T) {
	f := NewOutputFormatterWithColor("table", false, true)

	modules := []api.ModuleStatus{
		{Key: "imap_user", Name: "User Mailbox Watcher", Type: "provider", Version: "1.0", Enabled: true, IsConfigured: true},
	}

	err := f.PrintModules(modules)
	assert.NoError(t, err)
}

func TestOutputFormatterPrintWatchers(t *testing.T) {
	f := NewOutputFormatterWithColor("table", false, true)

	watchers := []api.WatcherStatus{
		{MailboxID: "mbox-1", Mode: "idle", LastSeenUID: 42},
	}

	err := f.PrintWatchers(watchers)
	assert.NoError(t, err)
}

func TestOutputFormatterPrintQueueStatus(t *testing.T) {
	f := NewOutputFormatterWithColor("table", false, true)

	err := f.PrintQueueStatus(&api.QueueStatus{Queued: 3, Processing: 1, Completed: 10, Failed: 0})
	assert.NoError(t, err)
}

func TestOutputFormatterPrintSuccess(t *testing.T) {
	f := NewOutputFormatterWithColor("table", false, true)
	f.PrintSuccess("module enabled")
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"", 5, ""},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		assert.Equal(t, tt.expected, result)
	}
}

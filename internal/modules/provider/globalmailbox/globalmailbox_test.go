package globalmailbox

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"ordertracker/internal/database"
	"ordertracker/internal/mail"
	"ordertracker/internal/secrets"
	"ordertracker/internal/watcher"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBox(t *testing.T) *secrets.Box {
	t.Helper()
	box, err := secrets.NewBox([]byte("01234567890123456789012345678901"))
	require.NoError(t, err)
	return box
}

func TestIsConfiguredFalseWithNoGlobalMailbox(t *testing.T) {
	db := openTestDB(t)
	m := New(db, testBox(t), watcher.NewSupervisor(func(int64) watcher.Callbacks { return nil }, testLogger()))

	require.False(t, m.IsConfigured())
}

func TestIsConfiguredTrueWithGlobalMailbox(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Mailboxes.Create(&database.Mailbox{IsGlobal: true, Host: "imap.example.com", Port: 993})
	require.NoError(t, err)

	m := New(db, testBox(t), watcher.NewSupervisor(func(int64) watcher.Callbacks { return nil }, testLogger()))
	require.True(t, m.IsConfigured())
}

func TestCallbacksLoadMailboxDecryptsPassword(t *testing.T) {
	db := openTestDB(t)
	box := testBox(t)
	encrypted, err := box.Encrypt("s3cr3t")
	require.NoError(t, err)

	id, err := db.Mailboxes.Create(&database.Mailbox{
		IsGlobal: true, Host: "imap.example.com", Port: 993, Username: "bot",
		EncryptedPassword: encrypted, WatchedFolder: sql.NullString{String: "INBOX", Valid: true},
	})
	require.NoError(t, err)

	m := New(db, box, watcher.NewSupervisor(func(int64) watcher.Callbacks { return nil }, testLogger()))
	mailbox, err := m.Callbacks().LoadMailbox(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", mailbox.Endpoint.Password)
	require.Equal(t, "INBOX", mailbox.Folder)
}

func TestRouteSkipsUnboundSender(t *testing.T) {
	db := openTestDB(t)
	m := New(db, testBox(t), watcher.NewSupervisor(func(int64) watcher.Callbacks { return nil }, testLogger()))

	decision, err := m.Callbacks().Route(context.Background(), WatcherID, &mail.ParsedMessage{From: "unknown@example.com"})
	require.NoError(t, err)
	require.True(t, decision.Skip)
}

func TestRouteMatchesBoundSender(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Users.Create(&database.User{Username: "bob", CredentialHash: "hash"})
	require.NoError(t, err)
	user, err := db.Users.GetByUsername("bob")
	require.NoError(t, err)

	require.NoError(t, db.GlobalSenderBindings.Create(&database.GlobalSenderBinding{
		UserID: user.ID, EmailAddress: "orders@example.com",
	}))

	m := New(db, testBox(t), watcher.NewSupervisor(func(int64) watcher.Callbacks { return nil }, testLogger()))
	decision, err := m.Callbacks().Route(context.Background(), WatcherID, &mail.ParsedMessage{From: "Orders@Example.com"})
	require.NoError(t, err)
	require.False(t, decision.Skip)
	require.Equal(t, user.ID, decision.UserID)
}

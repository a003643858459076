package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ordertracker/internal/database"
	"ordertracker/internal/notify"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIsConfiguredFalseWithNoDestinations(t *testing.T) {
	db := openTestDB(t)
	m := New(db)
	require.False(t, m.IsConfigured())
}

func TestNotifyFailsWithoutDestination(t *testing.T) {
	db := openTestDB(t)
	userID, err := db.Users.Create(&database.User{Username: "alice", CredentialHash: "hash"})
	require.NoError(t, err)

	m := New(db)
	err = m.Notify(context.Background(), userID, notify.EventNewOrder, notify.Data{Order: &database.Order{}})
	require.Error(t, err)
}

func TestNotifyPostsJSONPayload(t *testing.T) {
	var received payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	db := openTestDB(t)
	userID, err := db.Users.Create(&database.User{Username: "alice", CredentialHash: "hash"})
	require.NoError(t, err)
	require.NoError(t, db.NotificationConfigs.Upsert(&database.NotificationConfig{
		UserID: userID, ModuleKey: ModuleKey, EventType: string(notify.EventNewOrder),
		Enabled: true, Destination: server.URL,
	}))
	require.True(t, New(db).IsConfigured())

	order := &database.Order{
		ID:          7,
		OrderNumber: sql.NullString{String: "ORD-9", Valid: true},
		Status:      database.OrderStatusOrdered,
	}

	m := New(db)
	err = m.Notify(context.Background(), userID, notify.EventNewOrder, notify.Data{Order: order})
	require.NoError(t, err)

	require.Equal(t, string(notify.EventNewOrder), received.Event)
	require.Equal(t, int64(7), received.OrderID)
	require.NotNil(t, received.OrderNumber)
	require.Equal(t, "ORD-9", *received.OrderNumber)
}

func TestNotifyReturnsErrorOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	db := openTestDB(t)
	userID, err := db.Users.Create(&database.User{Username: "bob", CredentialHash: "hash"})
	require.NoError(t, err)
	require.NoError(t, db.NotificationConfigs.Upsert(&database.NotificationConfig{
		UserID: userID, ModuleKey: ModuleKey, EventType: string(notify.EventNewOrder),
		Enabled: true, Destination: server.URL,
	}))

	m := New(db)
	err = m.Notify(context.Background(), userID, notify.EventNewOrder, notify.Data{Order: &database.Order{}})
	require.Error(t, err)
}

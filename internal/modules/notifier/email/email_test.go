package email

import (
	"database/sql"
	"testing"
	"time"

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

func TestIsConfiguredFalseWithoutHost(t *testing.T) {
	db := openTestDB(t)
	m := New(db, nil)
	require.False(t, m.IsConfigured())
}

func TestIsConfiguredTrueWithHostAndFrom(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`UPDATE smtp_configs SET host = 'smtp.example.com', from_address = 'noreply@example.com' WHERE id = 1`)
	require.NoError(t, err)

	m := New(db, nil)
	require.True(t, m.IsConfigured())
}

func TestNotifyFailsWithoutDestination(t *testing.T) {
	db := openTestDB(t)
	userID, err := db.Users.Create(&database.User{Username: "alice", CredentialHash: "hash"})
	require.NoError(t, err)

	m := New(db, nil)
	err = m.Notify(nil, userID, notify.EventNewOrder, notify.Data{Order: &database.Order{}})
	require.Error(t, err)
}

func TestComposeIncludesOrderDetails(t *testing.T) {
	order := &database.Order{
		VendorName:     sql.NullString{String: "Amazon", Valid: true},
		OrderNumber:    sql.NullString{String: "ORD-1", Valid: true},
		TrackingNumber: sql.NullString{String: "1Z999", Valid: true},
		Carrier:        sql.NullString{String: "UPS", Valid: true},
		Status:         database.OrderStatusShipped,
		EstimatedDelivery: sql.NullTime{
			Time:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			Valid: true,
		},
	}

	subject, body := compose(notify.EventTrackingUpdate, notify.Data{Order: order})
	require.Contains(t, subject, "Amazon")
	require.Contains(t, body, "ORD-1")
	require.Contains(t, body, "1Z999")
	require.Contains(t, body, "UPS")
	require.Contains(t, body, database.OrderStatusShipped)
}

package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSubscribedFalseWithNoRow(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db).ID

	subscribed, err := db.NotificationConfigs.IsSubscribed(userID, "email", "NEW_ORDER")
	require.NoError(t, err)
	require.False(t, subscribed)
}

func TestUpsertAndIsSubscribed(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db).ID

	require.NoError(t, db.NotificationConfigs.Upsert(&NotificationConfig{
		UserID: userID, ModuleKey: "email", EventType: "NEW_ORDER", Enabled: true, Destination: "alice@example.com",
	}))

	subscribed, err := db.NotificationConfigs.IsSubscribed(userID, "email", "NEW_ORDER")
	require.NoError(t, err)
	require.True(t, subscribed)

	dest, err := db.NotificationConfigs.GetDestination(userID, "email")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", dest)
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db).ID

	require.NoError(t, db.NotificationConfigs.Upsert(&NotificationConfig{
		UserID: userID, ModuleKey: "email", EventType: "NEW_ORDER", Enabled: true, Destination: "old@example.com",
	}))
	require.NoError(t, db.NotificationConfigs.Upsert(&NotificationConfig{
		UserID: userID, ModuleKey: "email", EventType: "NEW_ORDER", Enabled: false, Destination: "new@example.com",
	}))

	subscribed, err := db.NotificationConfigs.IsSubscribed(userID, "email", "NEW_ORDER")
	require.NoError(t, err)
	require.False(t, subscribed)

	dest, err := db.NotificationConfigs.GetDestination(userID, "email")
	require.NoError(t, err)
	require.Equal(t, "new@example.com", dest)
}

func TestGetDestinationEmptyWithNoneConfigured(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db).ID

	dest, err := db.NotificationConfigs.GetDestination(userID, "webhook")
	require.NoError(t, err)
	require.Empty(t, dest)
}

func TestAnyDestinationConfigured(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db).ID

	configured, err := db.NotificationConfigs.AnyDestinationConfigured("webhook")
	require.NoError(t, err)
	require.False(t, configured)

	require.NoError(t, db.NotificationConfigs.Upsert(&NotificationConfig{
		UserID: userID, ModuleKey: "webhook", EventType: "NEW_ORDER", Enabled: true, Destination: "https://example.com/hook",
	}))

	configured, err = db.NotificationConfigs.AnyDestinationConfigured("webhook")
	require.NoError(t, err)
	require.True(t, configured)
}

func TestListByUserIncludesDestination(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db).ID

	require.NoError(t, db.NotificationConfigs.Upsert(&NotificationConfig{
		UserID: userID, ModuleKey: "email", EventType: "NEW_ORDER", Enabled: true, Destination: "alice@example.com",
	}))

	configs, err := db.NotificationConfigs.ListByUser(userID)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, "alice@example.com", configs[0].Destination)
}

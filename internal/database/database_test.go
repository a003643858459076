package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB) *User {
	t.Helper()
	id, err := db.Users.Create(&User{Username: "alice", CredentialHash: "hash"})
	require.NoError(t, err)
	u, err := db.Users.GetByID(id)
	require.NoError(t, err)
	return u
}

func TestSeenMessageUniqueness(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db)

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = db.QueueItems.Insert(tx, &QueueItem{UserID: user.ID, SourceType: "user_account", RawData: "{}"})
	require.NoError(t, err)
	_, err = db.SeenMessages.Insert(tx, &SeenMessage{
		FolderPath: "INBOX", SourceUID: 1, StableMessageID: "msg-1", Source: "user_mailbox",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, err := db.Begin()
	require.NoError(t, err)
	_, err = db.SeenMessages.Insert(tx2, &SeenMessage{
		FolderPath: "INBOX", SourceUID: 1, StableMessageID: "msg-1", Source: "user_mailbox",
	})
	require.Error(t, err)
	tx2.Rollback()

	exists, err := db.SeenMessages.Exists("msg-1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestQueueItemClaimIsExclusive(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db)

	tx, err := db.Begin()
	require.NoError(t, err)
	id, err := db.QueueItems.Insert(tx, &QueueItem{UserID: user.ID, SourceType: "user_account", RawData: "{}"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	claimed, err := db.QueueItems.ClaimNext()
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, id, claimed.ID)
	require.Equal(t, QueueStatusProcessing, claimed.Status)

	again, err := db.QueueItems.ClaimNext()
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestOrderStateAppendAndListByOrder(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db)

	tx, err := db.Begin()
	require.NoError(t, err)
	orderID, err := db.Orders.Create(tx, &Order{UserID: user.ID, Status: OrderStatusOrdered})
	require.NoError(t, err)
	_, err = db.OrderStates.Append(tx, &OrderState{OrderID: orderID, Status: OrderStatusOrdered, SourceType: "email"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	states, err := db.OrderStates.ListByOrder(orderID)
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, OrderStatusOrdered, states[0].Status)
}

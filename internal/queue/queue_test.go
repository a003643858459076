package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ordertracker/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *database.DB) int64 {
	t.Helper()
	id, err := db.Users.Create(&database.User{Username: "alice", CredentialHash: "hash"})
	require.NoError(t, err)
	return id
}

func TestEnqueueInsertsQueueItemAndSeenMessage(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)

	result, err := Enqueue(db, Message{
		UserID:          userID,
		SourceType:      "user_account",
		StableMessageID: "msg-1",
		Source:          SourceUserMailbox,
		RawData:         "{}",
	})
	require.NoError(t, err)
	require.False(t, result.AlreadySeen)
	require.NotZero(t, result.QueueItemID)

	counts, err := db.QueueItems.CountByStatus()
	require.NoError(t, err)
	require.Equal(t, 1, counts[database.QueueStatusQueued])
}

func TestEnqueueTwiceIsAlreadySeen(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)

	_, err := Enqueue(db, Message{UserID: userID, SourceType: "user_account", StableMessageID: "msg-1", Source: SourceUserMailbox, RawData: "{}"})
	require.NoError(t, err)

	result, err := Enqueue(db, Message{UserID: userID, SourceType: "user_account", StableMessageID: "msg-1", Source: SourceUserMailbox, RawData: "{}"})
	require.NoError(t, err)
	require.True(t, result.AlreadySeen)

	counts, err := db.QueueItems.CountByStatus()
	require.NoError(t, err)
	require.Equal(t, 1, counts[database.QueueStatusQueued])
}

func TestRetryClonesRawDataAndSetsClonedFromID(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)

	result, err := Enqueue(db, Message{UserID: userID, SourceType: "user_account", StableMessageID: "msg-1", Source: SourceUserMailbox, RawData: `{"subject":"hi"}`})
	require.NoError(t, err)

	original, err := db.QueueItems.GetByID(result.QueueItemID)
	require.NoError(t, err)
	require.NoError(t, db.QueueItems.MarkFailed(original.ID, "boom"))

	failed, err := db.QueueItems.GetByID(original.ID)
	require.NoError(t, err)

	newID, err := Retry(db, failed)
	require.NoError(t, err)
	require.NotEqual(t, failed.ID, newID)

	cloned, err := db.QueueItems.GetByID(newID)
	require.NoError(t, err)
	require.Equal(t, database.QueueStatusQueued, cloned.Status)
	require.Equal(t, failed.RawData, cloned.RawData)
	require.True(t, cloned.ClonedFromID.Valid)
	require.Equal(t, failed.ID, cloned.ClonedFromID.Int64)
}

func TestSweepDeletesAgedAndOverflowRows(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)

	for i := 0; i < 3; i++ {
		_, err := Enqueue(db, Message{
			UserID: userID, SourceType: "user_account",
			StableMessageID: "msg-" + string(rune('a'+i)), Source: SourceUserMailbox, RawData: "{}",
		})
		require.NoError(t, err)
	}

	result, err := Sweep(db, 7, 2)
	require.NoError(t, err)
	require.Equal(t, int64(0), result.DeletedAged)
	require.Equal(t, int64(1), result.DeletedOverflow)

	counts, err := db.QueueItems.CountByStatus()
	require.NoError(t, err)
	require.Equal(t, 2, counts[database.QueueStatusQueued])
}

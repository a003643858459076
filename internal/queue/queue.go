// Package queue implements the dedup-and-enqueue transaction and the
// retention sweep described for the job queue (§4.2, §4.3).
package queue

import (
	"fmt"
	"strings"
	"time"

	"ordertracker/internal/database"
)

// EnqueueResult reports whether a message was newly admitted to the
// queue or was already seen.
type EnqueueResult struct {
	AlreadySeen bool
	QueueItemID int64
}

// Source identifies which watcher variant captured a message.
const (
	SourceUserMailbox   = "user_mailbox"
	SourceGlobalMailbox = "global_mailbox"
)

// Message is the captured content handed from a watcher to the queue.
type Message struct {
	UserID          int64
	SourceType      string
	SourceInfo      string
	MailboxID       int64
	FolderPath      string
	SourceUID       uint32
	StableMessageID string
	Source          string
	RawData         string // JSON per §6 queue item raw_data schema
}

// Enqueue admits a message within one transaction: it checks the dedup
// index, and on a fresh message inserts both the QueueItem and the
// SeenMessage row (§4.2). A unique-constraint violation on
// stable_message_id is treated as "already seen", never surfaced as an
// error (§7 error taxonomy item 4).
func Enqueue(db *database.DB, msg Message) (EnqueueResult, error) {
	seen, err := db.SeenMessages.Exists(msg.StableMessageID)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("failed to check dedup index: %w", err)
	}
	if seen {
		return EnqueueResult{AlreadySeen: true}, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("failed to begin enqueue transaction: %w", err)
	}
	defer tx.Rollback()

	queueItemID, err := db.QueueItems.Insert(tx, &database.QueueItem{
		UserID:     msg.UserID,
		SourceType: msg.SourceType,
		SourceInfo: nullableString(msg.SourceInfo),
		RawData:    msg.RawData,
	})
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("failed to insert queue item: %w", err)
	}

	_, err = db.SeenMessages.Insert(tx, &database.SeenMessage{
		MailboxID:       nullableInt(msg.MailboxID),
		FolderPath:      msg.FolderPath,
		SourceUID:       msg.SourceUID,
		StableMessageID: msg.StableMessageID,
		QueueItemID:     nullableInt(queueItemID),
		Source:          msg.Source,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return EnqueueResult{AlreadySeen: true}, nil
		}
		return EnqueueResult{}, fmt.Errorf("failed to insert seen message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return EnqueueResult{}, fmt.Errorf("failed to commit enqueue transaction: %w", err)
	}
	return EnqueueResult{QueueItemID: queueItemID}, nil
}

// Retry creates a new queued row cloned from a failed item, copying
// raw_data and referencing the original via ClonedFromID (§3 invariant 4,
// §4.3: "failed -> queued is not allowed; retry creates a new item").
func Retry(db *database.DB, item *database.QueueItem) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin retry transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := db.QueueItems.Insert(tx, &database.QueueItem{
		UserID:       item.UserID,
		SourceType:   item.SourceType,
		SourceInfo:   item.SourceInfo,
		RawData:      item.RawData,
		ClonedFromID: nullableInt(item.ID),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert retry item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit retry transaction: %w", err)
	}
	return id, nil
}

// RetentionResult reports how many rows the sweep removed.
type RetentionResult struct {
	DeletedAged     int64
	DeletedOverflow int64
}

// Sweep deletes queue rows older than maxAgeDays, then trims each user's
// remaining rows down to maxPerUser, oldest first (§4.3).
func Sweep(db *database.DB, maxAgeDays int, maxPerUser int) (RetentionResult, error) {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	deletedAged, err := db.QueueItems.DeleteOlderThan(cutoff)
	if err != nil {
		return RetentionResult{}, fmt.Errorf("failed to sweep aged queue items: %w", err)
	}

	userIDs, err := db.QueueItems.UsersWithQueueItems()
	if err != nil {
		return RetentionResult{}, fmt.Errorf("failed to list queue users: %w", err)
	}

	var deletedOverflow int64
	for _, userID := range userIDs {
		n, err := db.QueueItems.DeleteOldestOverflowForUser(userID, maxPerUser)
		if err != nil {
			return RetentionResult{}, fmt.Errorf("failed to sweep overflow for user %d: %w", userID, err)
		}
		deletedOverflow += n
	}

	return RetentionResult{DeletedAged: deletedAged, DeletedOverflow: deletedOverflow}, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

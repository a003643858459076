package database

import (
	"database/sql"
	"fmt"
)

// SeenMessage is the write-once dedup record keyed by StableMessageID.
type SeenMessage struct {
	ID              int64
	MailboxID       sql.NullInt64
	FolderPath      string
	SourceUID       uint32
	StableMessageID string
	QueueItemID     sql.NullInt64
	Source          string // "user_mailbox" | "global_mailbox"
}

// SeenMessageStore provides access to the seen_messages table.
type SeenMessageStore struct {
	db *sql.DB
}

func NewSeenMessageStore(db *sql.DB) *SeenMessageStore {
	return &SeenMessageStore{db: db}
}

// Insert records a message as seen within tx. Callers are expected to
// treat a unique-constraint violation on stable_message_id as "already
// seen" rather than propagating it (§4.2, §7.4) — see queue.Enqueue.
func (s *SeenMessageStore) Insert(tx *sql.Tx, msg *SeenMessage) (int64, error) {
	result, err := tx.Exec(
		`INSERT INTO seen_messages (mailbox_id, folder_path, source_uid, stable_message_id, queue_item_id, source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MailboxID, msg.FolderPath, msg.SourceUID, msg.StableMessageID, msg.QueueItemID, msg.Source,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SeenMessageStore) Exists(stableMessageID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM seen_messages WHERE stable_message_id = ?", stableMessageID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check seen message: %w", err)
	}
	return count > 0, nil
}

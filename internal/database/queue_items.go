package database

import (
	"database/sql"
	"fmt"
	"time"
)

// QueueItem status values form the DAG described in §3 invariant 4:
// queued -> processing -> {completed, failed}. failed -> queued is not
// allowed; retry creates a new row referencing ClonedFromID.
const (
	QueueStatusQueued     = "queued"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// QueueItem is one captured, dedup-admitted message awaiting analysis.
type QueueItem struct {
	ID            int64
	UserID        int64
	Status        string
	SourceType    string
	SourceInfo    sql.NullString
	RawData       string
	ExtractedData sql.NullString
	Error         sql.NullString
	OrderID       sql.NullInt64
	ClonedFromID  sql.NullInt64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QueueItemStore provides access to the queue_items table.
type QueueItemStore struct {
	db *sql.DB
}

func NewQueueItemStore(db *sql.DB) *QueueItemStore {
	return &QueueItemStore{db: db}
}

// Insert adds a new queued item within tx, for use by the dedup+enqueue
// transaction in internal/queue.
func (s *QueueItemStore) Insert(tx *sql.Tx, item *QueueItem) (int64, error) {
	result, err := tx.Exec(
		`INSERT INTO queue_items (user_id, status, source_type, source_info, raw_data, cloned_from_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.UserID, QueueStatusQueued, item.SourceType, item.SourceInfo, item.RawData, item.ClonedFromID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ClaimNext atomically moves the oldest queued item to processing and
// returns it. SQLite has no FOR UPDATE SKIP LOCKED; instead the oldest
// queued id is selected and then moved to processing by an UPDATE guarded
// on status = 'queued', inside one transaction, so two concurrent callers
// cannot both claim the same row. Returns (nil, nil) when the queue is
// empty or the row was claimed by another caller first.
func (s *QueueItemStore) ClaimNext() (*QueueItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(
		"SELECT id FROM queue_items WHERE status = ? ORDER BY created_at LIMIT 1", QueueStatusQueued,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick queue item: %w", err)
	}

	// The UPDATE acquires SQLite's single write lock for the remainder of
	// this transaction; a second claimer racing the SELECT above will
	// simply affect zero rows here and return nil, nil.
	result, err := tx.Exec(
		"UPDATE queue_items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		QueueStatusProcessing, id, QueueStatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim queue item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check claim result: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	row := tx.QueryRow(queueItemSelect+" WHERE id = ?", id)
	item, err := scanQueueItem(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}
	return item, nil
}

func (s *QueueItemStore) GetByID(id int64) (*QueueItem, error) {
	row := s.db.QueryRow(queueItemSelect+" WHERE id = ?", id)
	item, err := scanQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

// MarkCompleted transitions an item to completed, storing extracted data
// and optionally the resolved order id.
func (s *QueueItemStore) MarkCompleted(id int64, extractedData string, orderID *int64) error {
	var orderIDArg interface{}
	if orderID != nil {
		orderIDArg = *orderID
	}
	_, err := s.db.Exec(
		`UPDATE queue_items SET status = ?, extracted_data = ?, order_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		QueueStatusCompleted, extractedData, orderIDArg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark queue item completed: %w", err)
	}
	return nil
}

// MarkFailed transitions an item to failed with the given error string,
// opened in a fresh transaction per §4.4 step 7 (rollback-then-refail).
func (s *QueueItemStore) MarkFailed(id int64, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE queue_items SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		QueueStatusFailed, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark queue item failed: %w", err)
	}
	return nil
}

// CountByStatus reports how many items are in each terminal/non-terminal
// status, for the status endpoint's queue depth summary.
func (s *QueueItemStore) CountByStatus() (map[string]int, error) {
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM queue_items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count queue items: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan queue item count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DeleteOlderThan removes items of any status older than the given cutoff,
// for the retention sweep (§4.3).
func (s *QueueItemStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM queue_items WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete aged queue items: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOldestOverflowForUser deletes a user's oldest rows beyond maxPerUser.
func (s *QueueItemStore) DeleteOldestOverflowForUser(userID int64, maxPerUser int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM queue_items
		WHERE user_id = ? AND id IN (
			SELECT id FROM queue_items WHERE user_id = ?
			ORDER BY created_at DESC
			LIMIT -1 OFFSET ?
		)`, userID, userID, maxPerUser)
	if err != nil {
		return 0, fmt.Errorf("failed to delete overflow queue items: %w", err)
	}
	return result.RowsAffected()
}

// UsersWithQueueItems lists distinct user ids present in the queue, for
// the per-user retention pass.
func (s *QueueItemStore) UsersWithQueueItems() ([]int64, error) {
	rows, err := s.db.Query("SELECT DISTINCT user_id FROM queue_items")
	if err != nil {
		return nil, fmt.Errorf("failed to list queue users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan queue user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const queueItemSelect = `
	SELECT id, user_id, status, source_type, source_info, raw_data, extracted_data,
	       error, order_id, cloned_from_id, created_at, updated_at
	FROM queue_items`

func scanQueueItem(row *sql.Row) (*QueueItem, error) {
	var item QueueItem
	err := row.Scan(&item.ID, &item.UserID, &item.Status, &item.SourceType, &item.SourceInfo,
		&item.RawData, &item.ExtractedData, &item.Error, &item.OrderID, &item.ClonedFromID,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

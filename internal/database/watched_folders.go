package database

import (
	"database/sql"
	"fmt"
)

// WatchedFolder is a selectable path within a user-owned mailbox.
type WatchedFolder struct {
	ID                 int64
	MailboxID          int64
	Path               string
	LastUID            uint32
	UIDValidity        sql.NullInt64
	MaxAgeDaysOverride sql.NullInt64
}

// WatchedFolderStore provides access to the watched_folders table.
type WatchedFolderStore struct {
	db *sql.DB
}

func NewWatchedFolderStore(db *sql.DB) *WatchedFolderStore {
	return &WatchedFolderStore{db: db}
}

func (s *WatchedFolderStore) Create(f *WatchedFolder) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO watched_folders (mailbox_id, path, last_uid, uid_validity, max_age_days_override)
		 VALUES (?, ?, ?, ?, ?)`,
		f.MailboxID, f.Path, f.LastUID, f.UIDValidity, f.MaxAgeDaysOverride,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create watched folder: %w", err)
	}
	return result.LastInsertId()
}

func (s *WatchedFolderStore) GetByID(id int64) (*WatchedFolder, error) {
	row := s.db.QueryRow(
		`SELECT id, mailbox_id, path, last_uid, uid_validity, max_age_days_override
		 FROM watched_folders WHERE id = ?`, id)
	var f WatchedFolder
	err := row.Scan(&f.ID, &f.MailboxID, &f.Path, &f.LastUID, &f.UIDValidity, &f.MaxAgeDaysOverride)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watched folder: %w", err)
	}
	return &f, nil
}

func (s *WatchedFolderStore) ListByMailbox(mailboxID int64) ([]*WatchedFolder, error) {
	rows, err := s.db.Query(
		`SELECT id, mailbox_id, path, last_uid, uid_validity, max_age_days_override
		 FROM watched_folders WHERE mailbox_id = ?`, mailboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched folders: %w", err)
	}
	defer rows.Close()

	var out []*WatchedFolder
	for rows.Next() {
		var f WatchedFolder
		if err := rows.Scan(&f.ID, &f.MailboxID, &f.Path, &f.LastUID, &f.UIDValidity, &f.MaxAgeDaysOverride); err != nil {
			return nil, fmt.Errorf("failed to scan watched folder: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *WatchedFolderStore) ListAll() ([]*WatchedFolder, error) {
	rows, err := s.db.Query(
		`SELECT id, mailbox_id, path, last_uid, uid_validity, max_age_days_override FROM watched_folders`)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched folders: %w", err)
	}
	defer rows.Close()

	var out []*WatchedFolder
	for rows.Next() {
		var f WatchedFolder
		if err := rows.Scan(&f.ID, &f.MailboxID, &f.Path, &f.LastUID, &f.UIDValidity, &f.MaxAgeDaysOverride); err != nil {
			return nil, fmt.Errorf("failed to scan watched folder: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// AdvanceUID persists a new last_uid, and resets it to the given value (0 on
// a uid_validity change per invariant 3) together with the new uid_validity.
func (s *WatchedFolderStore) AdvanceUID(id int64, lastUID uint32, uidValidity int64) error {
	_, err := s.db.Exec(
		"UPDATE watched_folders SET last_uid = ?, uid_validity = ? WHERE id = ?",
		lastUID, uidValidity, id,
	)
	if err != nil {
		return fmt.Errorf("failed to advance watched folder uid: %w", err)
	}
	return nil
}

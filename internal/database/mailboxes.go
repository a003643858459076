package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// Mailbox models both user-owned mailboxes and the global singleton mailbox.
// For a user-owned mailbox UserID is set and IsGlobal is false; for the
// global mailbox UserID is NULL and the watched folder/UID fields below
// apply directly (a user mailbox's folder state lives in WatchedFolder
// instead, since a user may watch more than one folder).
type Mailbox struct {
	ID                int64
	UserID            sql.NullInt64
	IsGlobal          bool
	Host              string
	Port              int
	Username          string
	EncryptedPassword string
	TLS               bool
	PollIntervalS     int
	PreferPolling     bool
	IdleCapable       sql.NullBool
	WatchedFolder     sql.NullString
	LastUID           uint32
	UIDValidity       sql.NullInt64
}

// MailboxStore provides access to the mailboxes table.
type MailboxStore struct {
	db *sql.DB
}

func NewMailboxStore(db *sql.DB) *MailboxStore {
	return &MailboxStore{db: db}
}

func (s *MailboxStore) Create(m *Mailbox) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO mailboxes
			(user_id, is_global, host, port, username, encrypted_password, tls,
			 poll_interval_s, prefer_polling, idle_capable, watched_folder, last_uid, uid_validity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.IsGlobal, m.Host, m.Port, m.Username, m.EncryptedPassword, m.TLS,
		m.PollIntervalS, m.PreferPolling, m.IdleCapable, m.WatchedFolder, m.LastUID, m.UIDValidity,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create mailbox: %w", err)
	}
	return result.LastInsertId()
}

func (s *MailboxStore) GetByID(id int64) (*Mailbox, error) {
	row := s.db.QueryRow(mailboxSelect+" WHERE id = ?", id)
	return scanMailbox(row)
}

// GetGlobal returns the singleton global mailbox, or nil if none is configured.
func (s *MailboxStore) GetGlobal() (*Mailbox, error) {
	row := s.db.QueryRow(mailboxSelect + " WHERE is_global = TRUE")
	return scanMailbox(row)
}

// ListUserOwned returns every non-global mailbox, for watcher supervisor startup.
func (s *MailboxStore) ListUserOwned() ([]*Mailbox, error) {
	rows, err := s.db.Query(mailboxSelect + " WHERE is_global = FALSE")
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	defer rows.Close()

	var out []*Mailbox
	for rows.Next() {
		m, err := scanMailboxRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AdvanceGlobalUID updates the global mailbox's last_uid and optionally
// resets it alongside a uid_validity change (invariant 3).
func (s *MailboxStore) AdvanceGlobalUID(id int64, lastUID uint32, uidValidity int64) error {
	_, err := s.db.Exec(
		"UPDATE mailboxes SET last_uid = ?, uid_validity = ? WHERE id = ?",
		lastUID, uidValidity, id,
	)
	if err != nil {
		return fmt.Errorf("failed to advance global mailbox uid: %w", err)
	}
	return nil
}

func (s *MailboxStore) SetIdleCapable(id int64, capable bool) error {
	_, err := s.db.Exec("UPDATE mailboxes SET idle_capable = ? WHERE id = ?", capable, id)
	if err != nil {
		return fmt.Errorf("failed to record idle capability: %w", err)
	}
	return nil
}

const mailboxSelect = `
	SELECT id, user_id, is_global, host, port, username, encrypted_password, tls,
	       poll_interval_s, prefer_polling, idle_capable, watched_folder, last_uid, uid_validity
	FROM mailboxes`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMailbox(row *sql.Row) (*Mailbox, error) {
	m, err := scanMailboxRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func scanMailboxRow(row rowScanner) (*Mailbox, error) {
	var m Mailbox
	err := row.Scan(&m.ID, &m.UserID, &m.IsGlobal, &m.Host, &m.Port, &m.Username,
		&m.EncryptedPassword, &m.TLS, &m.PollIntervalS, &m.PreferPolling,
		&m.IdleCapable, &m.WatchedFolder, &m.LastUID, &m.UIDValidity)
	if err != nil {
		return nil, fmt.Errorf("failed to scan mailbox: %w", err)
	}
	return &m, nil
}

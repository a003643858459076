package database

import (
	"database/sql"
	"fmt"
)

// GlobalSenderBinding routes a global-mailbox message to a user by the
// lowercased bare address of its From: header (§4.1 routing callback).
type GlobalSenderBinding struct {
	UserID       int64
	EmailAddress string
}

// GlobalSenderBindingStore provides access to the global_sender_bindings table.
type GlobalSenderBindingStore struct {
	db *sql.DB
}

func NewGlobalSenderBindingStore(db *sql.DB) *GlobalSenderBindingStore {
	return &GlobalSenderBindingStore{db: db}
}

func (s *GlobalSenderBindingStore) Create(b *GlobalSenderBinding) error {
	_, err := s.db.Exec(
		"INSERT INTO global_sender_bindings (user_id, email_address) VALUES (?, ?)",
		b.UserID, b.EmailAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to create global sender binding: %w", err)
	}
	return nil
}

// Lookup returns the owning user id for a lowercased email address, or
// (0, false) when there is no binding (§4.1: routing returns "skip").
func (s *GlobalSenderBindingStore) Lookup(emailAddress string) (int64, bool, error) {
	var userID int64
	err := s.db.QueryRow(
		"SELECT user_id FROM global_sender_bindings WHERE email_address = ?", emailAddress,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up global sender binding: %w", err)
	}
	return userID, true, nil
}

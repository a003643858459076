package database

import (
	"database/sql"
	"fmt"
	"time"
)

// User is the owner of mailboxes, orders and queue items.
type User struct {
	ID             int64
	Username       string
	IsAdmin        bool
	CredentialHash string
	CreatedAt      time.Time
}

// UserStore provides access to the users table.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(u *User) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO users (username, is_admin, credential_hash) VALUES (?, ?, ?)",
		u.Username, u.IsAdmin, u.CredentialHash,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return result.LastInsertId()
}

func (s *UserStore) GetByID(id int64) (*User, error) {
	row := s.db.QueryRow(
		"SELECT id, username, is_admin, credential_hash, created_at FROM users WHERE id = ?", id)
	return scanUser(row)
}

func (s *UserStore) GetByUsername(username string) (*User, error) {
	row := s.db.QueryRow(
		"SELECT id, username, is_admin, credential_hash, created_at FROM users WHERE username = ?", username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.IsAdmin, &u.CredentialHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

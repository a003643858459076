package database

import (
	"database/sql"
	"fmt"
)

// NotificationConfig keys a per-user notifier subscription by
// (user_id, module_key, event_type). This is a SUPPLEMENTED entity
// (§4.8 names only "per-module NotificationConfig"); modeling the event
// type as part of the key matches the original service's per-event
// subscription granularity. Destination holds the notifier-specific
// delivery target (an email address for the email notifier, a URL for
// the webhook notifier) since neither lives anywhere else in the data
// model.
type NotificationConfig struct {
	ID          int64
	UserID      int64
	ModuleKey   string
	EventType   string
	Enabled     bool
	Destination string
}

// NotificationConfigStore provides access to the notification_configs table.
type NotificationConfigStore struct {
	db *sql.DB
}

func NewNotificationConfigStore(db *sql.DB) *NotificationConfigStore {
	return &NotificationConfigStore{db: db}
}

// IsSubscribed reports whether the user has an enabled subscription for
// this module+event. Absence of a row means "not subscribed" — the
// registry only notifies users who opted in.
func (s *NotificationConfigStore) IsSubscribed(userID int64, moduleKey, eventType string) (bool, error) {
	var enabled bool
	err := s.db.QueryRow(
		`SELECT enabled FROM notification_configs WHERE user_id = ? AND module_key = ? AND event_type = ?`,
		userID, moduleKey, eventType,
	).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check notification config: %w", err)
	}
	return enabled, nil
}

// GetDestination returns the configured delivery target for a user's
// subscription to this module, regardless of event type, or "" if none
// is configured.
func (s *NotificationConfigStore) GetDestination(userID int64, moduleKey string) (string, error) {
	var destination string
	err := s.db.QueryRow(
		`SELECT destination FROM notification_configs WHERE user_id = ? AND module_key = ? AND destination != '' LIMIT 1`,
		userID, moduleKey,
	).Scan(&destination)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load notification destination: %w", err)
	}
	return destination, nil
}

// AnyDestinationConfigured reports whether at least one user has set a
// destination for this module, used by notifier modules' IsConfigured.
func (s *NotificationConfigStore) AnyDestinationConfigured(moduleKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM notification_configs WHERE module_key = ? AND destination != '')`,
		moduleKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check configured destinations: %w", err)
	}
	return exists, nil
}

func (s *NotificationConfigStore) Upsert(cfg *NotificationConfig) error {
	_, err := s.db.Exec(`
		INSERT INTO notification_configs (user_id, module_key, event_type, enabled, destination)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, module_key, event_type) DO UPDATE SET enabled = excluded.enabled, destination = excluded.destination`,
		cfg.UserID, cfg.ModuleKey, cfg.EventType, cfg.Enabled, cfg.Destination,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification config: %w", err)
	}
	return nil
}

func (s *NotificationConfigStore) ListByUser(userID int64) ([]*NotificationConfig, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, module_key, event_type, enabled, destination FROM notification_configs WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification configs: %w", err)
	}
	defer rows.Close()

	var out []*NotificationConfig
	for rows.Next() {
		var cfg NotificationConfig
		if err := rows.Scan(&cfg.ID, &cfg.UserID, &cfg.ModuleKey, &cfg.EventType, &cfg.Enabled, &cfg.Destination); err != nil {
			return nil, fmt.Errorf("failed to scan notification config: %w", err)
		}
		out = append(out, &cfg)
	}
	return out, rows.Err()
}

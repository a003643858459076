package database

import (
	"database/sql"
	"fmt"
)

// ModuleConfig is the admin-controlled enable/disable + priority record
// for one discovered module (§4.8).
type ModuleConfig struct {
	ModuleKey string
	Enabled   bool
	Priority  int
}

// ModuleConfigStore provides access to the module_configs table.
type ModuleConfigStore struct {
	db *sql.DB
}

func NewModuleConfigStore(db *sql.DB) *ModuleConfigStore {
	return &ModuleConfigStore{db: db}
}

// EnsureExists inserts a ModuleConfig row for a newly discovered module key
// if one doesn't already exist, defaulting to disabled unless preEnabled.
func (s *ModuleConfigStore) EnsureExists(moduleKey string, preEnabled bool) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO module_configs (module_key, enabled, priority) VALUES (?, ?, 0)",
		moduleKey, preEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure module config for %s: %w", moduleKey, err)
	}
	return nil
}

func (s *ModuleConfigStore) Get(moduleKey string) (*ModuleConfig, error) {
	var cfg ModuleConfig
	err := s.db.QueryRow(
		"SELECT module_key, enabled, priority FROM module_configs WHERE module_key = ?", moduleKey,
	).Scan(&cfg.ModuleKey, &cfg.Enabled, &cfg.Priority)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module config for %s: %w", moduleKey, err)
	}
	return &cfg, nil
}

func (s *ModuleConfigStore) ListAll() ([]*ModuleConfig, error) {
	rows, err := s.db.Query("SELECT module_key, enabled, priority FROM module_configs ORDER BY module_key")
	if err != nil {
		return nil, fmt.Errorf("failed to list module configs: %w", err)
	}
	defer rows.Close()

	var out []*ModuleConfig
	for rows.Next() {
		var cfg ModuleConfig
		if err := rows.Scan(&cfg.ModuleKey, &cfg.Enabled, &cfg.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan module config: %w", err)
		}
		out = append(out, &cfg)
	}
	return out, rows.Err()
}

func (s *ModuleConfigStore) SetEnabled(moduleKey string, enabled bool) error {
	_, err := s.db.Exec("UPDATE module_configs SET enabled = ? WHERE module_key = ?", enabled, moduleKey)
	if err != nil {
		return fmt.Errorf("failed to set module config enabled for %s: %w", moduleKey, err)
	}
	return nil
}

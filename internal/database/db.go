// Copyright 2024 Package Tracking System
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql.DB connection and provides access to stores
type DB struct {
	*sql.DB
	Users                *UserStore
	Mailboxes            *MailboxStore
	WatchedFolders       *WatchedFolderStore
	SeenMessages         *SeenMessageStore
	QueueItems           *QueueItemStore
	Orders               *OrderStore
	OrderStates          *OrderStateStore
	ModuleConfigs        *ModuleConfigStore
	GlobalSenderBindings *GlobalSenderBindingStore
	NotificationConfigs  *NotificationConfigStore
}

// Open opens a database connection and initializes stores
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL + busy_timeout: the watcher, processor and scheduler all touch
	// this file from separate goroutines.
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	database := &DB{
		DB:                   db,
		Users:                NewUserStore(db),
		Mailboxes:            NewMailboxStore(db),
		WatchedFolders:       NewWatchedFolderStore(db),
		SeenMessages:         NewSeenMessageStore(db),
		QueueItems:           NewQueueItemStore(db),
		Orders:               NewOrderStore(db),
		OrderStates:          NewOrderStateStore(db),
		ModuleConfigs:        NewModuleConfigStore(db),
		GlobalSenderBindings: NewGlobalSenderBindingStore(db),
		NotificationConfigs:  NewNotificationConfigStore(db),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// migrate creates the database schema described in §3.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		credential_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS mailboxes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		is_global BOOLEAN NOT NULL DEFAULT FALSE,
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		username TEXT NOT NULL,
		encrypted_password TEXT NOT NULL,
		tls BOOLEAN NOT NULL DEFAULT TRUE,
		poll_interval_s INTEGER NOT NULL DEFAULT 300,
		prefer_polling BOOLEAN NOT NULL DEFAULT FALSE,
		idle_capable BOOLEAN,
		watched_folder TEXT,
		last_uid INTEGER NOT NULL DEFAULT 0,
		uid_validity INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_mailboxes_global ON mailboxes(is_global) WHERE is_global = TRUE;

	CREATE TABLE IF NOT EXISTS watched_folders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mailbox_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		last_uid INTEGER NOT NULL DEFAULT 0,
		uid_validity INTEGER,
		max_age_days_override INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(mailbox_id, path),
		FOREIGN KEY (mailbox_id) REFERENCES mailboxes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS seen_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mailbox_id INTEGER,
		folder_path TEXT NOT NULL,
		source_uid INTEGER NOT NULL,
		stable_message_id TEXT NOT NULL UNIQUE,
		queue_item_id INTEGER,
		source TEXT NOT NULL CHECK (source IN ('user_mailbox', 'global_mailbox')),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (mailbox_id) REFERENCES mailboxes(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS queue_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued' CHECK (status IN ('queued', 'processing', 'completed', 'failed')),
		source_type TEXT NOT NULL,
		source_info TEXT,
		raw_data TEXT NOT NULL,
		extracted_data TEXT,
		error TEXT,
		order_id INTEGER,
		cloned_from_id INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE SET NULL,
		FOREIGN KEY (cloned_from_id) REFERENCES queue_items(id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_queue_items_claim ON queue_items(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_queue_items_user ON queue_items(user_id, created_at);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		order_number TEXT,
		tracking_number TEXT,
		carrier TEXT,
		vendor_name TEXT,
		vendor_domain TEXT,
		status TEXT NOT NULL DEFAULT 'ordered' CHECK (status IN
			('ordered', 'shipment_preparing', 'shipped', 'in_transit', 'out_for_delivery', 'delivered')),
		order_date DATETIME,
		total REAL,
		currency TEXT,
		items TEXT,
		estimated_delivery DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user_order_number ON orders(user_id, order_number);
	CREATE INDEX IF NOT EXISTS idx_orders_user_tracking_number ON orders(user_id, tracking_number);
	CREATE INDEX IF NOT EXISTS idx_orders_user_vendor_domain ON orders(user_id, vendor_domain, created_at);

	CREATE TABLE IF NOT EXISTS order_states (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_info TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_order_states_order ON order_states(order_id, created_at);

	CREATE TABLE IF NOT EXISTS module_configs (
		module_key TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		priority INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS global_sender_bindings (
		user_id INTEGER NOT NULL,
		email_address TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS notification_configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		module_key TEXT NOT NULL,
		event_type TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		destination TEXT NOT NULL DEFAULT '',
		UNIQUE(user_id, module_key, event_type),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS llm_configs (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		provider TEXT NOT NULL DEFAULT '',
		api_base_url TEXT NOT NULL DEFAULT '',
		encrypted_api_key TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS smtp_configs (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		host TEXT NOT NULL DEFAULT '',
		port INTEGER NOT NULL DEFAULT 587,
		username TEXT NOT NULL DEFAULT '',
		encrypted_password TEXT NOT NULL DEFAULT '',
		from_address TEXT NOT NULL DEFAULT '',
		tls BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS retention_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		max_age_days INTEGER NOT NULL DEFAULT 7,
		max_per_user INTEGER NOT NULL DEFAULT 5000
	);

	CREATE TABLE IF NOT EXISTS imap_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		max_email_age_days INTEGER NOT NULL DEFAULT 7,
		check_uidvalidity BOOLEAN NOT NULL DEFAULT TRUE
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return db.seedSingletons()
}

// seedSingletons ensures the singleton config rows exist with their defaults.
func (db *DB) seedSingletons() error {
	statements := []string{
		"INSERT OR IGNORE INTO llm_configs (id) VALUES (1)",
		"INSERT OR IGNORE INTO smtp_configs (id) VALUES (1)",
		"INSERT OR IGNORE INTO retention_settings (id) VALUES (1)",
		"INSERT OR IGNORE INTO imap_settings (id) VALUES (1)",
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to seed singleton config: %w", err)
		}
	}
	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *DB) IsHealthy() error {
	return db.Ping()
}

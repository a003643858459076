package database

import (
	"database/sql"
	"fmt"
)

// LLMConfig is the singleton analyzer connection configuration; the
// provider integration and prompt text themselves are out of scope (§1).
type LLMConfig struct {
	Provider        string
	APIBaseURL      string
	EncryptedAPIKey string
	Model           string
}

// SmtpConfig is the singleton outbound mail configuration consumed by
// the email notifier; SMTP delivery itself is out of scope (§1).
type SmtpConfig struct {
	Host              string
	Port              int
	Username          string
	EncryptedPassword string
	FromAddress       string
	TLS               bool
}

// RetentionSettings controls the queue retention sweep (§4.3).
type RetentionSettings struct {
	MaxAgeDays int
	MaxPerUser int
}

// ImapSettings controls the mailbox watcher's drain window and
// uid_validity handling (§4.1 step 3/4, §6).
type ImapSettings struct {
	MaxEmailAgeDays  int
	CheckUIDValidity bool
}

func GetLLMConfig(db *sql.DB) (*LLMConfig, error) {
	var c LLMConfig
	err := db.QueryRow("SELECT provider, api_base_url, encrypted_api_key, model FROM llm_configs WHERE id = 1").
		Scan(&c.Provider, &c.APIBaseURL, &c.EncryptedAPIKey, &c.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load llm config: %w", err)
	}
	return &c, nil
}

func GetSmtpConfig(db *sql.DB) (*SmtpConfig, error) {
	var c SmtpConfig
	err := db.QueryRow("SELECT host, port, username, encrypted_password, from_address, tls FROM smtp_configs WHERE id = 1").
		Scan(&c.Host, &c.Port, &c.Username, &c.EncryptedPassword, &c.FromAddress, &c.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to load smtp config: %w", err)
	}
	return &c, nil
}

func GetRetentionSettings(db *sql.DB) (*RetentionSettings, error) {
	var c RetentionSettings
	err := db.QueryRow("SELECT max_age_days, max_per_user FROM retention_settings WHERE id = 1").
		Scan(&c.MaxAgeDays, &c.MaxPerUser)
	if err != nil {
		return nil, fmt.Errorf("failed to load retention settings: %w", err)
	}
	return &c, nil
}

func GetImapSettings(db *sql.DB) (*ImapSettings, error) {
	var c ImapSettings
	err := db.QueryRow("SELECT max_email_age_days, check_uidvalidity FROM imap_settings WHERE id = 1").
		Scan(&c.MaxEmailAgeDays, &c.CheckUIDValidity)
	if err != nil {
		return nil, fmt.Errorf("failed to load imap settings: %w", err)
	}
	return &c, nil
}

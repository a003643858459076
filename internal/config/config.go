package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds every setting the daemon needs, resolved
// from defaults, a config file, and environment variables (§6).
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DatabaseURL string

	// Secret material
	SecretKey     string
	EncryptionKey string

	// JWT settings
	JWTAlgorithm     string
	JWTExpireMinutes int

	// IMAP watcher settings
	ImapMaxEmailAgeDays  int
	ImapCheckUIDValidity bool

	// Queue retention settings
	QueueMaxAgeDays int
	QueueMaxPerUser int

	// Logging
	LogLevel string

	// Admin API
	AdminAPIKey      string
	DisableAdminAuth bool
}

// validate checks invariants the daemon cannot safely start without
// (§6: imap_settings/queue_settings constraints).
func (c *Config) validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid server port: %s", c.ServerPort)
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("database url cannot be empty")
	}

	if !c.DisableAdminAuth && c.SecretKey == "" {
		return fmt.Errorf("secret key cannot be empty unless admin auth is disabled")
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(c.EncryptionKey))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.JWTExpireMinutes < 1 {
		return fmt.Errorf("jwt expire minutes must be positive")
	}

	if c.ImapMaxEmailAgeDays < 1 {
		return fmt.Errorf("imap_settings.max_email_age_days must be positive")
	}

	if c.QueueMaxAgeDays < 1 {
		return fmt.Errorf("queue_settings.max_age_days must be at least 1")
	}
	if c.QueueMaxPerUser < 1 {
		return fmt.Errorf("queue_settings.max_per_user must be at least 1")
	}

	return nil
}

// Address returns the full server bind address.
func (c *Config) Address() string {
	return c.ServerHost + ":" + c.ServerPort
}

// RetentionInterval is the fixed scheduler interval for the retention
// sweep job (§4.9).
const RetentionInterval = 600 * time.Second

// QueueTickInterval is the fixed scheduler interval for the processor
// tick job (§4.9).
const QueueTickInterval = 5 * time.Second

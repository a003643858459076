// Package email implements the email notifier module: on a fired event
// it composes a plain-text message describing the order and delivers
// it over the configured SMTP relay (§4.8, outbound SMTP delivery is
// out of scope for the core per §1, left to this module).
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"ordertracker/internal/database"
	"ordertracker/internal/modules"
	"ordertracker/internal/notify"
	"ordertracker/internal/secrets"
)

const ModuleKey = "email"

// Module delivers order notifications over SMTP.
type Module struct {
	db  *database.DB
	box *secrets.Box
}

func New(db *database.DB, box *secrets.Box) *Module {
	return &Module{db: db, box: box}
}

func (m *Module) Manifest() modules.Manifest {
	return modules.Manifest{
		Key:         ModuleKey,
		Name:        "Email Notifications",
		Type:        modules.TypeNotifier,
		Version:     "1.0.0",
		Description: "Sends order and shipment notifications by email.",
	}
}

// IsConfigured reports whether a usable SMTP relay is on file.
func (m *Module) IsConfigured() bool {
	cfg, err := database.GetSmtpConfig(m.db.DB)
	if err != nil {
		return false
	}
	return cfg.Host != "" && cfg.FromAddress != ""
}

func (m *Module) Key() string { return ModuleKey }

// Notify composes a plain-text order summary and sends it to the
// user's configured destination address.
func (m *Module) Notify(ctx context.Context, userID int64, event notify.Event, data notify.Data) error {
	destination, err := m.db.NotificationConfigs.GetDestination(userID, ModuleKey)
	if err != nil {
		return fmt.Errorf("failed to load notification destination: %w", err)
	}
	if destination == "" {
		return fmt.Errorf("no email destination configured for user %d", userID)
	}

	cfg, err := database.GetSmtpConfig(m.db.DB)
	if err != nil {
		return fmt.Errorf("failed to load smtp config: %w", err)
	}
	password, err := m.box.Decrypt(cfg.EncryptedPassword)
	if err != nil {
		return fmt.Errorf("failed to decrypt smtp password: %w", err)
	}

	subject, body := compose(event, data)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		cfg.FromAddress, destination, subject, body)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, password, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.FromAddress, []string{destination}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}

func compose(event notify.Event, data notify.Data) (subject, body string) {
	order := data.Order
	var label string
	switch event {
	case notify.EventNewOrder:
		label = "New order detected"
	case notify.EventPackageDelivered:
		label = "Package delivered"
	default:
		label = "Tracking update"
	}

	vendor := order.VendorName.String
	if vendor == "" {
		vendor = "Unknown vendor"
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%s: %s", label, vendor))
	if order.OrderNumber.Valid {
		lines = append(lines, fmt.Sprintf("Order number: %s", order.OrderNumber.String))
	}
	if order.TrackingNumber.Valid {
		carrier := order.Carrier.String
		if carrier == "" {
			carrier = "unknown carrier"
		}
		lines = append(lines, fmt.Sprintf("Tracking: %s (%s)", order.TrackingNumber.String, carrier))
	}
	lines = append(lines, fmt.Sprintf("Status: %s", order.Status))
	if order.EstimatedDelivery.Valid {
		lines = append(lines, fmt.Sprintf("Estimated delivery: %s", order.EstimatedDelivery.Time.Format(time.RFC3339)))
	}

	return fmt.Sprintf("%s - %s", label, vendor), strings.Join(lines, "\n")
}

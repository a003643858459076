// Package webhook implements the webhook notifier module: on a fired
// event it POSTs a JSON payload describing the order to the user's
// configured webhook URL (§4.8).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ordertracker/internal/database"
	"ordertracker/internal/modules"
	"ordertracker/internal/notify"
)

const ModuleKey = "webhook"

// Module delivers order notifications as an HTTP POST to a per-user URL.
type Module struct {
	db         *database.DB
	httpClient *http.Client
}

func New(db *database.DB) *Module {
	return &Module{db: db, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (m *Module) Manifest() modules.Manifest {
	return modules.Manifest{
		Key:         ModuleKey,
		Name:        "Webhook Notifications",
		Type:        modules.TypeNotifier,
		Version:     "1.0.0",
		Description: "Posts order and shipment notifications to a configured webhook URL.",
	}
}

// IsConfigured reports whether any user has a webhook destination on
// file; per-delivery failures for individual users are handled in
// Notify, not here.
func (m *Module) IsConfigured() bool {
	configured, err := m.db.NotificationConfigs.AnyDestinationConfigured(ModuleKey)
	return err == nil && configured
}

func (m *Module) Key() string { return ModuleKey }

// payload is the JSON body posted to the webhook URL.
type payload struct {
	Event       string  `json:"event"`
	OrderID     int64   `json:"order_id"`
	OrderNumber *string `json:"order_number,omitempty"`
	VendorName  *string `json:"vendor_name,omitempty"`
	Status      string  `json:"status"`
	Tracking    *string `json:"tracking_number,omitempty"`
	Carrier     *string `json:"carrier,omitempty"`
}

func (m *Module) Notify(ctx context.Context, userID int64, event notify.Event, data notify.Data) error {
	url, err := m.db.NotificationConfigs.GetDestination(userID, ModuleKey)
	if err != nil {
		return fmt.Errorf("failed to load webhook destination: %w", err)
	}
	if url == "" {
		return fmt.Errorf("no webhook destination configured for user %d", userID)
	}

	order := data.Order
	body, err := json.Marshal(payload{
		Event:       string(event),
		OrderID:     order.ID,
		OrderNumber: nullableString(order.OrderNumber.Valid, order.OrderNumber.String),
		VendorName:  nullableString(order.VendorName.Valid, order.VendorName.String),
		Status:      order.Status,
		Tracking:    nullableString(order.TrackingNumber.Valid, order.TrackingNumber.String),
		Carrier:     nullableString(order.Carrier.Valid, order.Carrier.String),
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach webhook endpoint: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func nullableString(valid bool, value string) *string {
	if !valid {
		return nil
	}
	return &value
}

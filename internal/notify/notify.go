// Package notify implements notifier fan-out: on order create/update,
// every enabled notifier module with a per-user, per-event subscription
// is invoked, failures logged and never propagated (§4.8, §7).
package notify

import (
	"context"
	"log/slog"
	"sync"

	"ordertracker/internal/database"
)

// Event is the classified notification event a processor tick fires
// after create_or_update_order (§4.4 step 6).
type Event string

const (
	EventNewOrder         Event = "NEW_ORDER"
	EventPackageDelivered Event = "PACKAGE_DELIVERED"
	EventTrackingUpdate   Event = "TRACKING_UPDATE"
)

// Data is the payload handed to every invoked notifier.
type Data struct {
	Order *database.Order
}

// Notifier is the capability-set method a notifier module implements
// (§9: "Notify" as an optional-but-typed method).
type Notifier interface {
	Key() string
	Notify(ctx context.Context, userID int64, event Event, data Data) error
}

// Registry enumerates the currently enabled notifiers. Implemented by
// internal/modules.Registry.
type Registry interface {
	EnabledNotifiers() []Notifier
}

// Fanout calls notify_user semantics: every enabled notifier module is
// invoked concurrently for users subscribed to this module+event,
// failures logged and swallowed so no caller ever fails because a
// notifier failed (§4.8, §7 propagation policy).
func Fanout(ctx context.Context, db *database.DB, registry Registry, logger *slog.Logger, userID int64, event Event, data Data) {
	notifiers := registry.EnabledNotifiers()
	if len(notifiers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, n := range notifiers {
		subscribed, err := db.NotificationConfigs.IsSubscribed(userID, n.Key(), string(event))
		if err != nil {
			logger.Error("failed to check notification subscription", "module", n.Key(), "error", err)
			continue
		}
		if !subscribed {
			continue
		}

		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := n.Notify(ctx, userID, event, data); err != nil {
				logger.Error("notifier failed", "module", n.Key(), "user_id", userID, "event", event, "error", err)
			}
		}(n)
	}
	wg.Wait()
}

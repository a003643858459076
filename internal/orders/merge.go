package orders

import (
	"fmt"

	"ordertracker/internal/database"
)

// Merge links two orders owned by the same user: source's blank
// tracking_number/carrier are filled from target, target's status is
// adopted if it is past the initial state, target's OrderState history
// is reparented onto source, and target is deleted (§4.7). One
// transaction.
func Merge(db *database.DB, sourceID, targetID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	source, err := db.Orders.GetByID(sourceID)
	if err != nil {
		return fmt.Errorf("failed to load source order: %w", err)
	}
	target, err := db.Orders.GetByID(targetID)
	if err != nil {
		return fmt.Errorf("failed to load target order: %w", err)
	}
	if source == nil || target == nil {
		return fmt.Errorf("merge requires both orders to exist")
	}
	if source.UserID != target.UserID {
		return fmt.Errorf("cannot merge orders owned by different users")
	}

	if !source.TrackingNumber.Valid && target.TrackingNumber.Valid {
		source.TrackingNumber = target.TrackingNumber
	}
	if !source.Carrier.Valid && target.Carrier.Valid {
		source.Carrier = target.Carrier
	}
	if target.Status != database.OrderStatusOrdered {
		source.Status = target.Status
	}

	if err := db.Orders.UpdateFields(tx, source); err != nil {
		return fmt.Errorf("failed to update merged source order: %w", err)
	}
	if err := db.OrderStates.Reparent(tx, targetID, sourceID); err != nil {
		return fmt.Errorf("failed to reparent order states: %w", err)
	}
	if err := db.Orders.Delete(tx, targetID); err != nil {
		return fmt.Errorf("failed to delete merged target order: %w", err)
	}

	return tx.Commit()
}

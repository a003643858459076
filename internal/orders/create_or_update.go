package orders

import (
	"database/sql"
	"fmt"
	"time"

	"ordertracker/internal/database"
)

// Outcome tells the processor which notification event applies (§4.4
// step 6): IsNewOrder selects NEW_ORDER, otherwise the resulting status
// distinguishes PACKAGE_DELIVERED from TRACKING_UPDATE. StatusChanged
// reports whether the update changed the order's status.
type Outcome struct {
	Order         *database.Order
	IsNewOrder    bool
	StatusChanged bool
}

// CreateOrUpdate applies one analyzer result within tx, either inserting
// a new order or filling blanks on an existing match (§4.6). existing
// must come from Match and may be nil. The caller commits tx.
func CreateOrUpdate(db *database.DB, tx *sql.Tx, userID int64, existing *database.Order, result AnalysisResult, sourceType, sourceInfo string) (Outcome, error) {
	itemsJSON, err := encodeItems(result.Items)
	if err != nil {
		return Outcome{}, err
	}

	if existing == nil {
		return createNew(db, tx, userID, result, itemsJSON, sourceType, sourceInfo)
	}
	return updateExisting(db, tx, existing, result, itemsJSON, sourceType, sourceInfo)
}

func createNew(db *database.DB, tx *sql.Tx, userID int64, result AnalysisResult, itemsJSON, sourceType, sourceInfo string) (Outcome, error) {
	status := result.Status
	if status == "" {
		status = database.OrderStatusOrdered
	}

	order := &database.Order{
		UserID:            userID,
		OrderNumber:       nullableString(result.OrderNumber),
		TrackingNumber:    nullableString(result.TrackingNumber),
		Carrier:           nullableString(result.Carrier),
		VendorName:        nullableString(result.VendorName),
		VendorDomain:      nullableString(result.VendorDomain),
		Status:            status,
		OrderDate:         nullableDate(result.OrderDate),
		Total:             nullableFloat(result.TotalAmount),
		Currency:          nullableString(result.Currency),
		ItemsJSON:         nullableString(itemsJSON),
		EstimatedDelivery: nullableDate(result.EstimatedDelivery),
	}

	id, err := db.Orders.Create(tx, order)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create order: %w", err)
	}
	order.ID = id

	if _, err := db.OrderStates.Append(tx, &database.OrderState{
		OrderID:    id,
		Status:     status,
		SourceType: sourceType,
		SourceInfo: nullableString(sourceInfo),
	}); err != nil {
		return Outcome{}, fmt.Errorf("failed to append initial order state: %w", err)
	}

	return Outcome{Order: order, IsNewOrder: true, StatusChanged: true}, nil
}

func updateExisting(db *database.DB, tx *sql.Tx, existing *database.Order, result AnalysisResult, itemsJSON, sourceType, sourceInfo string) (Outcome, error) {
	updated := *existing

	// Fill blanks only: never overwrite an already-set tracking_number or
	// carrier (§4.6).
	if !updated.TrackingNumber.Valid && result.TrackingNumber != "" {
		updated.TrackingNumber = nullableString(result.TrackingNumber)
	}
	if !updated.Carrier.Valid && result.Carrier != "" {
		updated.Carrier = nullableString(result.Carrier)
	}
	if !updated.OrderNumber.Valid && result.OrderNumber != "" {
		updated.OrderNumber = nullableString(result.OrderNumber)
	}
	if !updated.VendorName.Valid && result.VendorName != "" {
		updated.VendorName = nullableString(result.VendorName)
	}
	if !updated.VendorDomain.Valid && result.VendorDomain != "" {
		updated.VendorDomain = nullableString(result.VendorDomain)
	}
	if !updated.Currency.Valid && result.Currency != "" {
		updated.Currency = nullableString(result.Currency)
	}
	if !updated.Total.Valid && result.TotalAmount != nil {
		updated.Total = nullableFloat(result.TotalAmount)
	}
	if !updated.ItemsJSON.Valid && itemsJSON != "" {
		updated.ItemsJSON = nullableString(itemsJSON)
	}

	// Always accept a newer estimated_delivery, never an earlier one
	// clobbering a later-known date (§4.6).
	if candidate := nullableDate(result.EstimatedDelivery); candidate.Valid {
		if !updated.EstimatedDelivery.Valid || candidate.Time.After(updated.EstimatedDelivery.Time) {
			updated.EstimatedDelivery = candidate
		}
	}

	statusChanged := false
	if result.Status != "" && result.Status != updated.Status {
		updated.Status = result.Status
		statusChanged = true
	}

	if err := db.Orders.UpdateFields(tx, &updated); err != nil {
		return Outcome{}, fmt.Errorf("failed to update order: %w", err)
	}

	if statusChanged {
		if _, err := db.OrderStates.Append(tx, &database.OrderState{
			OrderID:    updated.ID,
			Status:     updated.Status,
			SourceType: sourceType,
			SourceInfo: nullableString(sourceInfo),
		}); err != nil {
			return Outcome{}, fmt.Errorf("failed to append order state: %w", err)
		}
	}

	return Outcome{Order: &updated, IsNewOrder: false, StatusChanged: statusChanged}, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullableDate(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

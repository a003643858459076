package database

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	OrderStatusOrdered           = "ordered"
	OrderStatusShipmentPreparing = "shipment_preparing"
	OrderStatusShipped           = "shipped"
	OrderStatusInTransit         = "in_transit"
	OrderStatusOutForDelivery    = "out_for_delivery"
	OrderStatusDelivered         = "delivered"
)

// OrderItem is one line item within Order.Items, stored as JSON.
type OrderItem struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    *float64 `json:"price,omitempty"`
}

// Order is a per-user purchase tracked from confirmation through delivery.
type Order struct {
	ID                int64
	UserID            int64
	OrderNumber       sql.NullString
	TrackingNumber    sql.NullString
	Carrier           sql.NullString
	VendorName        sql.NullString
	VendorDomain      sql.NullString
	Status            string
	OrderDate         sql.NullTime
	Total             sql.NullFloat64
	Currency          sql.NullString
	ItemsJSON         sql.NullString
	EstimatedDelivery sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderStore provides access to the orders table.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Create(tx *sql.Tx, o *Order) (int64, error) {
	result, err := tx.Exec(`
		INSERT INTO orders
			(user_id, order_number, tracking_number, carrier, vendor_name, vendor_domain,
			 status, order_date, total, currency, items, estimated_delivery)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, o.OrderNumber, o.TrackingNumber, o.Carrier, o.VendorName, o.VendorDomain,
		o.Status, o.OrderDate, o.Total, o.Currency, o.ItemsJSON, o.EstimatedDelivery,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return result.LastInsertId()
}

func (s *OrderStore) GetByID(id int64) (*Order, error) {
	row := s.db.QueryRow(orderSelect+" WHERE id = ?", id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// GetByOrderNumber implements matcher rule 1 (§4.5).
func (s *OrderStore) GetByOrderNumber(userID int64, orderNumber string) (*Order, error) {
	row := s.db.QueryRow(orderSelect+" WHERE user_id = ? AND order_number = ?", userID, orderNumber)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// GetByTrackingNumber implements matcher rule 2 (§4.5).
func (s *OrderStore) GetByTrackingNumber(userID int64, trackingNumber string) (*Order, error) {
	row := s.db.QueryRow(orderSelect+" WHERE user_id = ? AND tracking_number = ?", userID, trackingNumber)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// ListRecentByVendorDomain returns the limit most recent orders for the
// user with the given vendor_domain, for matcher rule 3 (§4.5).
func (s *OrderStore) ListRecentByVendorDomain(userID int64, vendorDomain string, limit int) ([]*Order, error) {
	rows, err := s.db.Query(
		orderSelect+" WHERE user_id = ? AND vendor_domain = ? ORDER BY created_at DESC LIMIT ?",
		userID, vendorDomain, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by vendor domain: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateFields applies a blanks-only-fill update within tx, per §4.6.
func (s *OrderStore) UpdateFields(tx *sql.Tx, o *Order) error {
	_, err := tx.Exec(`
		UPDATE orders SET
			order_number = ?, tracking_number = ?, carrier = ?, vendor_name = ?, vendor_domain = ?,
			status = ?, order_date = ?, total = ?, currency = ?, items = ?, estimated_delivery = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		o.OrderNumber, o.TrackingNumber, o.Carrier, o.VendorName, o.VendorDomain,
		o.Status, o.OrderDate, o.Total, o.Currency, o.ItemsJSON, o.EstimatedDelivery, o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// Delete removes an order, used by the linking/merge operation (§4.7).
func (s *OrderStore) Delete(tx *sql.Tx, id int64) error {
	if _, err := tx.Exec("DELETE FROM orders WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

const orderSelect = `
	SELECT id, user_id, order_number, tracking_number, carrier, vendor_name, vendor_domain,
	       status, order_date, total, currency, items, estimated_delivery, created_at, updated_at
	FROM orders`

func scanOrder(row *sql.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.TrackingNumber, &o.Carrier, &o.VendorName,
		&o.VendorDomain, &o.Status, &o.OrderDate, &o.Total, &o.Currency, &o.ItemsJSON,
		&o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrderRow(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.TrackingNumber, &o.Carrier, &o.VendorName,
		&o.VendorDomain, &o.Status, &o.OrderDate, &o.Total, &o.Currency, &o.ItemsJSON,
		&o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &o, nil
}

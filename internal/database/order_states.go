package database

import (
	"database/sql"
	"fmt"
	"time"
)

// OrderState is an append-only audit entry recording a status transition.
type OrderState struct {
	ID         int64
	OrderID    int64
	Status     string
	SourceType string
	SourceInfo sql.NullString
	CreatedAt  time.Time
}

// OrderStateStore provides access to the order_states table.
type OrderStateStore struct {
	db *sql.DB
}

func NewOrderStateStore(db *sql.DB) *OrderStateStore {
	return &OrderStateStore{db: db}
}

// Append inserts a new state row within tx. Callers must only call this
// when Order.Status actually changed (§3 invariant 5).
func (s *OrderStateStore) Append(tx *sql.Tx, state *OrderState) (int64, error) {
	result, err := tx.Exec(
		`INSERT INTO order_states (order_id, status, source_type, source_info) VALUES (?, ?, ?, ?)`,
		state.OrderID, state.Status, state.SourceType, state.SourceInfo,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append order state: %w", err)
	}
	return result.LastInsertId()
}

func (s *OrderStateStore) ListByOrder(orderID int64) ([]*OrderState, error) {
	rows, err := s.db.Query(
		`SELECT id, order_id, status, source_type, source_info, created_at
		 FROM order_states WHERE order_id = ? ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order states: %w", err)
	}
	defer rows.Close()

	var out []*OrderState
	for rows.Next() {
		var st OrderState
		if err := rows.Scan(&st.ID, &st.OrderID, &st.Status, &st.SourceType, &st.SourceInfo, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order state: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// Reparent moves every state row from one order to another, for the
// order-linking merge operation (§4.7).
func (s *OrderStateStore) Reparent(tx *sql.Tx, fromOrderID, toOrderID int64) error {
	_, err := tx.Exec("UPDATE order_states SET order_id = ? WHERE order_id = ?", toOrderID, fromOrderID)
	if err != nil {
		return fmt.Errorf("failed to reparent order states: %w", err)
	}
	return nil
}

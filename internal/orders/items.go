package orders

import (
	"encoding/json"
	"fmt"

	"ordertracker/internal/database"
)

func decodeItems(raw string) ([]Item, error) {
	if raw == "" {
		return nil, nil
	}
	var stored []database.OrderItem
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	items := make([]Item, 0, len(stored))
	for _, it := range stored {
		items = append(items, Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return items, nil
}

func encodeItems(items []Item) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	stored := make([]database.OrderItem, 0, len(items))
	for _, it := range items {
		stored = append(stored, database.OrderItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	return string(raw), nil
}

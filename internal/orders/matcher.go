package orders

import (
	"fmt"
	"strings"

	"ordertracker/internal/database"
)

const recentVendorWindow = 5

// Match resolves an analyzer result against a user's existing orders, in
// priority order, first match wins (§4.5):
//  1. exact order_number
//  2. exact tracking_number
//  3. vendor_domain + case-insensitive item-name overlap among the 5
//     most recent orders for that vendor_domain
//  4. no match
func Match(db *database.DB, userID int64, result AnalysisResult) (*database.Order, error) {
	if result.OrderNumber != "" {
		order, err := db.Orders.GetByOrderNumber(userID, result.OrderNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to match by order number: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}

	if result.TrackingNumber != "" {
		order, err := db.Orders.GetByTrackingNumber(userID, result.TrackingNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to match by tracking number: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}

	if result.VendorDomain != "" && len(result.Items) > 0 {
		candidates, err := db.Orders.ListRecentByVendorDomain(userID, result.VendorDomain, recentVendorWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to list vendor candidates: %w", err)
		}
		for _, candidate := range candidates {
			if itemNamesOverlap(candidate, result.Items) {
				return candidate, nil
			}
		}
	}

	return nil, nil
}

func itemNamesOverlap(candidate *database.Order, items []Item) bool {
	if !candidate.ItemsJSON.Valid {
		return false
	}
	stored, err := decodeItems(candidate.ItemsJSON.String)
	if err != nil {
		return false
	}

	storedNames := make(map[string]bool, len(stored))
	for _, it := range stored {
		storedNames[strings.ToLower(it.Name)] = true
	}
	for _, it := range items {
		if storedNames[strings.ToLower(it.Name)] {
			return true
		}
	}
	return false
}

// Package orders implements the priority-based order matcher and the
// create/update/merge logic that turns one analyzer result into an
// Order mutation (§4.5, §4.6, §4.7).
package orders

// AnalysisResult is the validated analyzer output schema (§6). Status is
// either empty or one of the database.OrderStatus* constants; the analyzer
// module is responsible for rejecting anything else.
type AnalysisResult struct {
	IsRelevant        bool
	EmailType         string
	OrderNumber       string
	TrackingNumber    string
	Carrier           string
	VendorName        string
	VendorDomain      string
	Status            string
	OrderDate         string // YYYY-MM-DD
	EstimatedDelivery string // YYYY-MM-DD
	TotalAmount       *float64
	Currency          string
	Items             []Item
}

// Item mirrors one entry of AnalysisResult.Items.
type Item struct {
	Name     string
	Quantity int
	Price    *float64
}

// Relevant reports whether the analyzer produced a usable result: a
// response is only relevant when at least one of order_number /
// tracking_number is present (§6).
func (r AnalysisResult) Relevant() bool {
	return r.IsRelevant && (r.OrderNumber != "" || r.TrackingNumber != "")
}

// Package llm implements the pluggable analyzer module: it sends a
// captured email's subject/sender/body to a configured LLM endpoint and
// parses the response into the analyzer output schema (§6).
package llm

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
	"ordertracker/internal/orders"
	"ordertracker/internal/processor"
	"ordertracker/internal/queue"
	"ordertracker/internal/secrets"
)

const ModuleKey = "llm"

var validEmailTypes = map[string]bool{
	"order_confirmation":    true,
	"shipment_confirmation": true,
	"shipment_update":       true,
	"delivery_confirmation": true,
}

var validStatuses = map[string]bool{
	database.OrderStatusOrdered:           true,
	database.OrderStatusShipmentPreparing: true,
	database.OrderStatusShipped:           true,
	database.OrderStatusInTransit:         true,
	database.OrderStatusOutForDelivery:    true,
	database.OrderStatusDelivered:         true,
}

// Module calls a configured LLM endpoint to extract order/shipment
// information from captured email content.
type Module struct {
	db         *database.DB
	box        *secrets.Box
	httpClient *http.Client
}

func New(db *database.DB, box *secrets.Box) *Module {
	return &Module{
		db:         db,
		box:        box,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *Module) Manifest() modules.Manifest {
	return modules.Manifest{
		Key:         ModuleKey,
		Name:        "LLM Analyzer",
		Type:        modules.TypeAnalyzer,
		Version:     "1.0.0",
		Description: "Extracts order and shipment details from email content via a language model.",
	}
}

// IsConfigured reports whether an API key and base URL are present
// (§4.4 step 1: "no analyzer module is currently enabled and
// is_configured()").
func (m *Module) IsConfigured() bool {
	cfg, err := database.GetLLMConfig(m.db.DB)
	if err != nil {
		return false
	}
	return cfg.APIBaseURL != "" && cfg.EncryptedAPIKey != ""
}

type completionRequest struct {
	Model    string             `json:"model"`
	Messages []completionMsg    `json:"messages"`
}

type completionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// rawAnalysis mirrors the JSON schema an LLM response must conform to
// (§6 "Analyzer output schema").
type rawAnalysis struct {
	IsRelevant        bool    `json:"is_relevant"`
	EmailType         *string `json:"email_type"`
	OrderNumber       *string `json:"order_number"`
	TrackingNumber    *string `json:"tracking_number"`
	Carrier           *string `json:"carrier"`
	VendorName        *string `json:"vendor_name"`
	VendorDomain      *string `json:"vendor_domain"`
	Status            string  `json:"status"`
	OrderDate         *string `json:"order_date"`
	EstimatedDelivery *string `json:"estimated_delivery"`
	TotalAmount       *float64 `json:"total_amount"`
	Currency          *string `json:"currency"`
	Items             []struct {
		Name     string   `json:"name"`
		Quantity int      `json:"quantity"`
		Price    *float64 `json:"price"`
	} `json:"items"`
}

// Analyze calls the LLM endpoint and parses its response, retrying the
// parse once on malformed output before giving up (§7 error taxonomy
// item 2).
func (m *Module) Analyze(ctx context.Context, rawData string) (processor.AnalyzeOutcome, error) {
	captured, err := queue.DecodeRawData(rawData)
	if err != nil {
		return processor.AnalyzeOutcome{}, fmt.Errorf("failed to decode queue raw data: %w", err)
	}

	cfg, err := database.GetLLMConfig(m.db.DB)
	if err != nil {
		return processor.AnalyzeOutcome{}, fmt.Errorf("failed to load llm config: %w", err)
	}
	apiKey, err := m.box.Decrypt(cfg.EncryptedAPIKey)
	if err != nil {
		return processor.AnalyzeOutcome{}, fmt.Errorf("failed to decrypt llm api key: %w", err)
	}

	var lastRaw string
	for attempt := 0; attempt < 2; attempt++ {
		rawResponse, err := m.callCompletion(ctx, cfg.APIBaseURL, apiKey, cfg.Model, captured)
		if err != nil {
			return processor.AnalyzeOutcome{}, fmt.Errorf("failed to call llm endpoint: %w", err)
		}
		lastRaw = rawResponse

		result, ok := parseAnalysis(rawResponse)
		if ok {
			return processor.AnalyzeOutcome{Result: &result, RawResponse: rawResponse}, nil
		}
	}

	return processor.AnalyzeOutcome{Malformed: true, RawResponse: lastRaw}, nil
}

func (m *Module) callCompletion(ctx context.Context, baseURL, apiKey, model string, captured queue.RawData) (string, error) {
	prompt := fmt.Sprintf(
		"Extract order/shipment details as JSON.\nSubject: %s\nFrom: %s\nBody:\n%s",
		captured.Subject, captured.Sender, captured.Body,
	)

	body, err := json.Marshal(completionRequest{
		Model: model,
		Messages: []completionMsg{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach llm endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read llm response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("llm endpoint returned status %d: %s", resp.StatusCode, respBody)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("failed to decode llm envelope: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("llm response contained no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// parseAnalysis validates a raw LLM response against the analyzer
// output schema; any structural or value mismatch is reported as not ok
// rather than an error, so the caller can retry or give up (§6, §7.2).
func parseAnalysis(raw string) (orders.AnalysisResult, bool) {
	var r rawAnalysis
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return orders.AnalysisResult{}, false
	}
	if r.Status != "" && !validStatuses[r.Status] {
		return orders.AnalysisResult{}, false
	}
	if r.EmailType != nil && !validEmailTypes[*r.EmailType] {
		return orders.AnalysisResult{}, false
	}

	items := make([]orders.Item, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Quantity < 1 {
			return orders.AnalysisResult{}, false
		}
		items = append(items, orders.Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}

	return orders.AnalysisResult{
		IsRelevant:        r.IsRelevant,
		EmailType:         deref(r.EmailType),
		OrderNumber:       deref(r.OrderNumber),
		TrackingNumber:    deref(r.TrackingNumber),
		Carrier:           deref(r.Carrier),
		VendorName:        deref(r.VendorName),
		VendorDomain:      deref(r.VendorDomain),
		Status:            r.Status,
		OrderDate:         deref(r.OrderDate),
		EstimatedDelivery: deref(r.EstimatedDelivery),
		TotalAmount:       r.TotalAmount,
		Currency:          deref(r.Currency),
		Items:             items,
	}, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ordertracker/internal/database"
	"ordertracker/internal/secrets"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBox(t *testing.T) *secrets.Box {
	t.Helper()
	box, err := secrets.NewBox([]byte("01234567890123456789012345678901"))
	require.NoError(t, err)
	return box
}

func setLLMConfig(t *testing.T, db *database.DB, box *secrets.Box, baseURL string) {
	t.Helper()
	encryptedKey, err := box.Encrypt("test-api-key")
	require.NoError(t, err)
	_, err = db.DB.Exec(
		"UPDATE llm_configs SET provider = ?, api_base_url = ?, encrypted_api_key = ?, model = ? WHERE id = 1",
		"openai", baseURL, encryptedKey, "gpt-test",
	)
	require.NoError(t, err)
}

func TestIsConfiguredFalseWithDefaults(t *testing.T) {
	db := openTestDB(t)
	m := New(db, testBox(t))
	require.False(t, m.IsConfigured())
}

func TestIsConfiguredTrueOnceSet(t *testing.T) {
	db := openTestDB(t)
	box := testBox(t)
	setLLMConfig(t, db, box, "https://llm.example.com")

	m := New(db, box)
	require.True(t, m.IsConfigured())
}

func rawDataJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"subject":    "Your order has shipped",
		"sender":     "orders@shop.example.com",
		"body":       "Order #123 shipped via UPS, tracking 1Z999",
		"message_id": "<abc@shop.example.com>",
	})
	require.NoError(t, err)
	return string(b)
}

func TestAnalyzeParsesValidResponseOnFirstAttempt(t *testing.T) {
	db := openTestDB(t)
	box := testBox(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		content := `{"is_relevant":true,"email_type":"shipment_confirmation","order_number":"123","tracking_number":"1Z999","status":"shipped"}`
		writeCompletion(w, content)
	}))
	defer srv.Close()
	setLLMConfig(t, db, box, srv.URL)

	m := New(db, box)
	outcome, err := m.Analyze(context.Background(), rawDataJSON(t))
	require.NoError(t, err)
	require.False(t, outcome.Malformed)
	require.NotNil(t, outcome.Result)
	require.True(t, outcome.Result.IsRelevant)
	require.Equal(t, "123", outcome.Result.OrderNumber)
	require.Equal(t, database.OrderStatusShipped, outcome.Result.Status)
}

func TestAnalyzeRetriesOnceThenReportsMalformed(t *testing.T) {
	db := openTestDB(t)
	box := testBox(t)

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeCompletion(w, "not valid json at all")
	}))
	defer srv.Close()
	setLLMConfig(t, db, box, srv.URL)

	m := New(db, box)
	outcome, err := m.Analyze(context.Background(), rawDataJSON(t))
	require.NoError(t, err)
	require.True(t, outcome.Malformed)
	require.Nil(t, outcome.Result)
	require.Equal(t, 2, calls)
}

func TestAnalyzePropagatesHTTPErrorStatus(t *testing.T) {
	db := openTestDB(t)
	box := testBox(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()
	setLLMConfig(t, db, box, srv.URL)

	m := New(db, box)
	_, err := m.Analyze(context.Background(), rawDataJSON(t))
	require.Error(t, err)
}

func TestParseAnalysisRejectsUnknownStatus(t *testing.T) {
	raw := `{"is_relevant":true,"status":"teleported"}`
	_, ok := parseAnalysis(raw)
	require.False(t, ok)
}

func TestParseAnalysisRejectsUnknownEmailType(t *testing.T) {
	emailType := "spam"
	raw, err := json.Marshal(rawAnalysis{IsRelevant: false, EmailType: &emailType})
	require.NoError(t, err)
	_, ok := parseAnalysis(string(raw))
	require.False(t, ok)
}

func TestParseAnalysisRejectsNonPositiveItemQuantity(t *testing.T) {
	raw := `{"is_relevant":true,"items":[{"name":"widget","quantity":0}]}`
	_, ok := parseAnalysis(raw)
	require.False(t, ok)
}

func TestParseAnalysisAcceptsMinimalValidPayload(t *testing.T) {
	raw := `{"is_relevant":false}`
	result, ok := parseAnalysis(raw)
	require.True(t, ok)
	require.False(t, result.IsRelevant)
	require.Empty(t, result.OrderNumber)
}

func writeCompletion(w http.ResponseWriter, content string) {
	envelope := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(envelope)
}

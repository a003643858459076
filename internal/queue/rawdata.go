package queue

import (
	"encoding/json"
	"fmt"
)

// RawData is the queue item raw_data schema (§6): the captured headers
// and body a watcher hands to the queue, and the analyzer later reads
// back out during processing.
type RawData struct {
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	MessageID string `json:"message_id"`
	EmailUID  int    `json:"email_uid"`
	EmailDate string `json:"email_date,omitempty"` // ISO-8601 or absent
}

// Encode serializes RawData to the JSON string stored in QueueItem.RawData.
func (r RawData) Encode() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode raw data: %w", err)
	}
	return string(raw), nil
}

// DecodeRawData parses a stored QueueItem.RawData string.
func DecodeRawData(raw string) (RawData, error) {
	var r RawData
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return RawData{}, fmt.Errorf("failed to decode raw data: %w", err)
	}
	return r, nil
}

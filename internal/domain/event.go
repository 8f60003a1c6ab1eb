package domain

import "time"

// EventStatus marks how far an accepted notification got through processing.
type EventStatus string

const (
	EventStatusProcessed EventStatus = "processed"
	EventStatusPending   EventStatus = "pending"
	EventStatusFailed    EventStatus = "failed"
)

// IntegrationEvent is the normalized, persisted record of a verified
// notification. Its connection is always the one whose credential bundle
// verified the notification; unattributed notifications never produce one.
// The payload is a structured snapshot selected after verification and
// enrichment, never the raw inbound body.
type IntegrationEvent struct {
	ID              string         `json:"id"`
	ConnectionID    string         `json:"connection_id"`
	ProviderCode    string         `json:"provider_code"`
	EventType       string         `json:"event_type"`
	ProviderEventID string         `json:"provider_event_id,omitempty"`
	Payload         map[string]any `json:"payload"`
	Status          EventStatus    `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
}

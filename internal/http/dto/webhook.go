package dto

import "encoding/json"

// WebhookRequest is the envelope every upstream sender posts: an event name
// and an opaque params object decoded later by the worker.
type WebhookRequest struct {
	Event  string          `json:"event" binding:"required"`
	Params json.RawMessage `json:"params" binding:"required"`
}

type WebhookResponse struct {
	EventLogID int64  `json:"event_log_id"`
	DedupeKey  string `json:"dedupe_key"`
	Enqueued   bool   `json:"enqueued"`
	Duplicated bool   `json:"duplicated"`
}

type EventStatusResponse struct {
	EventLogID int64   `json:"event_log_id"`
	EventID    string  `json:"event_id"`
	Kind       string  `json:"kind"`
	Status     string  `json:"status"`
	Attempts   int     `json:"attempts"`
	LastError  *string `json:"last_error,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

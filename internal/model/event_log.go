package model

import (
	"encoding/json"
	"time"
)

type EventLogStatus string

const (
	EventLogStatusReceived  EventLogStatus = "received"
	EventLogStatusProcessed EventLogStatus = "processed"
	EventLogStatusFailed    EventLogStatus = "failed"
)

// EventKind names a webhook event type this service processes.
type EventKind string

const (
	EventKindNewUser        EventKind = "new_user"
	EventKindTransfer       EventKind = "new_transaction"
	EventKindSwap           EventKind = "swap"
	EventKindIsolatedReward EventKind = "isolated_reward"
	EventKindVesting        EventKind = "new_vesting"
)

// EventLog is one received webhook delivery, persisted in Postgres before the
// event is enqueued. DedupeKey is kind:eventId so redeliveries collapse onto
// the same row.
type EventLog struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	DedupeKey string          `json:"dedupe_key"`
	Status    EventLogStatus  `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError *string         `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

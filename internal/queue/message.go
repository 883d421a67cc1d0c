package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/grindery-io/wallet-api/internal/model"
)

// MessageProcessor processes a queue message.
type MessageProcessor func(ctx context.Context, msg Message) error

// Message is one webhook delivery in flight on the stream. Payload is the raw
// webhook params JSON; the worker decodes it per Kind.
type Message struct {
	ID         string
	EventLogID int64
	EventID    string
	Kind       model.EventKind
	Payload    string
	Attempt    int
	TraceID    string
	Raw        redis.XMessage
}

// ParseMessage decodes a raw stream entry. Malformed entries are rejected so
// the consumer can ack and drop them instead of looping on them forever.
func ParseMessage(msg redis.XMessage) (Message, error) {
	eventLogID, err := parseInt64(msg.Values, "event_log_id")
	if err != nil {
		return Message{}, err
	}
	eventID, err := parseString(msg.Values, "event_id")
	if err != nil {
		return Message{}, err
	}
	kind, err := parseString(msg.Values, "kind")
	if err != nil {
		return Message{}, err
	}
	payload, err := parseString(msg.Values, "payload")
	if err != nil {
		return Message{}, err
	}

	attempt := parseOptionalInt(msg.Values, "attempt")
	if attempt == 0 {
		attempt = 1
	}

	switch model.EventKind(kind) {
	case model.EventKindNewUser, model.EventKindTransfer, model.EventKindSwap,
		model.EventKindIsolatedReward, model.EventKindVesting:
	default:
		return Message{}, fmt.Errorf("unknown kind %q", kind)
	}

	return Message{
		ID:         msg.ID,
		EventLogID: eventLogID,
		EventID:    eventID,
		Kind:       model.EventKind(kind),
		Payload:    payload,
		Attempt:    attempt,
		TraceID:    parseOptionalString(msg.Values, "trace_id"),
		Raw:        msg,
	}, nil
}

func messageValues(msg Message, attempt int) map[string]any {
	values := map[string]any{
		"event_log_id": msg.EventLogID,
		"event_id":     msg.EventID,
		"kind":         string(msg.Kind),
		"payload":      msg.Payload,
		"attempt":      attempt,
	}
	if msg.TraceID != "" {
		values["trace_id"] = msg.TraceID
	}
	return values
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) int {
	raw, ok := values[key]
	if !ok {
		return 0
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0
	}
	return num
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}

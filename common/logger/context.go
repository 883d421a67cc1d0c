package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so the operation being processed
// (event_id, op_kind, etc.) shows up on every log statement without threading
// attributes manually.
type LogFields struct {
	EventID        *string // client-supplied idempotency key of the operation
	EventLogID     *int64  // webhook event log row id
	OpKind         *string // operation kind (e.g. "new_transaction", "swap")
	Reason         *string // reward reason, where applicable
	UserTelegramID *string // subject of the operation
	MessageID      *string // Redis stream message ID
	Attempt        *int    // delivery attempt
	Component      string  // component name (e.g. "wallet.queue.consumer")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.EventID != nil {
		result.EventID = next.EventID
	}
	if next.EventLogID != nil {
		result.EventLogID = next.EventLogID
	}
	if next.OpKind != nil {
		result.OpKind = next.OpKind
	}
	if next.Reason != nil {
		result.Reason = next.Reason
	}
	if next.UserTelegramID != nil {
		result.UserTelegramID = next.UserTelegramID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Attempt != nil {
		result.Attempt = next.Attempt
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{EventID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/grindery-io/wallet-api/common/id"
	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/queue"
	"github.com/grindery-io/wallet-api/internal/store"
)

var ErrUnknownKind = errors.New("unknown event kind")

type EventIngestParams struct {
	Kind    model.EventKind
	EventID string
	Payload json.RawMessage
	TraceID string
}

type EventIngestResult struct {
	EventLog   *model.EventLog
	DedupeKey  string
	Enqueued   bool
	Duplicated bool
}

// EventIngestService records an incoming webhook delivery and hands it to the
// queue. The dedupe key collapses redeliveries of the same logical event onto
// one log row, so a redelivered webhook is acknowledged without enqueueing a
// second time.
type EventIngestService interface {
	Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error)
}

type eventIngestService struct {
	eventLogs store.EventLogStore
	queue     queue.Producer
	logger    *slog.Logger
}

func NewEventIngestService(eventLogs store.EventLogStore, producer queue.Producer, logger *slog.Logger) EventIngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventIngestService{
		eventLogs: eventLogs,
		queue:     producer,
		logger:    logger,
	}
}

func (s *eventIngestService) Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error) {
	if params.EventID == "" {
		return nil, fmt.Errorf("eventId is required")
	}
	if len(params.Payload) == 0 {
		return nil, fmt.Errorf("payload is required")
	}
	switch params.Kind {
	case model.EventKindNewUser, model.EventKindTransfer, model.EventKindSwap,
		model.EventKindIsolatedReward, model.EventKindVesting:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, params.Kind)
	}

	dedupeKey := fmt.Sprintf("%s:%s", params.Kind, params.EventID)

	eventLog, created, err := s.eventLogs.CreateOrGet(ctx, &model.EventLog{
		ID:        id.New(),
		EventID:   params.EventID,
		Kind:      params.Kind,
		Payload:   params.Payload,
		DedupeKey: dedupeKey,
	})
	if err != nil {
		return nil, fmt.Errorf("recording event log: %w", err)
	}

	result := &EventIngestResult{
		EventLog:   eventLog,
		DedupeKey:  dedupeKey,
		Duplicated: !created,
	}

	// A duplicate that was never picked up means a previous delivery crashed
	// between the insert and the enqueue; re-enqueueing repairs it. Any other
	// duplicate is already in flight or finished.
	if !created && (eventLog.Status != model.EventLogStatusReceived || eventLog.Attempts > 0) {
		s.logger.InfoContext(ctx, "duplicate webhook delivery, not re-enqueueing",
			"event_id", params.EventID,
			"kind", params.Kind,
			"event_log_id", eventLog.ID,
			"status", eventLog.Status)
		return result, nil
	}

	if err := s.queue.Enqueue(ctx, queue.EventMessage{
		EventLogID: eventLog.ID,
		EventID:    params.EventID,
		Kind:       params.Kind,
		Payload:    string(params.Payload),
		TraceID:    params.TraceID,
	}); err != nil {
		return nil, fmt.Errorf("enqueueing event: %w", err)
	}

	result.Enqueued = true
	return result, nil
}

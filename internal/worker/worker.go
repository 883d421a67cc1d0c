package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grindery-io/wallet-api/common/logger"
	"github.com/grindery-io/wallet-api/internal/queue"
	"github.com/grindery-io/wallet-api/internal/service"
	"github.com/grindery-io/wallet-api/internal/store"
)

type Config struct {
	MaxAttempts int
}

// Worker drains the webhook event stream and maps each message's outcome to
// the delivery protocol: handled outcomes are acked, retry outcomes go back
// on the stream until MaxAttempts, then to the DLQ.
type Worker struct {
	consumer  Consumer
	eventLogs store.EventLogStore
	processor EventProcessor
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, eventLogs store.EventLogStore, processor EventProcessor, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		eventLogs: eventLogs,
		processor: processor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.ProcessMessage(ctx, msg)
	}

	return nil
}

// ProcessMessage runs one delivery end to end, including the ack/requeue/DLQ
// decision. Exported so it can be reused by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) {
	span := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message")
	defer span.End()

	kind := string(msg.Kind)
	ctx = logger.WithLogFields(span.Context(), logger.LogFields{
		EventID:    logger.Ptr(msg.EventID),
		EventLogID: logger.Ptr(msg.EventLogID),
		OpKind:     &kind,
		MessageID:  logger.Ptr(msg.ID),
		Attempt:    logger.Ptr(msg.Attempt),
		Component:  "wallet.worker",
	})

	slog.InfoContext(ctx, "processing message")

	if err := w.eventLogs.IncrementAttempts(ctx, msg.EventLogID); err != nil {
		slog.WarnContext(ctx, "failed to increment event log attempts", "error", err)
	}

	outcome, err := w.processSafe(ctx, msg)
	if err != nil || !outcome.Handled() {
		span.RecordError(err)
		w.handleRetry(ctx, msg, err)
		return
	}

	if err := w.eventLogs.MarkProcessed(ctx, msg.EventLogID); err != nil {
		// The operation result is durable in the document store; an event log
		// mark failure is not worth a replay of the whole delivery.
		slog.WarnContext(ctx, "failed to mark event log processed", "error", err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be reclaimed, but redelivery of a terminal operation
		// is a no-op.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	slog.InfoContext(ctx, "message processed", "outcome", outcome.String())
}

func (w *Worker) processSafe(ctx context.Context, msg queue.Message) (outcome service.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			outcome = service.OutcomeRetry
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.processor.Process(ctx, msg)
}

func (w *Worker) handleRetry(ctx context.Context, msg queue.Message, err error) {
	reason := "transient condition, retry"
	if err != nil {
		reason = err.Error()
	}

	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ", "error", err)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, reason); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
			return
		}
		if markErr := w.eventLogs.MarkFailed(ctx, msg.EventLogID, &reason); markErr != nil {
			slog.WarnContext(ctx, "failed to mark event log failed", "error", markErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing message", "reason", reason)
	if requeueErr := w.consumer.Requeue(ctx, msg, reason); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

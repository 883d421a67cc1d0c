package service_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/queue"
	"github.com/grindery-io/wallet-api/internal/service"
)

var _ = Describe("EventIngestService", func() {
	var (
		svc       service.EventIngestService
		eventLogs *mockEventLogStore
		producer  *mockProducer
		ctx       context.Context
	)

	payload := json.RawMessage(`{"eventId":"evt-1","amount":"10"}`)

	params := service.EventIngestParams{
		Kind:    model.EventKindTransfer,
		EventID: "evt-1",
		Payload: payload,
		TraceID: "trace-1",
	}

	BeforeEach(func() {
		ctx = context.Background()
		eventLogs = &mockEventLogStore{}
		producer = &mockProducer{}
		svc = service.NewEventIngestService(eventLogs, producer, nil)
	})

	It("records the event and enqueues it", func() {
		var recorded *model.EventLog
		eventLogs.createOrGetFn = func(_ context.Context, e *model.EventLog) (*model.EventLog, bool, error) {
			recorded = e
			return e, true, nil
		}

		result, err := svc.Ingest(ctx, params)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Enqueued).To(BeTrue())
		Expect(result.Duplicated).To(BeFalse())
		Expect(result.DedupeKey).To(Equal("new_transaction:evt-1"))
		Expect(recorded).NotTo(BeNil())
		Expect(recorded.ID).NotTo(BeZero())
		Expect(producer.enqueued).To(HaveLen(1))
		msg := producer.enqueued[0]
		Expect(msg.EventLogID).To(Equal(recorded.ID))
		Expect(msg.EventID).To(Equal("evt-1"))
		Expect(msg.Kind).To(Equal(model.EventKindTransfer))
		Expect(msg.Payload).To(Equal(string(payload)))
		Expect(msg.TraceID).To(Equal("trace-1"))
	})

	It("acknowledges a redelivery without enqueueing again", func() {
		eventLogs.createOrGetFn = func(_ context.Context, e *model.EventLog) (*model.EventLog, bool, error) {
			return &model.EventLog{
				ID:        42,
				EventID:   e.EventID,
				Kind:      e.Kind,
				DedupeKey: e.DedupeKey,
				Status:    model.EventLogStatusProcessed,
				Attempts:  1,
			}, false, nil
		}

		result, err := svc.Ingest(ctx, params)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Duplicated).To(BeTrue())
		Expect(result.Enqueued).To(BeFalse())
		Expect(producer.enqueued).To(BeEmpty())
	})

	It("re-enqueues a duplicate that was never picked up", func() {
		eventLogs.createOrGetFn = func(_ context.Context, e *model.EventLog) (*model.EventLog, bool, error) {
			return &model.EventLog{
				ID:        42,
				EventID:   e.EventID,
				Kind:      e.Kind,
				DedupeKey: e.DedupeKey,
				Status:    model.EventLogStatusReceived,
				Attempts:  0,
			}, false, nil
		}

		result, err := svc.Ingest(ctx, params)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Duplicated).To(BeTrue())
		Expect(result.Enqueued).To(BeTrue())
		Expect(producer.enqueued).To(HaveLen(1))
		Expect(producer.enqueued[0].EventLogID).To(Equal(int64(42)))
	})

	It("rejects an unknown event kind", func() {
		bad := params
		bad.Kind = "made_up"

		_, err := svc.Ingest(ctx, bad)

		Expect(err).To(MatchError(service.ErrUnknownKind))
		Expect(producer.enqueued).To(BeEmpty())
	})

	It("rejects a missing event id", func() {
		bad := params
		bad.EventID = ""

		_, err := svc.Ingest(ctx, bad)

		Expect(err).To(HaveOccurred())
	})

	It("surfaces enqueue failures so the caller can signal the sender", func() {
		producer.enqueueFn = func(_ context.Context, _ queue.EventMessage) error {
			return errors.New("stream unavailable")
		}

		_, err := svc.Ingest(ctx, params)

		Expect(err).To(MatchError(ContainSubstring("enqueueing event")))
	})
})

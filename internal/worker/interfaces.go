package worker

import (
	"context"

	"github.com/grindery-io/wallet-api/internal/queue"
	"github.com/grindery-io/wallet-api/internal/service"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// EventProcessor abstracts the per-kind dispatch for testability.
type EventProcessor interface {
	Process(ctx context.Context, msg queue.Message) (service.Outcome, error)
}

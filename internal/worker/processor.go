package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/queue"
	"github.com/grindery-io/wallet-api/internal/service"
)

// Processor dispatches one queue message to the operation service matching
// its kind.
type Processor struct {
	services *service.Services
}

func NewProcessor(services *service.Services) *Processor {
	return &Processor{services: services}
}

func (p *Processor) Process(ctx context.Context, msg queue.Message) (service.Outcome, error) {
	switch msg.Kind {
	case model.EventKindNewUser:
		var req service.NewUserRequest
		if err := decodePayload(msg, &req); err != nil {
			return service.OutcomeFailure, err
		}
		return p.services.NewUsers().HandleNewUser(ctx, req)

	case model.EventKindTransfer:
		var req service.TransferRequest
		if err := decodePayload(msg, &req); err != nil {
			return service.OutcomeFailure, err
		}
		return p.services.Transfers().HandleTransfer(ctx, req)

	case model.EventKindSwap:
		var req service.SwapRequest
		if err := decodePayload(msg, &req); err != nil {
			return service.OutcomeFailure, err
		}
		return p.services.Swaps().HandleSwap(ctx, req)

	case model.EventKindIsolatedReward:
		var req service.IsolatedRewardRequest
		if err := decodePayload(msg, &req); err != nil {
			return service.OutcomeFailure, err
		}
		return p.services.Rewards().IsolatedReward(ctx, req)

	case model.EventKindVesting:
		var req service.VestingRequest
		if err := decodePayload(msg, &req); err != nil {
			return service.OutcomeFailure, err
		}
		return p.services.Vestings().HandleVesting(ctx, req)

	default:
		return service.OutcomeFailure, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
}

func decodePayload(msg queue.Message, dst any) error {
	if err := json.Unmarshal([]byte(msg.Payload), dst); err != nil {
		return fmt.Errorf("decoding %s payload: %w", msg.Kind, err)
	}
	return nil
}

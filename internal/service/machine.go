package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/model"
)

// staleAfter bounds how long a mislaid asynchronous operation may sit in
// pending_hash before it is written off as failed.
const staleAfter = 10 * time.Minute

// State is the persisted slice of an operation record the machine transitions
// over. Values carries the base-unit amounts that would be submitted, used to
// classify malformed amounts as unrecoverable.
type State struct {
	Status     model.OpStatus
	UserOpHash string
	DateAdded  time.Time
	Values     []string
}

// StateChange is the delta the machine asks an operation to persist.
type StateChange struct {
	Status          model.OpStatus
	TransactionHash string
	UserOpHash      string
}

// Operation binds the machine to one persisted operation record. Submit sends
// the transaction to the gateway; Update persists a state change via the
// store's atomic upsert; OnSuccess fires the notification fan-out and must
// never fail the operation.
type Operation interface {
	State() State
	Submit(ctx context.Context) (*gateway.TxResult, error)
	Update(ctx context.Context, change StateChange) error
	OnSuccess(ctx context.Context, txHash string, completedAt time.Time)
}

// Machine drives any operation kind through the shared status lifecycle:
// pending -> pending_hash -> success, with failure reachable from both
// non-terminal states. It never assumes exclusive access to the record;
// idempotency comes from re-reading state before acting and from upsert
// semantics in Update.
type Machine struct {
	gw     gateway.Client
	clock  func() time.Time
	logger *slog.Logger
}

func NewMachine(gw gateway.Client, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		gw:     gw,
		clock:  time.Now,
		logger: logger,
	}
}

// Advance moves the operation one step. The returned error is only non-nil
// for unexpected infrastructure failures (store connectivity); every expected
// gateway condition is folded into the Outcome.
func (m *Machine) Advance(ctx context.Context, op Operation) (Outcome, error) {
	st := op.State()

	// Terminal short-circuit: redelivery of a finished event is a no-op.
	switch st.Status {
	case model.OpStatusSuccess:
		return OutcomeSuccess, nil
	case model.OpStatusFailure:
		return OutcomeFailure, nil
	}

	var polled *gateway.TxResult
	if st.Status == model.OpStatusPendingHash {
		if m.clock().Sub(st.DateAdded) > staleAfter {
			m.logger.WarnContext(ctx, "pending operation exceeded stale cutoff, marking failed")
			if err := op.Update(ctx, StateChange{Status: model.OpStatusFailure}); err != nil {
				return OutcomeRetry, err
			}
			return OutcomeFailure, nil
		}

		if st.UserOpHash == "" {
			// No handle to poll. The record reached pending_hash, so the
			// transfer most likely completed upstream before the handle was
			// persisted; assume success rather than stranding the event.
			m.logger.WarnContext(ctx, "pending operation has no user op hash, assuming completed")
			if err := op.Update(ctx, StateChange{Status: model.OpStatusSuccess}); err != nil {
				return OutcomeRetry, err
			}
			return OutcomeSuccess, nil
		}

		res, err := m.gw.PollStatus(ctx, st.UserOpHash)
		if err != nil {
			if gateway.StatusCode(err) == 470 {
				if uerr := op.Update(ctx, StateChange{Status: model.OpStatusFailure, UserOpHash: st.UserOpHash}); uerr != nil {
					return OutcomeRetry, uerr
				}
				return OutcomeFailure, nil
			}
			m.logger.WarnContext(ctx, "gateway status poll failed", "error", err)
			return OutcomeRetry, nil
		}
		if res.TxHash == "" {
			// Still executing; come back later.
			return OutcomeRetry, nil
		}
		polled = res
	}

	result := polled
	if result == nil {
		res, err := op.Submit(ctx)
		if err != nil {
			if !valuesSane(st.Values) || gateway.IsTerminal(err) {
				m.logger.WarnContext(ctx, "transaction submission unrecoverable, marking failed",
					"error", err,
					"gateway_code", gateway.StatusCode(err))
				if uerr := op.Update(ctx, StateChange{Status: model.OpStatusFailure}); uerr != nil {
					return OutcomeRetry, uerr
				}
				return OutcomeFailure, nil
			}
			m.logger.WarnContext(ctx, "transaction submission failed, will retry", "error", err)
			return OutcomeRetry, nil
		}
		result = res
	}

	switch {
	case result.TxHash != "":
		completedAt := m.clock()
		change := StateChange{Status: model.OpStatusSuccess, TransactionHash: result.TxHash}
		if err := op.Update(ctx, change); err != nil {
			return OutcomeRetry, err
		}
		op.OnSuccess(ctx, result.TxHash, completedAt)
		return OutcomeSuccess, nil

	case result.UserOpHash != "":
		change := StateChange{Status: model.OpStatusPendingHash, UserOpHash: result.UserOpHash}
		if err := op.Update(ctx, change); err != nil {
			return OutcomeRetry, err
		}
		// Not done yet; the redelivery will poll the handle.
		return OutcomeRetry, nil

	default:
		// Gateway accepted the request but returned neither hash.
		return OutcomeRetry, nil
	}
}

func valuesSane(values []string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !gateway.IsPositiveInteger(v) {
			return false
		}
	}
	return true
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/grindery-io/wallet-api/common/logger"
	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/notify"
	"github.com/grindery-io/wallet-api/internal/store"
)

// SwapRequest is the payload of a swap webhook event. To/Value/Data carry the
// router call prepared upstream by the quote service; this service only
// relays it through the gateway.
type SwapRequest struct {
	EventID        string `json:"eventId"`
	UserTelegramID string `json:"userTelegramID"`
	ChainID        string `json:"chainId"`
	TokenIn        string `json:"tokenIn"`
	AmountIn       string `json:"amountIn"`
	TokenOut       string `json:"tokenOut"`
	AmountOut      string `json:"amountOut"`
	PriceImpact    string `json:"priceImpact,omitempty"`
	Gas            string `json:"gas,omitempty"`
	To             string `json:"to"`
	Value          string `json:"value"`
	Data           string `json:"data"`
}

// SwapService drives token swaps through the operation lifecycle.
type SwapService struct {
	swaps    store.SwapStore
	machine  *Machine
	gw       gateway.Client
	notifier notify.Notifier
	logger   *slog.Logger
	clock    func() time.Time
}

func NewSwapService(swaps store.SwapStore, machine *Machine, gw gateway.Client, notifier notify.Notifier, log *slog.Logger) *SwapService {
	if log == nil {
		log = slog.Default()
	}
	return &SwapService{
		swaps:    swaps,
		machine:  machine,
		gw:       gw,
		notifier: notifier,
		logger:   log,
		clock:    time.Now,
	}
}

func (s *SwapService) HandleSwap(ctx context.Context, req SwapRequest) (Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:        logger.Ptr(req.EventID),
		UserTelegramID: logger.Ptr(req.UserTelegramID),
		Component:      "wallet.service.swap",
	})

	sw, err := s.swaps.GetByEventID(ctx, req.EventID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		wallet, rerr := s.gw.ResolveAddress(ctx, req.UserTelegramID)
		if rerr != nil {
			s.logger.WarnContext(ctx, "user wallet resolution failed", "error", rerr)
			return OutcomeRetry, nil
		}
		sw = &model.Swap{
			EventID:        req.EventID,
			UserTelegramID: req.UserTelegramID,
			UserWallet:     wallet,
			ChainID:        req.ChainID,
			TokenIn:        req.TokenIn,
			AmountIn:       req.AmountIn,
			TokenOut:       req.TokenOut,
			AmountOut:      req.AmountOut,
			PriceImpact:    req.PriceImpact,
			Gas:            req.Gas,
			To:             req.To,
			Value:          req.Value,
			Data:           req.Data,
			Status:         model.OpStatusPending,
			DateAdded:      s.clock().UTC(),
		}
		if err := s.swaps.Upsert(ctx, sw); err != nil {
			return OutcomeRetry, err
		}
	case err != nil:
		return OutcomeRetry, err
	}

	return s.machine.Advance(ctx, &swapOperation{svc: s, swap: sw})
}

// swapOperation adapts one swap record to the state machine.
type swapOperation struct {
	svc  *SwapService
	swap *model.Swap
}

func (o *swapOperation) State() State {
	return State{
		Status:     o.swap.Status,
		UserOpHash: o.swap.UserOpHash,
		DateAdded:  o.swap.DateAdded,
		Values:     []string{o.swap.AmountIn},
	}
}

func (o *swapOperation) Submit(ctx context.Context) (*gateway.TxResult, error) {
	return o.svc.gw.SubmitTransaction(ctx, gateway.TxRequest{
		UserTelegramID: o.swap.UserTelegramID,
		Chain:          o.swap.ChainID,
		To:             []string{o.swap.To},
		Value:          []string{o.swap.Value},
		Data:           []string{o.swap.Data},
		DelegateCall:   1,
	})
}

func (o *swapOperation) Update(ctx context.Context, change StateChange) error {
	o.swap.Status = change.Status
	if change.TransactionHash != "" {
		o.swap.TransactionHash = change.TransactionHash
	}
	if change.UserOpHash != "" {
		o.swap.UserOpHash = change.UserOpHash
	}
	return o.svc.swaps.Upsert(ctx, o.swap)
}

func (o *swapOperation) OnSuccess(ctx context.Context, txHash string, completedAt time.Time) {
	o.svc.notifier.SwapCompleted(ctx, o.swap, completedAt)
}

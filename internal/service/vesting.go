package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/grindery-io/wallet-api/common/logger"
	"github.com/grindery-io/wallet-api/core/config"
	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/notify"
	"github.com/grindery-io/wallet-api/internal/store"
)

// VestingRequest is the payload of a vesting webhook event. Amounts are
// decimal token amounts.
type VestingRequest struct {
	EventID        string `json:"eventId"`
	UserTelegramID string `json:"userTelegramID"`
	ChainID        string `json:"chainId"`
	TokenAddress   string `json:"tokenAddress"`
	TokenDecimals  int    `json:"tokenDecimals"`
	Recipients     []struct {
		RecipientAddress string `json:"recipientAddress"`
		Amount           string `json:"amount"`
	} `json:"recipients"`
}

// VestingService drives batched vesting plan submissions through the
// operation lifecycle. All recipients go out in a single gateway call against
// the batch planner contract.
type VestingService struct {
	vestings store.VestingStore
	machine  *Machine
	gw       gateway.Client
	notifier notify.Notifier
	cfg      config.VestingConfig
	logger   *slog.Logger
	clock    func() time.Time
}

func NewVestingService(vestings store.VestingStore, machine *Machine, gw gateway.Client, notifier notify.Notifier, cfg config.VestingConfig, log *slog.Logger) *VestingService {
	if log == nil {
		log = slog.Default()
	}
	return &VestingService{
		vestings: vestings,
		machine:  machine,
		gw:       gw,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		clock:    time.Now,
	}
}

func (s *VestingService) HandleVesting(ctx context.Context, req VestingRequest) (Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:        logger.Ptr(req.EventID),
		UserTelegramID: logger.Ptr(req.UserTelegramID),
		Component:      "wallet.service.vesting",
	})

	v, err := s.vestings.GetByEventID(ctx, req.EventID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		wallet, rerr := s.gw.ResolveAddress(ctx, req.UserTelegramID)
		if rerr != nil {
			s.logger.WarnContext(ctx, "sender wallet resolution failed", "error", rerr)
			return OutcomeRetry, nil
		}
		recipients := make([]model.VestingRecipient, len(req.Recipients))
		for i, r := range req.Recipients {
			recipients[i] = model.VestingRecipient{
				RecipientAddress: r.RecipientAddress,
				Amount:           r.Amount,
			}
		}
		v = &model.Vesting{
			EventID:        req.EventID,
			UserTelegramID: req.UserTelegramID,
			SenderWallet:   wallet,
			ChainID:        req.ChainID,
			TokenAddress:   req.TokenAddress,
			Recipients:     recipients,
			Status:         model.OpStatusPending,
			DateAdded:      s.clock().UTC(),
		}
		if err := s.vestings.Upsert(ctx, v); err != nil {
			return OutcomeRetry, err
		}
	case err != nil:
		return OutcomeRetry, err
	}

	decimals := req.TokenDecimals
	if decimals <= 0 {
		decimals = 18
	}
	weis := make([]string, len(v.Recipients))
	for i, r := range v.Recipients {
		wei, werr := gateway.ToWei(r.Amount, decimals)
		if werr != nil {
			s.logger.WarnContext(ctx, "vesting amount does not scale to base units",
				"recipient", r.RecipientAddress, "error", werr)
		}
		weis[i] = wei
	}

	return s.machine.Advance(ctx, &vestingOperation{svc: s, vesting: v, weis: weis})
}

// vestingOperation adapts one vesting plan to the state machine. The batch is
// all-or-nothing: one submission, one status, one notification.
type vestingOperation struct {
	svc     *VestingService
	vesting *model.Vesting
	weis    []string
}

func (o *vestingOperation) State() State {
	return State{
		Status:     o.vesting.Status,
		UserOpHash: o.vesting.UserOpHash,
		DateAdded:  o.vesting.DateAdded,
		Values:     o.weis,
	}
}

func (o *vestingOperation) Submit(ctx context.Context) (*gateway.TxResult, error) {
	n := len(o.vesting.Recipients)
	to := make([]string, n)
	value := make([]string, n)
	data := make([]string, n)
	for i, r := range o.vesting.Recipients {
		d, err := gateway.VestingPlanData(o.vesting.TokenAddress, r.RecipientAddress, o.weis[i])
		if err != nil {
			return nil, err
		}
		to[i] = o.svc.cfg.BatchPlannerAddress
		value[i] = "0x00"
		data[i] = d
	}
	return o.svc.gw.SubmitTransaction(ctx, gateway.TxRequest{
		UserTelegramID: o.vesting.UserTelegramID,
		Chain:          o.vesting.ChainID,
		To:             to,
		Value:          value,
		Data:           data,
	})
}

func (o *vestingOperation) Update(ctx context.Context, change StateChange) error {
	o.vesting.Status = change.Status
	if change.TransactionHash != "" {
		o.vesting.TransactionHash = change.TransactionHash
	}
	if change.UserOpHash != "" {
		o.vesting.UserOpHash = change.UserOpHash
	}
	return o.svc.vestings.Upsert(ctx, o.vesting)
}

func (o *vestingOperation) OnSuccess(ctx context.Context, txHash string, completedAt time.Time) {
	o.svc.notifier.VestingCompleted(ctx, o.vesting, completedAt)
}

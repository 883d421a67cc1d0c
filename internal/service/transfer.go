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

// TransferRequest is the payload of a transfer webhook event.
type TransferRequest struct {
	EventID       string `json:"eventId"`
	ChainID       string `json:"chainId"`
	TokenSymbol   string `json:"tokenSymbol"`
	TokenAddress  string `json:"tokenAddress"`
	TokenDecimals int    `json:"tokenDecimals"`
	SenderTgID    string `json:"senderTgId"`
	RecipientTgID string `json:"recipientTgId"`
	Amount        string `json:"amount"`
	Message       string `json:"message,omitempty"`
}

// TransferService drives peer-to-peer token transfers through the operation
// lifecycle.
type TransferService struct {
	transfers store.TransferStore
	users     store.UserStore
	machine   *Machine
	gw        gateway.Client
	notifier  notify.Notifier
	logger    *slog.Logger
	clock     func() time.Time
}

func NewTransferService(transfers store.TransferStore, users store.UserStore, machine *Machine, gw gateway.Client, notifier notify.Notifier, log *slog.Logger) *TransferService {
	if log == nil {
		log = slog.Default()
	}
	return &TransferService{
		transfers: transfers,
		users:     users,
		machine:   machine,
		gw:        gw,
		notifier:  notifier,
		logger:    log,
		clock:     time.Now,
	}
}

// HandleTransfer processes one transfer delivery. A missing record is
// created only after the recipient's wallet resolves; a failed resolution
// leaves nothing behind so the whole delivery can be retried.
func (s *TransferService) HandleTransfer(ctx context.Context, req TransferRequest) (Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:        logger.Ptr(req.EventID),
		UserTelegramID: logger.Ptr(req.SenderTgID),
		Component:      "wallet.service.transfer",
	})

	t, err := s.transfers.GetByEventID(ctx, req.EventID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		t, err = s.createTransfer(ctx, req)
		if err != nil {
			return OutcomeRetry, err
		}
		if t == nil {
			// Recipient wallet did not resolve; retry the delivery.
			return OutcomeRetry, nil
		}
	case err != nil:
		return OutcomeRetry, err
	}

	decimals := req.TokenDecimals
	if decimals <= 0 {
		decimals = 18
	}
	wei, weiErr := gateway.ToWei(t.TokenAmount, decimals)
	if weiErr != nil {
		s.logger.WarnContext(ctx, "transfer amount does not scale to base units", "error", weiErr)
	}

	return s.machine.Advance(ctx, &transferOperation{svc: s, transfer: t, wei: wei})
}

func (s *TransferService) createTransfer(ctx context.Context, req TransferRequest) (*model.Transfer, error) {
	recipientWallet, err := s.gw.ResolveAddress(ctx, req.RecipientTgID)
	if err != nil {
		s.logger.WarnContext(ctx, "recipient wallet resolution failed", "error", err)
		return nil, nil
	}

	t := &model.Transfer{
		EventID:         req.EventID,
		ChainID:         req.ChainID,
		TokenSymbol:     req.TokenSymbol,
		TokenAddress:    req.TokenAddress,
		SenderTgID:      req.SenderTgID,
		RecipientTgID:   req.RecipientTgID,
		RecipientWallet: recipientWallet,
		TokenAmount:     req.Amount,
		Status:          model.OpStatusPending,
		DateAdded:       s.clock().UTC(),
	}

	// Sender profile enrichment is best effort; an unknown sender still
	// transfers.
	if sender, err := s.users.GetByTelegramID(ctx, req.SenderTgID); err == nil {
		t.SenderWallet = sender.PatchWallet
		t.SenderName = sender.UserName
		t.SenderHandle = sender.UserHandle
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := s.transfers.Upsert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// transferOperation adapts one transfer record to the state machine.
type transferOperation struct {
	svc      *TransferService
	transfer *model.Transfer
	wei      string
}

func (o *transferOperation) State() State {
	return State{
		Status:     o.transfer.Status,
		UserOpHash: o.transfer.UserOpHash,
		DateAdded:  o.transfer.DateAdded,
		Values:     []string{o.wei},
	}
}

func (o *transferOperation) Submit(ctx context.Context) (*gateway.TxResult, error) {
	data, err := gateway.ERC20TransferData(o.transfer.RecipientWallet, o.wei)
	if err != nil {
		return nil, err
	}
	return o.svc.gw.SubmitTransaction(ctx, gateway.TxRequest{
		UserTelegramID: o.transfer.SenderTgID,
		Chain:          o.transfer.ChainID,
		To:             []string{o.transfer.TokenAddress},
		Value:          []string{"0x00"},
		Data:           []string{data},
	})
}

func (o *transferOperation) Update(ctx context.Context, change StateChange) error {
	o.transfer.Status = change.Status
	if change.TransactionHash != "" {
		o.transfer.TransactionHash = change.TransactionHash
	}
	if change.UserOpHash != "" {
		o.transfer.UserOpHash = change.UserOpHash
	}
	return o.svc.transfers.Upsert(ctx, o.transfer)
}

func (o *transferOperation) OnSuccess(ctx context.Context, txHash string, completedAt time.Time) {
	o.svc.notifier.TransferCompleted(ctx, o.transfer, completedAt)
}

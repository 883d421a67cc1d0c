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

// SignupRewardRequest pays the fixed signup bonus to a fresh user. Wallet is
// supplied by the new-user orchestrator, which resolves it up front.
type SignupRewardRequest struct {
	EventID        string
	UserTelegramID string
	ResponsePath   string
	UserHandle     string
	UserName       string
	Wallet         string
}

// ReferralRewardRequest pays the referent of a fresh user. The referent is
// discovered from the earliest inbound transfer the new user received.
type ReferralRewardRequest struct {
	EventID      string
	NewUserTgID  string
	ResponsePath string
}

// LinkRewardRequest pays a referent whose invite link the sponsored user
// signed up through.
type LinkRewardRequest struct {
	EventID       string
	ReferentTgID  string
	SponsoredTgID string
}

// IsolatedRewardRequest is a one-off reward with caller-supplied reason,
// amount and message.
type IsolatedRewardRequest struct {
	EventID        string `json:"eventId"`
	UserTelegramID string `json:"userTelegramID"`
	ResponsePath   string `json:"responsePath,omitempty"`
	UserHandle     string `json:"userHandle,omitempty"`
	UserName       string `json:"userName,omitempty"`
	Reason         string `json:"reason"`
	Amount         string `json:"amount"`
	Message        string `json:"message,omitempty"`
}

// RewardService drives the reward kinds through the operation lifecycle.
// Every kind shares one rule: a competing record under the same event id is
// replayed through the machine, a competing record under a different event id
// means the reward was already handled and the delivery is abandoned.
type RewardService struct {
	rewards   store.RewardStore
	transfers store.TransferStore
	users     store.UserStore
	machine   *Machine
	gw        gateway.Client
	notifier  notify.Notifier
	cfg       config.RewardsConfig
	logger    *slog.Logger
	clock     func() time.Time
}

func NewRewardService(rewards store.RewardStore, transfers store.TransferStore, users store.UserStore, machine *Machine, gw gateway.Client, notifier notify.Notifier, cfg config.RewardsConfig, log *slog.Logger) *RewardService {
	if log == nil {
		log = slog.Default()
	}
	return &RewardService{
		rewards:   rewards,
		transfers: transfers,
		users:     users,
		machine:   machine,
		gw:        gw,
		notifier:  notifier,
		cfg:       cfg,
		logger:    log,
		clock:     time.Now,
	}
}

// SignupReward pays the signup bonus at most once per user across event ids.
func (s *RewardService) SignupReward(ctx context.Context, req SignupRewardRequest) (Outcome, error) {
	ctx = s.rewardCtx(ctx, req.EventID, model.ReasonSignup, req.UserTelegramID)

	r, err := s.rewards.GetByEventIDAndReason(ctx, req.EventID, model.ReasonSignup)
	switch {
	case err == nil:
		return s.advance(ctx, r)
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeRetry, err
	}

	_, err = s.rewards.FindDuplicate(ctx, req.UserTelegramID, model.ReasonSignup, req.EventID)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "signup reward already recorded under another event, abandoning")
		return OutcomeSuccess, nil
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeRetry, err
	}

	r = &model.Reward{
		EventID:        req.EventID,
		UserTelegramID: req.UserTelegramID,
		ResponsePath:   req.ResponsePath,
		UserHandle:     req.UserHandle,
		UserName:       req.UserName,
		WalletAddress:  req.Wallet,
		Reason:         model.ReasonSignup,
		Amount:         s.cfg.SignupAmount,
		Message:        "Sign up reward",
		Status:         model.OpStatusPending,
		DateAdded:      s.clock().UTC(),
	}
	if err := s.rewards.Upsert(ctx, r); err != nil {
		return OutcomeRetry, err
	}
	return s.advance(ctx, r)
}

// ReferralReward pays the user who first transferred tokens to the new user.
// Missing parent transaction or an unknown referent are final no-ops, not
// errors: not every user was referred.
func (s *RewardService) ReferralReward(ctx context.Context, req ReferralRewardRequest) (Outcome, error) {
	ctx = s.rewardCtx(ctx, req.EventID, model.ReasonReferral, req.NewUserTgID)

	r, err := s.rewards.GetByEventIDAndReason(ctx, req.EventID, model.ReasonReferral)
	switch {
	case err == nil:
		return s.advance(ctx, r)
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeRetry, err
	}

	parent, err := s.transfers.EarliestIncoming(ctx, req.NewUserTgID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return OutcomeSuccess, nil
	case err != nil:
		return OutcomeRetry, err
	}

	referent, err := s.users.GetByTelegramID(ctx, parent.SenderTgID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.logger.InfoContext(ctx, "referent is not a known user, abandoning referral reward",
			"referent", parent.SenderTgID)
		return OutcomeSuccess, nil
	case err != nil:
		return OutcomeRetry, err
	}

	_, err = s.rewards.FindDuplicate(ctx, referent.UserTelegramID, model.ReasonReferral, req.EventID)
	switch {
	case err == nil:
		return OutcomeSuccess, nil
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeRetry, err
	}

	wallet, outcome, err := s.resolveWallet(ctx, referent)
	if err != nil || outcome == OutcomeRetry {
		return outcome, err
	}

	r = &model.Reward{
		EventID:               req.EventID,
		UserTelegramID:        referent.UserTelegramID,
		ResponsePath:          referent.ResponsePath,
		UserHandle:            referent.UserHandle,
		UserName:              referent.UserName,
		WalletAddress:         wallet,
		Reason:                model.ReasonReferral,
		Amount:                s.cfg.ReferralAmount,
		Message:               "Referral reward",
		ParentTransactionHash: parent.TransactionHash,
		Status:                model.OpStatusPending,
		DateAdded:             s.clock().UTC(),
	}
	if err := s.rewards.Upsert(ctx, r); err != nil {
		return OutcomeRetry, err
	}
	return s.advance(ctx, r)
}

// LinkReward pays a referent for one sponsored signup. Uniqueness is keyed on
// the sponsored user, so the same referent earns one per user they bring in.
func (s *RewardService) LinkReward(ctx context.Context, req LinkRewardRequest) (Outcome, error) {
	ctx = s.rewardCtx(ctx, req.EventID, model.ReasonLink, req.ReferentTgID)

	r, err := s.rewards.GetByEventIDAndReason(ctx, req.EventID, model.ReasonLink)
	switch {
	case err == nil:
		return s.advance(ctx, r)
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeRetry, err
	}

	_, err = s.rewards.FindDuplicateForSponsored(ctx, req.SponsoredTgID, req.EventID)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "link reward for sponsored user already recorded, abandoning",
			"sponsored", req.SponsoredTgID)
		return OutcomeSuccess, nil
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeRetry, err
	}

	referent, err := s.users.GetByTelegramID(ctx, req.ReferentTgID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return OutcomeSuccess, nil
	case err != nil:
		return OutcomeRetry, err
	}

	wallet, outcome, err := s.resolveWallet(ctx, referent)
	if err != nil || outcome == OutcomeRetry {
		return outcome, err
	}

	r = &model.Reward{
		EventID:        req.EventID,
		UserTelegramID: referent.UserTelegramID,
		ResponsePath:   referent.ResponsePath,
		UserHandle:     referent.UserHandle,
		UserName:       referent.UserName,
		WalletAddress:  wallet,
		Reason:         model.ReasonLink,
		Amount:         s.cfg.LinkAmount,
		Message:        "Referral link reward",
		SponsoredTgID:  req.SponsoredTgID,
		Status:         model.OpStatusPending,
		DateAdded:      s.clock().UTC(),
	}
	if err := s.rewards.Upsert(ctx, r); err != nil {
		return OutcomeRetry, err
	}
	return s.advance(ctx, r)
}

// IsolatedReward pays a one-off reward. The caller's reason string joins the
// duplicate key, so the same reason cannot pay twice to one subject.
func (s *RewardService) IsolatedReward(ctx context.Context, req IsolatedRewardRequest) (Outcome, error) {
	ctx = s.rewardCtx(ctx, req.EventID, req.Reason, req.UserTelegramID)

	r, err := s.rewards.GetByEventIDAndReason(ctx, req.EventID, req.Reason)
	switch {
	case err == nil:
		return s.advance(ctx, r)
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeRetry, err
	}

	_, err = s.rewards.FindDuplicate(ctx, req.UserTelegramID, req.Reason, req.EventID)
	switch {
	case err == nil:
		return OutcomeSuccess, nil
	case !errors.Is(err, store.ErrNotFound):
		return OutcomeRetry, err
	}

	wallet, err := s.gw.ResolveAddress(ctx, req.UserTelegramID)
	if err != nil {
		s.logger.WarnContext(ctx, "wallet resolution failed for isolated reward", "error", err)
		return OutcomeRetry, nil
	}

	r = &model.Reward{
		EventID:        req.EventID,
		UserTelegramID: req.UserTelegramID,
		ResponsePath:   req.ResponsePath,
		UserHandle:     req.UserHandle,
		UserName:       req.UserName,
		WalletAddress:  wallet,
		Reason:         req.Reason,
		Amount:         req.Amount,
		Message:        req.Message,
		Status:         model.OpStatusPending,
		DateAdded:      s.clock().UTC(),
	}
	if err := s.rewards.Upsert(ctx, r); err != nil {
		return OutcomeRetry, err
	}
	return s.advance(ctx, r)
}

// resolveWallet returns the user's stored wallet, resolving and persisting it
// on first use.
func (s *RewardService) resolveWallet(ctx context.Context, u *model.User) (string, Outcome, error) {
	if u.PatchWallet != "" {
		return u.PatchWallet, OutcomeSuccess, nil
	}
	wallet, err := s.gw.ResolveAddress(ctx, u.UserTelegramID)
	if err != nil {
		s.logger.WarnContext(ctx, "referent wallet resolution failed", "error", err)
		return "", OutcomeRetry, nil
	}
	if err := s.users.SetWallet(ctx, u.UserTelegramID, wallet); err != nil {
		return "", OutcomeRetry, err
	}
	return wallet, OutcomeSuccess, nil
}

func (s *RewardService) advance(ctx context.Context, r *model.Reward) (Outcome, error) {
	wei, weiErr := gateway.ToWei(r.Amount, s.cfg.TokenDecimals)
	if weiErr != nil {
		s.logger.WarnContext(ctx, "reward amount does not scale to base units", "error", weiErr)
	}
	return s.machine.Advance(ctx, &rewardOperation{svc: s, reward: r, wei: wei})
}

func (s *RewardService) rewardCtx(ctx context.Context, eventID, reason, userTgID string) context.Context {
	return logger.WithLogFields(ctx, logger.LogFields{
		EventID:        logger.Ptr(eventID),
		Reason:         logger.Ptr(reason),
		UserTelegramID: logger.Ptr(userTgID),
		Component:      "wallet.service.reward",
	})
}

// rewardOperation adapts one reward record to the state machine. All rewards
// are paid from the configured source account in the configured token.
type rewardOperation struct {
	svc    *RewardService
	reward *model.Reward
	wei    string
}

func (o *rewardOperation) State() State {
	return State{
		Status:     o.reward.Status,
		UserOpHash: o.reward.UserOpHash,
		DateAdded:  o.reward.DateAdded,
		Values:     []string{o.wei},
	}
}

func (o *rewardOperation) Submit(ctx context.Context) (*gateway.TxResult, error) {
	data, err := gateway.ERC20TransferData(o.reward.WalletAddress, o.wei)
	if err != nil {
		return nil, err
	}
	return o.svc.gw.SubmitTransaction(ctx, gateway.TxRequest{
		UserTelegramID: o.svc.cfg.SourceTelegramID,
		Chain:          o.svc.cfg.ChainID,
		To:             []string{o.svc.cfg.TokenAddress},
		Value:          []string{"0x00"},
		Data:           []string{data},
	})
}

func (o *rewardOperation) Update(ctx context.Context, change StateChange) error {
	o.reward.Status = change.Status
	if change.TransactionHash != "" {
		o.reward.TransactionHash = change.TransactionHash
	}
	if change.UserOpHash != "" {
		o.reward.UserOpHash = change.UserOpHash
	}
	return o.svc.rewards.Upsert(ctx, o.reward)
}

func (o *rewardOperation) OnSuccess(ctx context.Context, txHash string, completedAt time.Time) {
	o.svc.notifier.RewardCompleted(ctx, o.reward, completedAt)
}

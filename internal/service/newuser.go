package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/grindery-io/wallet-api/common/logger"
	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/notify"
	"github.com/grindery-io/wallet-api/internal/store"
)

// NewUserRequest is the payload of a new-user webhook event. ReferentTgID is
// set when the user arrived through a referral link.
type NewUserRequest struct {
	EventID        string `json:"eventId"`
	UserTelegramID string `json:"userTelegramID"`
	ResponsePath   string `json:"responsePath,omitempty"`
	UserHandle     string `json:"userHandle,omitempty"`
	UserName       string `json:"userName,omitempty"`
	ReferentTgID   string `json:"referentTgId,omitempty"`
}

// NewUserService sequences the signup rewards and the user profile insert for
// one new-user event. Rewards run before the profile is persisted: as long as
// any reward step still needs a retry the user stays unknown, so the whole
// orchestration restarts cleanly on redelivery.
type NewUserService struct {
	users    store.UserStore
	rewards  *RewardService
	gw       gateway.Client
	notifier notify.Notifier
	logger   *slog.Logger
	clock    func() time.Time
}

func NewNewUserService(users store.UserStore, rewards *RewardService, gw gateway.Client, notifier notify.Notifier, log *slog.Logger) *NewUserService {
	if log == nil {
		log = slog.Default()
	}
	return &NewUserService{
		users:    users,
		rewards:  rewards,
		gw:       gw,
		notifier: notifier,
		logger:   log,
		clock:    time.Now,
	}
}

func (s *NewUserService) HandleNewUser(ctx context.Context, req NewUserRequest) (Outcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:        logger.Ptr(req.EventID),
		UserTelegramID: logger.Ptr(req.UserTelegramID),
		Component:      "wallet.service.newuser",
	})

	exists, err := s.users.Exists(ctx, req.UserTelegramID)
	if err != nil {
		return OutcomeRetry, err
	}
	if exists {
		return OutcomeSuccess, nil
	}

	wallet, err := s.gw.ResolveAddress(ctx, req.UserTelegramID)
	if err != nil {
		s.logger.WarnContext(ctx, "user wallet resolution failed", "error", err)
		return OutcomeRetry, nil
	}

	outcome, err := s.rewards.SignupReward(ctx, SignupRewardRequest{
		EventID:        req.EventID,
		UserTelegramID: req.UserTelegramID,
		ResponsePath:   req.ResponsePath,
		UserHandle:     req.UserHandle,
		UserName:       req.UserName,
		Wallet:         wallet,
	})
	if err != nil || !outcome.Handled() {
		return OutcomeRetry, err
	}

	outcome, err = s.rewards.ReferralReward(ctx, ReferralRewardRequest{
		EventID:      req.EventID,
		NewUserTgID:  req.UserTelegramID,
		ResponsePath: req.ResponsePath,
	})
	if err != nil || !outcome.Handled() {
		return OutcomeRetry, err
	}

	if req.ReferentTgID != "" {
		outcome, err = s.rewards.LinkReward(ctx, LinkRewardRequest{
			EventID:       req.EventID,
			ReferentTgID:  req.ReferentTgID,
			SponsoredTgID: req.UserTelegramID,
		})
		if err != nil || !outcome.Handled() {
			return OutcomeRetry, err
		}
	}

	u := &model.User{
		UserTelegramID: req.UserTelegramID,
		ResponsePath:   req.ResponsePath,
		UserHandle:     req.UserHandle,
		UserName:       req.UserName,
		PatchWallet:    wallet,
		DateAdded:      s.clock().UTC(),
	}
	created, err := s.users.Create(ctx, u)
	if err != nil {
		return OutcomeRetry, err
	}
	if created {
		s.notifier.UserCreated(ctx, u)
	}
	return OutcomeSuccess, nil
}

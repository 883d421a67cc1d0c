package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grindery-io/wallet-api/core/config"
	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/service"
)

var _ = Describe("NewUserService", func() {
	var (
		svc       *service.NewUserService
		rewards   *mockRewardStore
		transfers *mockTransferStore
		users     *mockUserStore
		gw        *mockGateway
		notifier  *mockNotifier
		ctx       context.Context
	)

	cfg := config.RewardsConfig{
		ChainID:          "matic",
		TokenAddress:     "0x2222222222222222222222222222222222222222",
		TokenDecimals:    18,
		SourceTelegramID: "777",
		SignupAmount:     "100",
		ReferralAmount:   "50",
		LinkAmount:       "10",
	}

	req := service.NewUserRequest{
		EventID:        "evt-nu",
		UserTelegramID: "100",
		ResponsePath:   "64d17/100",
		UserHandle:     "alice",
		UserName:       "Alice",
	}

	BeforeEach(func() {
		ctx = context.Background()
		rewards = &mockRewardStore{}
		transfers = &mockTransferStore{}
		users = &mockUserStore{}
		gw = &mockGateway{}
		notifier = &mockNotifier{}
		rewardSvc := service.NewRewardService(rewards, transfers, users, service.NewMachine(gw, nil), gw, notifier, cfg, nil)
		svc = service.NewNewUserService(users, rewardSvc, gw, notifier, nil)
	})

	It("skips users that already exist", func() {
		users.existsFn = func(_ context.Context, tg string) (bool, error) {
			Expect(tg).To(Equal("100"))
			return true, nil
		}

		outcome, err := svc.HandleNewUser(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeSuccess))
		Expect(users.createCalls).To(BeZero())
		Expect(gw.submitCalls).To(BeZero())
	})

	It("creates the user and identifies them once the rewards settle", func() {
		outcome, err := svc.HandleNewUser(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeSuccess))
		Expect(users.createCalls).To(Equal(1))
		Expect(notifier.userCreated).To(Equal(1))
		Expect(notifier.lastUser).NotTo(BeNil())
		Expect(notifier.lastUser.UserTelegramID).To(Equal("100"))
		Expect(notifier.lastUser.PatchWallet).NotTo(BeEmpty())
		Expect(notifier.lastUser.UserHandle).To(Equal("alice"))
	})

	It("retries without creating the user when wallet resolution fails", func() {
		gw.resolveAddressFn = func(_ context.Context, _ string) (string, error) {
			return "", errors.New("resolver down")
		}

		outcome, err := svc.HandleNewUser(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeRetry))
		Expect(users.createCalls).To(BeZero())
		Expect(rewards.upsertCalls).To(BeZero())
	})

	It("stops before the referral step when the signup reward needs a retry", func() {
		referralChecked := false
		transfers.earliestIncomingFn = func(_ context.Context, _ string) (*model.Transfer, error) {
			referralChecked = true
			return nil, errors.New("unreachable")
		}
		gw.submitFn = func(_ context.Context, _ gateway.TxRequest) (*gateway.TxResult, error) {
			return nil, errors.New("gateway flaking")
		}

		outcome, err := svc.HandleNewUser(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeRetry))
		Expect(referralChecked).To(BeFalse())
		Expect(users.createCalls).To(BeZero())
	})

	It("pays the link reward only when a referent is named", func() {
		users.getByTelegramIDFn = func(_ context.Context, tg string) (*model.User, error) {
			return &model.User{
				UserTelegramID: tg,
				PatchWallet:    "0x5555555555555555555555555555555555555555",
			}, nil
		}
		var reasons []string
		rewards.upsertFn = func(_ context.Context, r *model.Reward) error {
			reasons = append(reasons, r.Reason)
			return nil
		}

		withReferent := req
		withReferent.ReferentTgID = "300"
		outcome, err := svc.HandleNewUser(ctx, withReferent)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeSuccess))
		Expect(reasons).To(ContainElement(model.ReasonLink))
		Expect(notifier.lastReward).NotTo(BeNil())
	})

	It("does not identify the user when another worker created them first", func() {
		users.createFn = func(_ context.Context, _ *model.User) (bool, error) {
			return false, nil
		}

		outcome, err := svc.HandleNewUser(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeSuccess))
		Expect(notifier.userCreated).To(BeZero())
	})
})

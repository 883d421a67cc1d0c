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
	"github.com/grindery-io/wallet-api/internal/store"
)

var _ = Describe("RewardService", func() {
	var (
		svc       *service.RewardService
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

	BeforeEach(func() {
		ctx = context.Background()
		rewards = &mockRewardStore{}
		transfers = &mockTransferStore{}
		users = &mockUserStore{}
		gw = &mockGateway{}
		notifier = &mockNotifier{}
		svc = service.NewRewardService(rewards, transfers, users, service.NewMachine(gw, nil), gw, notifier, cfg, nil)
	})

	Describe("SignupReward", func() {
		req := service.SignupRewardRequest{
			EventID:        "evt-su",
			UserTelegramID: "100",
			Wallet:         "0x4444444444444444444444444444444444444444",
		}

		It("pays the configured amount from the source account", func() {
			var created *model.Reward
			rewards.upsertFn = func(_ context.Context, r *model.Reward) error {
				if created == nil {
					copied := *r
					created = &copied
				}
				return nil
			}
			var submitted gateway.TxRequest
			gw.submitFn = func(_ context.Context, r gateway.TxRequest) (*gateway.TxResult, error) {
				submitted = r
				return &gateway.TxResult{TxHash: "0xsu"}, nil
			}

			outcome, err := svc.SignupReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(created).NotTo(BeNil())
			Expect(created.Reason).To(Equal(model.ReasonSignup))
			Expect(created.Amount).To(Equal("100"))
			Expect(created.WalletAddress).To(Equal(req.Wallet))
			Expect(submitted.UserTelegramID).To(Equal("777"))
			Expect(submitted.To).To(Equal([]string{cfg.TokenAddress}))
			Expect(notifier.rewardCompleted).To(Equal(1))
		})

		It("abandons the delivery when the same reward exists under another event id", func() {
			rewards.findDuplicateFn = func(_ context.Context, user, reason, exclude string) (*model.Reward, error) {
				Expect(user).To(Equal("100"))
				Expect(reason).To(Equal(model.ReasonSignup))
				Expect(exclude).To(Equal("evt-su"))
				return &model.Reward{EventID: "evt-older", Status: model.OpStatusSuccess}, nil
			}

			outcome, err := svc.SignupReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(rewards.upsertCalls).To(BeZero())
			Expect(gw.submitCalls).To(BeZero())
		})

		It("replays an existing record for the same event id through the machine", func() {
			rewards.getByEventIDAndReasonFn = func(_ context.Context, eventID, reason string) (*model.Reward, error) {
				return &model.Reward{
					EventID: eventID,
					Reason:  reason,
					Amount:  "100",
					Status:  model.OpStatusFailure,
				}, nil
			}

			outcome, err := svc.SignupReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeFailure))
			Expect(gw.submitCalls).To(BeZero())
		})
	})

	Describe("ReferralReward", func() {
		req := service.ReferralRewardRequest{
			EventID:     "evt-ref",
			NewUserTgID: "200",
		}

		It("abandons when the new user has no inbound transfer", func() {
			outcome, err := svc.ReferralReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(rewards.upsertCalls).To(BeZero())
		})

		It("abandons when the referent is not a known user", func() {
			transfers.earliestIncomingFn = func(_ context.Context, recipient string) (*model.Transfer, error) {
				Expect(recipient).To(Equal("200"))
				return &model.Transfer{SenderTgID: "300", TransactionHash: "0xparent"}, nil
			}

			outcome, err := svc.ReferralReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(rewards.upsertCalls).To(BeZero())
		})

		It("pays the referent and records the parent transaction hash", func() {
			transfers.earliestIncomingFn = func(_ context.Context, _ string) (*model.Transfer, error) {
				return &model.Transfer{SenderTgID: "300", TransactionHash: "0xparent"}, nil
			}
			users.getByTelegramIDFn = func(_ context.Context, tg string) (*model.User, error) {
				Expect(tg).To(Equal("300"))
				return &model.User{
					UserTelegramID: "300",
					PatchWallet:    "0x5555555555555555555555555555555555555555",
				}, nil
			}
			var created *model.Reward
			rewards.upsertFn = func(_ context.Context, r *model.Reward) error {
				if created == nil {
					copied := *r
					created = &copied
				}
				return nil
			}

			outcome, err := svc.ReferralReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(created).NotTo(BeNil())
			Expect(created.UserTelegramID).To(Equal("300"))
			Expect(created.Reason).To(Equal(model.ReasonReferral))
			Expect(created.Amount).To(Equal("50"))
			Expect(created.ParentTransactionHash).To(Equal("0xparent"))
		})

		It("resolves and persists the referent wallet lazily", func() {
			transfers.earliestIncomingFn = func(_ context.Context, _ string) (*model.Transfer, error) {
				return &model.Transfer{SenderTgID: "300", TransactionHash: "0xparent"}, nil
			}
			users.getByTelegramIDFn = func(_ context.Context, _ string) (*model.User, error) {
				return &model.User{UserTelegramID: "300"}, nil
			}
			walletSet := false
			users.setWalletFn = func(_ context.Context, tg, wallet string) error {
				Expect(tg).To(Equal("300"))
				Expect(wallet).NotTo(BeEmpty())
				walletSet = true
				return nil
			}

			outcome, err := svc.ReferralReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(walletSet).To(BeTrue())
		})

		It("retries when the lazy wallet resolution fails", func() {
			transfers.earliestIncomingFn = func(_ context.Context, _ string) (*model.Transfer, error) {
				return &model.Transfer{SenderTgID: "300"}, nil
			}
			users.getByTelegramIDFn = func(_ context.Context, _ string) (*model.User, error) {
				return &model.User{UserTelegramID: "300"}, nil
			}
			gw.resolveAddressFn = func(_ context.Context, _ string) (string, error) {
				return "", errors.New("resolver down")
			}

			outcome, err := svc.ReferralReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeRetry))
			Expect(rewards.upsertCalls).To(BeZero())
		})
	})

	Describe("LinkReward", func() {
		req := service.LinkRewardRequest{
			EventID:       "evt-link",
			ReferentTgID:  "300",
			SponsoredTgID: "200",
		}

		It("abandons when the sponsored user was already rewarded", func() {
			rewards.findDuplicateSponsoredFn = func(_ context.Context, sponsored, exclude string) (*model.Reward, error) {
				Expect(sponsored).To(Equal("200"))
				return &model.Reward{EventID: "evt-older"}, nil
			}

			outcome, err := svc.LinkReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(rewards.upsertCalls).To(BeZero())
		})

		It("abandons when the referent is unknown", func() {
			outcome, err := svc.LinkReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(rewards.upsertCalls).To(BeZero())
		})

		It("pays the referent and tags the sponsored user", func() {
			users.getByTelegramIDFn = func(_ context.Context, _ string) (*model.User, error) {
				return &model.User{
					UserTelegramID: "300",
					PatchWallet:    "0x5555555555555555555555555555555555555555",
				}, nil
			}
			var created *model.Reward
			rewards.upsertFn = func(_ context.Context, r *model.Reward) error {
				if created == nil {
					copied := *r
					created = &copied
				}
				return nil
			}

			outcome, err := svc.LinkReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(created).NotTo(BeNil())
			Expect(created.Reason).To(Equal(model.ReasonLink))
			Expect(created.Amount).To(Equal("10"))
			Expect(created.SponsoredTgID).To(Equal("200"))
		})
	})

	Describe("IsolatedReward", func() {
		req := service.IsolatedRewardRequest{
			EventID:        "evt-iso",
			UserTelegramID: "100",
			Reason:         "community_contest",
			Amount:         "5",
			Message:        "Contest winner",
		}

		It("pays a one-off reward with the caller's reason and amount", func() {
			var created *model.Reward
			rewards.upsertFn = func(_ context.Context, r *model.Reward) error {
				if created == nil {
					copied := *r
					created = &copied
				}
				return nil
			}

			outcome, err := svc.IsolatedReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(created).NotTo(BeNil())
			Expect(created.Reason).To(Equal("community_contest"))
			Expect(created.Amount).To(Equal("5"))
			Expect(created.Message).To(Equal("Contest winner"))
		})

		It("refuses to pay the same reason twice to one subject", func() {
			rewards.findDuplicateFn = func(_ context.Context, user, reason, _ string) (*model.Reward, error) {
				Expect(user).To(Equal("100"))
				Expect(reason).To(Equal("community_contest"))
				return &model.Reward{EventID: "evt-older"}, nil
			}

			outcome, err := svc.IsolatedReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(rewards.upsertCalls).To(BeZero())
			Expect(gw.submitCalls).To(BeZero())
		})

		It("retries when the subject wallet does not resolve", func() {
			gw.resolveAddressFn = func(_ context.Context, _ string) (string, error) {
				return "", errors.New("unknown user")
			}

			outcome, err := svc.IsolatedReward(ctx, req)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeRetry))
			Expect(rewards.upsertCalls).To(BeZero())
		})
	})

	It("propagates duplicate-check store errors as retry", func() {
		rewards.findDuplicateFn = func(_ context.Context, _, _, _ string) (*model.Reward, error) {
			return nil, errors.New("query failed")
		}

		outcome, err := svc.SignupReward(ctx, service.SignupRewardRequest{
			EventID:        "evt-su",
			UserTelegramID: "100",
			Wallet:         "0x4444444444444444444444444444444444444444",
		})

		Expect(err).To(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeRetry))
	})

	It("treats ErrNotFound from the duplicate check as eligibility", func() {
		rewards.findDuplicateFn = func(_ context.Context, _, _, _ string) (*model.Reward, error) {
			return nil, store.ErrNotFound
		}

		outcome, err := svc.SignupReward(ctx, service.SignupRewardRequest{
			EventID:        "evt-su",
			UserTelegramID: "100",
			Wallet:         "0x4444444444444444444444444444444444444444",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeSuccess))
		Expect(rewards.upsertCalls).To(BeNumerically(">", 0))
	})
})

package service_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grindery-io/wallet-api/core/config"
	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/service"
)

var _ = Describe("SwapService", func() {
	var (
		svc      *service.SwapService
		swaps    *mockSwapStore
		gw       *mockGateway
		notifier *mockNotifier
		ctx      context.Context
	)

	req := service.SwapRequest{
		EventID:        "evt-swap",
		UserTelegramID: "100",
		ChainID:        "matic",
		TokenIn:        "0x2222222222222222222222222222222222222222",
		AmountIn:       "1000000000000000000",
		TokenOut:       "0x3333333333333333333333333333333333333333",
		AmountOut:      "2500000000000000000",
		To:             "0x9999999999999999999999999999999999999999",
		Value:          "0x00",
		Data:           "0xrouter",
	}

	BeforeEach(func() {
		ctx = context.Background()
		swaps = &mockSwapStore{}
		gw = &mockGateway{}
		notifier = &mockNotifier{}
		svc = service.NewSwapService(swaps, service.NewMachine(gw, nil), gw, notifier, nil)
	})

	It("relays the prepared router call as a delegate call", func() {
		var submitted gateway.TxRequest
		gw.submitFn = func(_ context.Context, r gateway.TxRequest) (*gateway.TxResult, error) {
			submitted = r
			return &gateway.TxResult{TxHash: "0xswap"}, nil
		}
		var persisted []model.Swap
		swaps.upsertFn = func(_ context.Context, sw *model.Swap) error {
			persisted = append(persisted, *sw)
			return nil
		}

		outcome, err := svc.HandleSwap(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeSuccess))
		Expect(submitted.To).To(Equal([]string{req.To}))
		Expect(submitted.Value).To(Equal([]string{req.Value}))
		Expect(submitted.Data).To(Equal([]string{req.Data}))
		Expect(submitted.DelegateCall).To(Equal(1))
		Expect(persisted[0].Status).To(Equal(model.OpStatusPending))
		Expect(persisted[0].UserWallet).NotTo(BeEmpty())
		Expect(persisted[len(persisted)-1].Status).To(Equal(model.OpStatusSuccess))
		Expect(persisted[len(persisted)-1].TransactionHash).To(Equal("0xswap"))
		Expect(notifier.swapCompleted).To(Equal(1))
	})

	It("retries before persisting when the user wallet does not resolve", func() {
		gw.resolveAddressFn = func(_ context.Context, _ string) (string, error) {
			return "", errors.New("resolver down")
		}
		upserts := 0
		swaps.upsertFn = func(_ context.Context, _ *model.Swap) error {
			upserts++
			return nil
		}

		outcome, err := svc.HandleSwap(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeRetry))
		Expect(upserts).To(BeZero())
		Expect(gw.submitCalls).To(BeZero())
	})

	It("replays a delivered swap without touching the gateway", func() {
		swaps.getByEventIDFn = func(_ context.Context, eventID string) (*model.Swap, error) {
			return &model.Swap{EventID: eventID, Status: model.OpStatusSuccess}, nil
		}

		outcome, err := svc.HandleSwap(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeSuccess))
		Expect(gw.submitCalls).To(BeZero())
		Expect(notifier.swapCompleted).To(BeZero())
	})

	It("fails terminally when the gateway rejects the swap", func() {
		var persisted []model.Swap
		swaps.upsertFn = func(_ context.Context, sw *model.Swap) error {
			persisted = append(persisted, *sw)
			return nil
		}
		gw.submitFn = func(_ context.Context, _ gateway.TxRequest) (*gateway.TxResult, error) {
			return nil, &gateway.Error{StatusCode: 470, Body: "rejected"}
		}

		outcome, err := svc.HandleSwap(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeFailure))
		Expect(persisted[len(persisted)-1].Status).To(Equal(model.OpStatusFailure))
	})
})

var _ = Describe("VestingService", func() {
	var (
		svc      *service.VestingService
		vestings *mockVestingStore
		gw       *mockGateway
		notifier *mockNotifier
		ctx      context.Context
	)

	cfg := config.VestingConfig{
		BatchPlannerAddress: "0x8888888888888888888888888888888888888888",
	}

	req := service.VestingRequest{
		EventID:        "evt-vest",
		UserTelegramID: "100",
		ChainID:        "matic",
		TokenAddress:   "0x2222222222222222222222222222222222222222",
		TokenDecimals:  18,
	}

	BeforeEach(func() {
		ctx = context.Background()
		vestings = &mockVestingStore{}
		gw = &mockGateway{}
		notifier = &mockNotifier{}
		svc = service.NewVestingService(vestings, service.NewMachine(gw, nil), gw, notifier, cfg, nil)

		req.Recipients = []struct {
			RecipientAddress string `json:"recipientAddress"`
			Amount           string `json:"amount"`
		}{
			{RecipientAddress: "0x5555555555555555555555555555555555555555", Amount: "10"},
			{RecipientAddress: "0x6666666666666666666666666666666666666666", Amount: "2.5"},
		}
	})

	It("submits one batch against the planner contract", func() {
		var submitted gateway.TxRequest
		gw.submitFn = func(_ context.Context, r gateway.TxRequest) (*gateway.TxResult, error) {
			submitted = r
			return &gateway.TxResult{TxHash: "0xvest"}, nil
		}

		outcome, err := svc.HandleVesting(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeSuccess))
		Expect(gw.submitCalls).To(Equal(1))
		Expect(submitted.To).To(HaveLen(2))
		Expect(submitted.To[0]).To(Equal(cfg.BatchPlannerAddress))
		Expect(submitted.To[1]).To(Equal(cfg.BatchPlannerAddress))
		Expect(submitted.Value).To(Equal([]string{"0x00", "0x00"}))
		Expect(submitted.Data[0]).To(HavePrefix("0x4d8045a0"))
		Expect(strings.ToLower(submitted.Data[0])).To(ContainSubstring("5555555555555555555555555555555555555555"))
		Expect(strings.ToLower(submitted.Data[1])).To(ContainSubstring("6666666666666666666666666666666666666666"))
		Expect(notifier.vestingCompleted).To(Equal(1))
	})

	It("fails terminally when any recipient amount is malformed", func() {
		req.Recipients[1].Amount = "not-a-number"
		var persisted []model.Vesting
		vestings.upsertFn = func(_ context.Context, v *model.Vesting) error {
			persisted = append(persisted, *v)
			return nil
		}

		outcome, err := svc.HandleVesting(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeFailure))
		Expect(persisted[len(persisted)-1].Status).To(Equal(model.OpStatusFailure))
	})

	It("retries before persisting when the sender wallet does not resolve", func() {
		gw.resolveAddressFn = func(_ context.Context, _ string) (string, error) {
			return "", errors.New("resolver down")
		}
		upserts := 0
		vestings.upsertFn = func(_ context.Context, _ *model.Vesting) error {
			upserts++
			return nil
		}

		outcome, err := svc.HandleVesting(ctx, req)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(service.OutcomeRetry))
		Expect(upserts).To(BeZero())
	})
})

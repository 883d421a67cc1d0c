package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grindery-io/wallet-api/internal/gateway"
	"github.com/grindery-io/wallet-api/internal/model"
	"github.com/grindery-io/wallet-api/internal/service"
)

// fakeOperation drives the machine without a real store behind it.
type fakeOperation struct {
	state     service.State
	submitFn  func(ctx context.Context) (*gateway.TxResult, error)
	updates   []service.StateChange
	updateErr error
	successes []string
}

func (o *fakeOperation) State() service.State { return o.state }

func (o *fakeOperation) Submit(ctx context.Context) (*gateway.TxResult, error) {
	if o.submitFn != nil {
		return o.submitFn(ctx)
	}
	return &gateway.TxResult{}, nil
}

func (o *fakeOperation) Update(ctx context.Context, change service.StateChange) error {
	if o.updateErr != nil {
		return o.updateErr
	}
	o.updates = append(o.updates, change)
	return nil
}

func (o *fakeOperation) OnSuccess(ctx context.Context, txHash string, completedAt time.Time) {
	o.successes = append(o.successes, txHash)
}

var _ = Describe("Machine", func() {
	var (
		machine *service.Machine
		gw      *mockGateway
		ctx     context.Context
	)

	saneValues := []string{"1000000000000000000"}

	BeforeEach(func() {
		ctx = context.Background()
		gw = &mockGateway{}
		machine = service.NewMachine(gw, nil)
	})

	Describe("terminal states", func() {
		It("short-circuits success without side effects", func() {
			op := &fakeOperation{state: service.State{Status: model.OpStatusSuccess}}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(gw.submitCalls).To(BeZero())
			Expect(op.updates).To(BeEmpty())
			Expect(op.successes).To(BeEmpty())
		})

		It("short-circuits failure without side effects", func() {
			op := &fakeOperation{state: service.State{Status: model.OpStatusFailure}}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeFailure))
			Expect(gw.submitCalls).To(BeZero())
		})
	})

	Describe("fresh pending operations", func() {
		It("transitions to success when the gateway returns a transaction hash", func() {
			op := &fakeOperation{
				state: service.State{Status: model.OpStatusPending, DateAdded: time.Now(), Values: saneValues},
				submitFn: func(ctx context.Context) (*gateway.TxResult, error) {
					return &gateway.TxResult{TxHash: "0xfinal"}, nil
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(op.updates).To(HaveLen(1))
			Expect(op.updates[0].Status).To(Equal(model.OpStatusSuccess))
			Expect(op.updates[0].TransactionHash).To(Equal("0xfinal"))
			Expect(op.successes).To(Equal([]string{"0xfinal"}))
		})

		It("parks the operation in pending_hash when only a user op hash returns", func() {
			op := &fakeOperation{
				state: service.State{Status: model.OpStatusPending, DateAdded: time.Now(), Values: saneValues},
				submitFn: func(ctx context.Context) (*gateway.TxResult, error) {
					return &gateway.TxResult{UserOpHash: "0xop"}, nil
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeRetry))
			Expect(op.updates).To(HaveLen(1))
			Expect(op.updates[0].Status).To(Equal(model.OpStatusPendingHash))
			Expect(op.updates[0].UserOpHash).To(Equal("0xop"))
			Expect(op.successes).To(BeEmpty())
		})

		It("retries without persisting when the gateway returns neither hash", func() {
			op := &fakeOperation{
				state: service.State{Status: model.OpStatusPending, DateAdded: time.Now(), Values: saneValues},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeRetry))
			Expect(op.updates).To(BeEmpty())
		})

		It("retries on a transient submission error", func() {
			op := &fakeOperation{
				state: service.State{Status: model.OpStatusPending, DateAdded: time.Now(), Values: saneValues},
				submitFn: func(ctx context.Context) (*gateway.TxResult, error) {
					return nil, errors.New("connection reset")
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeRetry))
			Expect(op.updates).To(BeEmpty())
		})

		DescribeTable("fails terminally on unrecoverable gateway codes",
			func(code int) {
				op := &fakeOperation{
					state: service.State{Status: model.OpStatusPending, DateAdded: time.Now(), Values: saneValues},
					submitFn: func(ctx context.Context) (*gateway.TxResult, error) {
						return nil, &gateway.Error{StatusCode: code, Body: "rejected"}
					},
				}

				outcome, err := machine.Advance(ctx, op)

				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(service.OutcomeFailure))
				Expect(op.updates).To(HaveLen(1))
				Expect(op.updates[0].Status).To(Equal(model.OpStatusFailure))
			},
			Entry("code 470", 470),
			Entry("code 400", 400),
		)

		It("fails terminally when the amount is not a sane positive integer", func() {
			op := &fakeOperation{
				state: service.State{Status: model.OpStatusPending, DateAdded: time.Now(), Values: []string{"-5"}},
				submitFn: func(ctx context.Context) (*gateway.TxResult, error) {
					return nil, errors.New("invalid uint")
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeFailure))
			Expect(op.updates).To(HaveLen(1))
			Expect(op.updates[0].Status).To(Equal(model.OpStatusFailure))
		})
	})

	Describe("pending_hash operations", func() {
		It("fails a stale operation past the ten minute cutoff", func() {
			op := &fakeOperation{
				state: service.State{
					Status:     model.OpStatusPendingHash,
					UserOpHash: "0xop",
					DateAdded:  time.Now().Add(-11 * time.Minute),
					Values:     saneValues,
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeFailure))
			Expect(op.updates).To(HaveLen(1))
			Expect(op.updates[0].Status).To(Equal(model.OpStatusFailure))
			Expect(gw.pollCalls).To(BeZero())
		})

		It("assumes success when no user op hash was ever recorded", func() {
			op := &fakeOperation{
				state: service.State{
					Status:    model.OpStatusPendingHash,
					DateAdded: time.Now(),
					Values:    saneValues,
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(op.updates).To(HaveLen(1))
			Expect(op.updates[0].Status).To(Equal(model.OpStatusSuccess))
			Expect(gw.pollCalls).To(BeZero())
			Expect(gw.submitCalls).To(BeZero())
		})

		It("completes the operation when the poll returns a transaction hash", func() {
			gw.pollFn = func(ctx context.Context, userOpHash string) (*gateway.TxResult, error) {
				Expect(userOpHash).To(Equal("0xop"))
				return &gateway.TxResult{TxHash: "0xdone"}, nil
			}
			op := &fakeOperation{
				state: service.State{
					Status:     model.OpStatusPendingHash,
					UserOpHash: "0xop",
					DateAdded:  time.Now(),
					Values:     saneValues,
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeSuccess))
			Expect(gw.submitCalls).To(BeZero())
			Expect(op.updates).To(HaveLen(1))
			Expect(op.updates[0].TransactionHash).To(Equal("0xdone"))
			Expect(op.successes).To(Equal([]string{"0xdone"}))
		})

		It("retries while the poll still has no hash", func() {
			gw.pollFn = func(ctx context.Context, userOpHash string) (*gateway.TxResult, error) {
				return &gateway.TxResult{UserOpHash: userOpHash}, nil
			}
			op := &fakeOperation{
				state: service.State{
					Status:     model.OpStatusPendingHash,
					UserOpHash: "0xop",
					DateAdded:  time.Now(),
					Values:     saneValues,
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeRetry))
			Expect(op.updates).To(BeEmpty())
			Expect(gw.submitCalls).To(BeZero())
		})

		It("fails terminally when the poll reports code 470", func() {
			gw.pollFn = func(ctx context.Context, userOpHash string) (*gateway.TxResult, error) {
				return nil, &gateway.Error{StatusCode: 470, Body: "rate"}
			}
			op := &fakeOperation{
				state: service.State{
					Status:     model.OpStatusPendingHash,
					UserOpHash: "0xop",
					DateAdded:  time.Now(),
					Values:     saneValues,
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeFailure))
			Expect(op.updates).To(HaveLen(1))
			Expect(op.updates[0].Status).To(Equal(model.OpStatusFailure))
		})

		It("retries on a transient poll error", func() {
			gw.pollFn = func(ctx context.Context, userOpHash string) (*gateway.TxResult, error) {
				return nil, errors.New("timeout")
			}
			op := &fakeOperation{
				state: service.State{
					Status:     model.OpStatusPendingHash,
					UserOpHash: "0xop",
					DateAdded:  time.Now(),
					Values:     saneValues,
				},
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeRetry))
			Expect(op.updates).To(BeEmpty())
		})
	})

	Describe("store failures", func() {
		It("returns retry with the error when persisting a transition fails", func() {
			op := &fakeOperation{
				state: service.State{Status: model.OpStatusPending, DateAdded: time.Now(), Values: saneValues},
				submitFn: func(ctx context.Context) (*gateway.TxResult, error) {
					return &gateway.TxResult{TxHash: "0xfinal"}, nil
				},
				updateErr: errors.New("document store unavailable"),
			}

			outcome, err := machine.Advance(ctx, op)

			Expect(err).To(HaveOccurred())
			Expect(outcome).To(Equal(service.OutcomeRetry))
			Expect(op.successes).To(BeEmpty())
		})
	})
})

package gateway

import "context"

// TxResult is the gateway's answer to a submission or a status poll. Exactly
// one of the two hashes is usually set: TxHash once the transaction landed
// on-chain, UserOpHash while the operation is still executing asynchronously.
type TxResult struct {
	TxHash     string `json:"txHash"`
	UserOpHash string `json:"userOpHash"`
}

// TxRequest is a (possibly batched) transaction submission. The slices are
// parallel; everything except vesting submits single-element batches.
type TxRequest struct {
	UserTelegramID string
	Chain          string
	To             []string
	Value          []string
	Data           []string
	DelegateCall   int
}

// Client is the custodial wallet gateway (PatchWallet). Implementations manage
// their own access token; callers never see auth.
type Client interface {
	ResolveAddress(ctx context.Context, userTelegramID string) (string, error)
	SubmitTransaction(ctx context.Context, req TxRequest) (*TxResult, error)
	PollStatus(ctx context.Context, userOpHash string) (*TxResult, error)
}

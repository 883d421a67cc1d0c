package notify

import (
	"context"
	"time"

	"github.com/grindery-io/wallet-api/internal/model"
)

// Notifier is the post-success fan-out to analytics and automation sinks.
// Every method is best-effort: implementations log failures and swallow them,
// because by the time a notification fires the on-chain effect has already
// happened and cannot be rolled back.
type Notifier interface {
	TransferCompleted(ctx context.Context, t *model.Transfer, completedAt time.Time)
	RewardCompleted(ctx context.Context, r *model.Reward, completedAt time.Time)
	SwapCompleted(ctx context.Context, s *model.Swap, completedAt time.Time)
	VestingCompleted(ctx context.Context, v *model.Vesting, completedAt time.Time)
	UserCreated(ctx context.Context, u *model.User)
}

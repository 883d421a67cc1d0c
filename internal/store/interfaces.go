package store

import (
	"context"
	"errors"

	"github.com/grindery-io/wallet-api/internal/model"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// TransferStore defines the contract for transfer operation records
type TransferStore interface {
	GetByEventID(ctx context.Context, eventID string) (*model.Transfer, error)
	// Upsert inserts or updates the record keyed by eventId. The stored
	// dateAdded is never overwritten on update.
	Upsert(ctx context.Context, t *model.Transfer) error
	// EarliestIncoming returns the oldest transfer received by recipientTgID
	// from a different sender (the "parent transaction" of a referral chain).
	EarliestIncoming(ctx context.Context, recipientTgID string) (*model.Transfer, error)
}

// RewardStore defines the contract for reward operation records
type RewardStore interface {
	GetByEventIDAndReason(ctx context.Context, eventID, reason string) (*model.Reward, error)
	// FindDuplicate returns a reward for the same subject and reason recorded
	// under a different event id, or ErrNotFound.
	FindDuplicate(ctx context.Context, userTelegramID, reason, excludeEventID string) (*model.Reward, error)
	// FindDuplicateForSponsored is the link-reward variant: the duplicate key
	// is the sponsored user, not the referent being paid.
	FindDuplicateForSponsored(ctx context.Context, sponsoredTgID, excludeEventID string) (*model.Reward, error)
	Upsert(ctx context.Context, r *model.Reward) error
}

// SwapStore defines the contract for swap operation records
type SwapStore interface {
	GetByEventID(ctx context.Context, eventID string) (*model.Swap, error)
	Upsert(ctx context.Context, s *model.Swap) error
}

// VestingStore defines the contract for vesting plan records
type VestingStore interface {
	GetByEventID(ctx context.Context, eventID string) (*model.Vesting, error)
	Upsert(ctx context.Context, v *model.Vesting) error
}

// UserStore defines the contract for wallet user records
type UserStore interface {
	GetByTelegramID(ctx context.Context, userTelegramID string) (*model.User, error)
	Exists(ctx context.Context, userTelegramID string) (bool, error)
	// Create inserts the user unless a record for the same Telegram id already
	// exists. Returns false when the insert was skipped.
	Create(ctx context.Context, u *model.User) (bool, error)
	SetWallet(ctx context.Context, userTelegramID, wallet string) error
}

// EventLogStore defines the contract for the webhook delivery log
type EventLogStore interface {
	CreateOrGet(ctx context.Context, e *model.EventLog) (*model.EventLog, bool, error)
	GetByID(ctx context.Context, id int64) (*model.EventLog, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg *string) error
	MarkReceived(ctx context.Context, id int64) error
	IncrementAttempts(ctx context.Context, id int64) error
}

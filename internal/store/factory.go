package store

import (
	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Stores bundles all data access behind one constructor, so wiring in the
// binaries stays a single call.
type Stores struct {
	transfers TransferStore
	rewards   RewardStore
	swaps     SwapStore
	vestings  VestingStore
	users     UserStore
	eventLogs EventLogStore
}

func NewStores(docs arangodb.Database, pool *pgxpool.Pool) *Stores {
	return &Stores{
		transfers: newTransferStore(docs),
		rewards:   newRewardStore(docs),
		swaps:     newSwapStore(docs),
		vestings:  newVestingStore(docs),
		users:     newUserStore(docs),
		eventLogs: newEventLogStore(pool),
	}
}

func (s *Stores) Transfers() TransferStore { return s.transfers }
func (s *Stores) Rewards() RewardStore     { return s.rewards }
func (s *Stores) Swaps() SwapStore         { return s.swaps }
func (s *Stores) Vestings() VestingStore   { return s.vestings }
func (s *Stores) Users() UserStore         { return s.users }
func (s *Stores) EventLogs() EventLogStore { return s.eventLogs }

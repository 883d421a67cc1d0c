package store

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/grindery-io/wallet-api/core/docdb"
	"github.com/grindery-io/wallet-api/internal/model"
)

type swapStore struct {
	db arangodb.Database
}

func newSwapStore(db arangodb.Database) SwapStore {
	return &swapStore{db: db}
}

func (s *swapStore) GetByEventID(ctx context.Context, eventID string) (*model.Swap, error) {
	query := `
		FOR s IN swaps
			FILTER s.eventId == @eventId
			LIMIT 1
			RETURN s
	`
	var sw model.Swap
	if err := readOne(ctx, s.db, query, map[string]any{"eventId": eventID}, &sw); err != nil {
		return nil, err
	}
	return &sw, nil
}

func (s *swapStore) Upsert(ctx context.Context, sw *model.Swap) error {
	return upsertDoc(ctx, s.db, docdb.ColSwaps, map[string]any{"eventId": sw.EventID}, sw)
}

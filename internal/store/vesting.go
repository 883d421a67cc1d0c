package store

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/grindery-io/wallet-api/core/docdb"
	"github.com/grindery-io/wallet-api/internal/model"
)

type vestingStore struct {
	db arangodb.Database
}

func newVestingStore(db arangodb.Database) VestingStore {
	return &vestingStore{db: db}
}

func (s *vestingStore) GetByEventID(ctx context.Context, eventID string) (*model.Vesting, error) {
	query := `
		FOR v IN vesting_plans
			FILTER v.eventId == @eventId
			LIMIT 1
			RETURN v
	`
	var v model.Vesting
	if err := readOne(ctx, s.db, query, map[string]any{"eventId": eventID}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *vestingStore) Upsert(ctx context.Context, v *model.Vesting) error {
	return upsertDoc(ctx, s.db, docdb.ColVestingPlans, map[string]any{"eventId": v.EventID}, v)
}

package store

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/grindery-io/wallet-api/core/docdb"
	"github.com/grindery-io/wallet-api/internal/model"
)

type rewardStore struct {
	db arangodb.Database
}

func newRewardStore(db arangodb.Database) RewardStore {
	return &rewardStore{db: db}
}

func (s *rewardStore) GetByEventIDAndReason(ctx context.Context, eventID, reason string) (*model.Reward, error) {
	query := `
		FOR r IN rewards
			FILTER r.eventId == @eventId AND r.reason == @reason
			LIMIT 1
			RETURN r
	`
	var r model.Reward
	bindVars := map[string]any{"eventId": eventID, "reason": reason}
	if err := readOne(ctx, s.db, query, bindVars, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *rewardStore) FindDuplicate(ctx context.Context, userTelegramID, reason, excludeEventID string) (*model.Reward, error) {
	query := `
		FOR r IN rewards
			FILTER r.userTelegramID == @user AND r.reason == @reason
			FILTER r.eventId != @exclude
			LIMIT 1
			RETURN r
	`
	var r model.Reward
	bindVars := map[string]any{"user": userTelegramID, "reason": reason, "exclude": excludeEventID}
	if err := readOne(ctx, s.db, query, bindVars, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *rewardStore) FindDuplicateForSponsored(ctx context.Context, sponsoredTgID, excludeEventID string) (*model.Reward, error) {
	query := `
		FOR r IN rewards
			FILTER r.reason == @reason AND r.sponsoredUserTelegramID == @sponsored
			FILTER r.eventId != @exclude
			LIMIT 1
			RETURN r
	`
	var r model.Reward
	bindVars := map[string]any{"reason": model.ReasonLink, "sponsored": sponsoredTgID, "exclude": excludeEventID}
	if err := readOne(ctx, s.db, query, bindVars, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *rewardStore) Upsert(ctx context.Context, r *model.Reward) error {
	key := map[string]any{"eventId": r.EventID, "reason": r.Reason}
	return upsertDoc(ctx, s.db, docdb.ColRewards, key, r)
}

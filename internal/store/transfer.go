package store

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/grindery-io/wallet-api/core/docdb"
	"github.com/grindery-io/wallet-api/internal/model"
)

type transferStore struct {
	db arangodb.Database
}

func newTransferStore(db arangodb.Database) TransferStore {
	return &transferStore{db: db}
}

func (s *transferStore) GetByEventID(ctx context.Context, eventID string) (*model.Transfer, error) {
	query := `
		FOR t IN transfers
			FILTER t.eventId == @eventId
			LIMIT 1
			RETURN t
	`
	var t model.Transfer
	if err := readOne(ctx, s.db, query, map[string]any{"eventId": eventID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *transferStore) Upsert(ctx context.Context, t *model.Transfer) error {
	return upsertDoc(ctx, s.db, docdb.ColTransfers, map[string]any{"eventId": t.EventID}, t)
}

func (s *transferStore) EarliestIncoming(ctx context.Context, recipientTgID string) (*model.Transfer, error) {
	query := `
		FOR t IN transfers
			FILTER t.recipientTgId == @recipient
			FILTER t.senderTgId != t.recipientTgId
			SORT t.dateAdded ASC
			LIMIT 1
			RETURN t
	`
	var t model.Transfer
	if err := readOne(ctx, s.db, query, map[string]any{"recipient": recipientTgID}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

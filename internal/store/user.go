package store

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/grindery-io/wallet-api/internal/model"
)

type userStore struct {
	db arangodb.Database
}

func newUserStore(db arangodb.Database) UserStore {
	return &userStore{db: db}
}

func (s *userStore) GetByTelegramID(ctx context.Context, userTelegramID string) (*model.User, error) {
	query := `
		FOR u IN users
			FILTER u.userTelegramID == @tg
			LIMIT 1
			RETURN u
	`
	var u model.User
	if err := readOne(ctx, s.db, query, map[string]any{"tg": userTelegramID}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Exists(ctx context.Context, userTelegramID string) (bool, error) {
	_, err := s.GetByTelegramID(ctx, userTelegramID)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts the user only when no record with the same Telegram id
// exists yet. The UPSERT with an empty update branch makes the existence
// check and the insert a single atomic statement, which is what guards the
// new-user orchestration against a concurrent insert from another delivery.
func (s *userStore) Create(ctx context.Context, u *model.User) (bool, error) {
	doc, err := toDoc(u)
	if err != nil {
		return false, err
	}

	query := `
		UPSERT { userTelegramID: @tg }
		INSERT @doc
		UPDATE {}
		IN users
		RETURN { created: OLD == null }
	`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{"tg": u.UserTelegramID, "doc": doc},
	})
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	defer cursor.Close()

	var result struct {
		Created bool `json:"created"`
	}
	if cursor.HasMore() {
		if _, err := cursor.ReadDocument(ctx, &result); err != nil {
			return false, fmt.Errorf("read create result: %w", err)
		}
	}
	return result.Created, nil
}

func (s *userStore) SetWallet(ctx context.Context, userTelegramID, wallet string) error {
	query := `
		FOR u IN users
			FILTER u.userTelegramID == @tg
			UPDATE u WITH { patchwallet: @wallet } IN users
	`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{"tg": userTelegramID, "wallet": wallet},
	})
	if err != nil {
		return fmt.Errorf("set wallet: %w", err)
	}
	return cursor.Close()
}

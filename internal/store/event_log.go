package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grindery-io/wallet-api/internal/model"
)

type eventLogStore struct {
	pool *pgxpool.Pool
}

func newEventLogStore(pool *pgxpool.Pool) EventLogStore {
	return &eventLogStore{pool: pool}
}

// NewEventLogStore builds a standalone event log store. The server binary
// uses this directly since it never touches the document collections.
func NewEventLogStore(pool *pgxpool.Pool) EventLogStore {
	return newEventLogStore(pool)
}

const eventLogSchema = `
CREATE TABLE IF NOT EXISTS event_logs (
	id          BIGINT PRIMARY KEY,
	event_id    TEXT NOT NULL,
	kind        TEXT NOT NULL,
	payload     JSONB NOT NULL,
	dedupe_key  TEXT NOT NULL UNIQUE,
	status      TEXT NOT NULL DEFAULT 'received',
	attempts    INT NOT NULL DEFAULT 0,
	last_error  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureEventLogSchema creates the event log table if it is missing. Called
// once at startup, mirroring the docdb collection bootstrap.
func EnsureEventLogSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, eventLogSchema); err != nil {
		return fmt.Errorf("ensure event_logs schema: %w", err)
	}
	return nil
}

const eventLogColumns = `id, event_id, kind, payload, dedupe_key, status, attempts, last_error, created_at, updated_at`

func (s *eventLogStore) CreateOrGet(ctx context.Context, e *model.EventLog) (*model.EventLog, bool, error) {
	insert := `
		INSERT INTO event_logs (id, event_id, kind, payload, dedupe_key, status, attempts)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING ` + eventLogColumns

	row := s.pool.QueryRow(ctx, insert, e.ID, e.EventID, e.Kind, e.Payload, e.DedupeKey, model.EventLogStatusReceived)
	created, err := scanEventLog(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("inserting event log: %w", err)
	}

	// Conflict: a delivery with the same dedupe key already exists.
	existing, err := s.getByDedupeKey(ctx, e.DedupeKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *eventLogStore) GetByID(ctx context.Context, id int64) (*model.EventLog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+eventLogColumns+` FROM event_logs WHERE id = $1`, id)
	e, err := scanEventLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting event log: %w", err)
	}
	return e, nil
}

func (s *eventLogStore) getByDedupeKey(ctx context.Context, dedupeKey string) (*model.EventLog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+eventLogColumns+` FROM event_logs WHERE dedupe_key = $1`, dedupeKey)
	e, err := scanEventLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting event log by dedupe key: %w", err)
	}
	return e, nil
}

func (s *eventLogStore) MarkProcessed(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, model.EventLogStatusProcessed, nil)
}

func (s *eventLogStore) MarkFailed(ctx context.Context, id int64, errMsg *string) error {
	return s.setStatus(ctx, id, model.EventLogStatusFailed, errMsg)
}

func (s *eventLogStore) MarkReceived(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, model.EventLogStatusReceived, nil)
}

func (s *eventLogStore) setStatus(ctx context.Context, id int64, status model.EventLogStatus, errMsg *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE event_logs SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		return fmt.Errorf("updating event log status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *eventLogStore) IncrementAttempts(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE event_logs SET attempts = attempts + 1, updated_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("incrementing event log attempts: %w", err)
	}
	return nil
}

func scanEventLog(row pgx.Row) (*model.EventLog, error) {
	var e model.EventLog
	err := row.Scan(&e.ID, &e.EventID, &e.Kind, &e.Payload, &e.DedupeKey, &e.Status, &e.Attempts, &e.LastError, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

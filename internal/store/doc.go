// Package store persists operation state. Operation records (transfers,
// rewards, swaps, vesting plans) and users live in ArangoDB collections and
// are only ever mutated through atomic AQL UPSERT by their idempotency key,
// so two concurrent writers race safely: the last upsert wins field-by-field
// and dateAdded is never overwritten after first insertion. The webhook
// delivery log lives in Postgres.
package store

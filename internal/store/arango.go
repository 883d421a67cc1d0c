package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"
)

// toDoc converts a model struct into the bind-var map AQL expects, going
// through its json tags so field names match the persisted documents.
func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// upsertDoc runs an UPSERT keyed on the given lookup fields. The insert branch
// receives the full document; the update branch receives the document with
// dateAdded removed, so the creation timestamp survives every later write.
func upsertDoc(ctx context.Context, db arangodb.Database, collection string, key map[string]any, v any) error {
	doc, err := toDoc(v)
	if err != nil {
		return err
	}

	update := make(map[string]any, len(doc))
	for k, val := range doc {
		if k == "dateAdded" {
			continue
		}
		update[k] = val
	}

	query := fmt.Sprintf(`UPSERT @key INSERT @insert UPDATE @update IN %s`, collection)
	cursor, err := db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]any{
			"key":    key,
			"insert": doc,
			"update": update,
		},
	})
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return cursor.Close()
}

// readOne reads the first document off a cursor into out, mapping an empty
// result to ErrNotFound.
func readOne(ctx context.Context, db arangodb.Database, query string, bindVars map[string]any, out any) error {
	cursor, err := db.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return ErrNotFound
	}
	if _, err := cursor.ReadDocument(ctx, out); err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	return nil
}

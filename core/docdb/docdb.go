package docdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

var ErrNotFound = errors.New("document not found")

// Collection names, one per operation kind plus users.
const (
	ColTransfers    = "transfers"
	ColRewards      = "rewards"
	ColSwaps        = "swaps"
	ColVestingPlans = "vesting_plans"
	ColUsers        = "users"
)

type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("docdb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("docdb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("docdb database name is required")
	}
	return nil
}

// Client owns the ArangoDB connection and collection bootstrap. Stores get at
// documents through DB() with AQL; all mutation goes through atomic UPSERT
// statements so concurrent writers never need an in-process lock.
type Client struct {
	conn         connection.Connection
	arangoClient arangodb.Client
	db           arangodb.Database
	cfg          Config
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("docdb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("docdb auth: %w", err)
	}

	return &Client{
		conn:         conn,
		arangoClient: arangodb.NewClient(conn),
		cfg:          cfg,
	}, nil
}

// DB returns the bound database. EnsureDatabase must have been called first.
func (c *Client) DB() arangodb.Database {
	return c.db
}

func (c *Client) EnsureDatabase(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arangoClient.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}

	if !exists {
		_, err = c.arangoClient.CreateDatabase(ctx, c.cfg.Database, nil)
		if err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		slog.InfoContext(ctx, "docdb database created",
			"database", c.cfg.Database,
			"duration_ms", time.Since(start).Milliseconds())
	}

	db, err := c.arangoClient.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db

	return nil
}

// EnsureCollections creates the operation collections and their indexes.
// The unique (userTelegramID, reason, sponsoredUserTelegramID) index on
// rewards is the reservation step that keeps two concurrent first deliveries
// from paying the same reward twice under different event ids. The sponsored
// id participates so link rewards stay unique per sponsored user while a
// referent can still earn one per user they bring in.
func (c *Client) EnsureCollections(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	for _, name := range []string{ColTransfers, ColRewards, ColSwaps, ColVestingPlans, ColUsers} {
		if err := c.ensureCollection(ctx, name); err != nil {
			return err
		}
	}

	indexes := []struct {
		collection string
		name       string
		fields     []string
		unique     bool
	}{
		{ColTransfers, "idx_transfers_event", []string{"eventId"}, true},
		{ColTransfers, "idx_transfers_recipient", []string{"recipientTgId", "dateAdded"}, false},
		{ColRewards, "idx_rewards_event_reason", []string{"eventId", "reason"}, true},
		{ColRewards, "idx_rewards_user_reason", []string{"userTelegramID", "reason", "sponsoredUserTelegramID"}, true},
		{ColSwaps, "idx_swaps_event", []string{"eventId"}, true},
		{ColVestingPlans, "idx_vesting_event", []string{"eventId"}, true},
		{ColUsers, "idx_users_tg", []string{"userTelegramID"}, true},
	}

	for _, idx := range indexes {
		if err := c.ensureIndex(ctx, idx.collection, idx.name, idx.fields, idx.unique); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) ensureCollection(ctx context.Context, name string) error {
	exists, err := c.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s exists: %w", name, err)
	}

	if !exists {
		colType := arangodb.CollectionTypeDocument
		props := &arangodb.CreateCollectionPropertiesV2{Type: &colType}

		_, err = c.db.CreateCollectionV2(ctx, name, props)
		if err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		slog.InfoContext(ctx, "docdb collection created", "collection", name)
	}

	return nil
}

func (c *Client) ensureIndex(ctx context.Context, collection, name string, fields []string, unique bool) error {
	col, err := c.db.GetCollection(ctx, collection, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", collection, err)
	}

	opts := &arangodb.CreatePersistentIndexOptions{
		Name:   name,
		Unique: &unique,
	}
	if _, _, err := col.EnsurePersistentIndex(ctx, fields, opts); err != nil {
		return fmt.Errorf("ensure index %s on %s: %w", name, collection, err)
	}
	return nil
}

func (c *Client) Close() error {
	return nil
}

// Package database opens the catalog database through sqlx for either the
// PostgreSQL (lib/pq) or SQLite (go-sqlite3) driver and provides transaction
// and version helpers shared by the stores.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/config"
)

type Client struct {
	DB  *sqlx.DB
	cfg config.DatabaseConfig
}

func New(cfg config.DatabaseConfig) (*Client, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s: %w", cfg.Driver, err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

// Wrap builds a Client around an already opened handle.
func Wrap(db *sqlx.DB, cfg config.DatabaseConfig) *Client {
	return &Client{DB: db, cfg: cfg}
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// Driver returns the driver name the client was opened with.
func (c *Client) Driver() string {
	return c.DB.DriverName()
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// ServerVersion reports the database engine version string.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	query := `SHOW server_version`
	if c.Driver() == config.DriverSQLite {
		query = `SELECT sqlite_version()`
	}
	var version string
	if err := c.DB.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", fmt.Errorf("querying server version: %w", err)
	}
	return version, nil
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := c.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Package sqlite provides a SQLite implementation of the state store.
//
// SQLite is a lightweight, file-based database suitable for local development
// and single-node deployments. Memory vectors are stored as JSON strings in
// TEXT columns; the privacy ledger is an append-only table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evomem-labs/evomem-go/pkg/storage"
)

// Client implements storage.StateStore using SQLite as the backend.
type Client struct {
	db *sql.DB
}

// Config contains configuration for creating a SQLite state store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewClient creates a new SQLite state store client.
//
// The parent directory is created if needed, the connection is verified with
// a ping, and the state tables are created if they do not exist.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{db: db}
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the state tables.
func (c *Client) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS memory_states (
			user_id TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL,
			vector TEXT NOT NULL,
			last_update_at DATETIME NOT NULL,
			event_count INTEGER NOT NULL DEFAULT 0,
			significant_event_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS thresholds (
			user_id TEXT PRIMARY KEY,
			theta REAL NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS privacy_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			epsilon REAL NOT NULL,
			recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_privacy_ledger_user ON privacy_ledger(user_id)`,
	}

	for _, query := range queries {
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}

	return nil
}

// LoadMemoryState loads a user's memory state.
func (c *Client) LoadMemoryState(ctx context.Context, userID string) (*storage.MemoryState, error) {
	query := `SELECT user_id, dimension, vector, last_update_at, event_count, significant_event_count, created_at
		FROM memory_states WHERE user_id = ?`

	var state storage.MemoryState
	var vectorJSON string
	err := c.db.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID,
		&state.Dimension,
		&vectorJSON,
		&state.LastUpdateAt,
		&state.EventCount,
		&state.SignificantEventCount,
		&state.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LoadMemoryState: %w", err)
	}

	if err := json.Unmarshal([]byte(vectorJSON), &state.Vector); err != nil {
		return nil, fmt.Errorf("LoadMemoryState: decode vector: %w", err)
	}

	return &state, nil
}

// SaveMemoryState inserts or replaces a user's memory state.
func (c *Client) SaveMemoryState(ctx context.Context, state *storage.MemoryState) error {
	vectorJSON, err := json.Marshal(state.Vector)
	if err != nil {
		return fmt.Errorf("SaveMemoryState: encode vector: %w", err)
	}

	query := `INSERT OR REPLACE INTO memory_states
		(user_id, dimension, vector, last_update_at, event_count, significant_event_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = c.db.ExecContext(ctx, query,
		state.UserID,
		state.Dimension,
		string(vectorJSON),
		state.LastUpdateAt,
		state.EventCount,
		state.SignificantEventCount,
		state.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveMemoryState: %w", err)
	}

	return nil
}

// DeleteMemoryState removes a user's memory state.
func (c *Client) DeleteMemoryState(ctx context.Context, userID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM memory_states WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("DeleteMemoryState: %w", err)
	}
	return nil
}

// LoadThreshold loads a user's adaptive threshold.
func (c *Client) LoadThreshold(ctx context.Context, userID string) (*storage.ThresholdState, error) {
	query := `SELECT user_id, theta, updated_at FROM thresholds WHERE user_id = ?`

	var state storage.ThresholdState
	err := c.db.QueryRowContext(ctx, query, userID).Scan(&state.UserID, &state.Theta, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LoadThreshold: %w", err)
	}

	return &state, nil
}

// SaveThreshold inserts or replaces a user's adaptive threshold.
func (c *Client) SaveThreshold(ctx context.Context, state *storage.ThresholdState) error {
	query := `INSERT OR REPLACE INTO thresholds (user_id, theta, updated_at) VALUES (?, ?, ?)`

	_, err := c.db.ExecContext(ctx, query, state.UserID, state.Theta, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("SaveThreshold: %w", err)
	}
	return nil
}

// DeleteThreshold removes a user's adaptive threshold.
func (c *Client) DeleteThreshold(ctx context.Context, userID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM thresholds WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("DeleteThreshold: %w", err)
	}
	return nil
}

// LoadLedger loads a user's privacy ledger in recording order.
func (c *Client) LoadLedger(ctx context.Context, userID string) (*storage.LedgerState, error) {
	query := `SELECT epsilon FROM privacy_ledger WHERE user_id = ? ORDER BY id`

	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("LoadLedger: %w", err)
	}
	defer rows.Close()

	ledger := &storage.LedgerState{UserID: userID, Epsilons: make([]float64, 0)}
	for rows.Next() {
		var epsilon float64
		if err := rows.Scan(&epsilon); err != nil {
			return nil, fmt.Errorf("LoadLedger: %w", err)
		}
		ledger.Epsilons = append(ledger.Epsilons, epsilon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadLedger: %w", err)
	}

	return ledger, nil
}

// AppendLedger appends privacy charges to a user's ledger.
func (c *Client) AppendLedger(ctx context.Context, userID string, epsilons ...float64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("AppendLedger: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO privacy_ledger (user_id, epsilon, recorded_at) VALUES (?, ?, ?)`
	now := time.Now()
	for _, epsilon := range epsilons {
		if _, err := tx.ExecContext(ctx, query, userID, epsilon, now); err != nil {
			return fmt.Errorf("AppendLedger: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("AppendLedger: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

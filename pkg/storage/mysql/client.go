// Package mysql provides a MySQL implementation of the state store.
//
// Memory vectors are stored as JSON text; the privacy ledger is an
// append-only table. Suitable for deployments that already run MySQL.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/evomem-labs/evomem-go/pkg/storage"
)

// Client implements storage.StateStore using MySQL as the backend.
type Client struct {
	db *sql.DB
}

// Config contains MySQL configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// NewClient creates a new MySQL state store client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
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
			user_id VARCHAR(255) PRIMARY KEY,
			dimension INT NOT NULL,
			vector LONGTEXT NOT NULL,
			last_update_at DATETIME(6) NOT NULL,
			event_count BIGINT NOT NULL DEFAULT 0,
			significant_event_count BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS thresholds (
			user_id VARCHAR(255) PRIMARY KEY,
			theta DOUBLE NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS privacy_ledger (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			epsilon DOUBLE NOT NULL,
			recorded_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_privacy_ledger_user (user_id)
		)`,
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

	query := `INSERT INTO memory_states
		(user_id, dimension, vector, last_update_at, event_count, significant_event_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			dimension = VALUES(dimension),
			vector = VALUES(vector),
			last_update_at = VALUES(last_update_at),
			event_count = VALUES(event_count),
			significant_event_count = VALUES(significant_event_count)`

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
	query := `INSERT INTO thresholds (user_id, theta, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE theta = VALUES(theta), updated_at = VALUES(updated_at)`

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

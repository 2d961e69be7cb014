// Package postgres provides a PostgreSQL + pgvector state store.
//
// Memory vectors are stored in a pgvector vector(dim) column; the dimension
// is fixed at table creation. The privacy ledger is an append-only table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/evomem-labs/evomem-go/pkg/storage"
)

// Client implements storage.StateStore using PostgreSQL as the backend.
type Client struct {
	db        *sql.DB
	dimension int
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int
}

// NewClient creates a new PostgreSQL state store client.
//
// The pgvector extension is enabled and the state tables are created if
// they do not exist.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{db: db, dimension: cfg.Dimension}
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables enables pgvector and initializes the state tables.
func (c *Client) initTables(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_states (
			user_id VARCHAR(255) PRIMARY KEY,
			dimension INTEGER NOT NULL,
			vector vector(%d) NOT NULL,
			last_update_at TIMESTAMP NOT NULL,
			event_count BIGINT NOT NULL DEFAULT 0,
			significant_event_count BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`, c.dimension),
		`CREATE TABLE IF NOT EXISTS thresholds (
			user_id VARCHAR(255) PRIMARY KEY,
			theta DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS privacy_ledger (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			epsilon DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
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
		FROM memory_states WHERE user_id = $1`

	var state storage.MemoryState
	var vec pgvector.Vector
	err := c.db.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID,
		&state.Dimension,
		&vec,
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

	state.Vector = fromPgVector(vec)
	return &state, nil
}

// SaveMemoryState inserts or replaces a user's memory state.
func (c *Client) SaveMemoryState(ctx context.Context, state *storage.MemoryState) error {
	query := `INSERT INTO memory_states
		(user_id, dimension, vector, last_update_at, event_count, significant_event_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			dimension = EXCLUDED.dimension,
			vector = EXCLUDED.vector,
			last_update_at = EXCLUDED.last_update_at,
			event_count = EXCLUDED.event_count,
			significant_event_count = EXCLUDED.significant_event_count`

	_, err := c.db.ExecContext(ctx, query,
		state.UserID,
		state.Dimension,
		toPgVector(state.Vector),
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
	_, err := c.db.ExecContext(ctx, `DELETE FROM memory_states WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("DeleteMemoryState: %w", err)
	}
	return nil
}

// LoadThreshold loads a user's adaptive threshold.
func (c *Client) LoadThreshold(ctx context.Context, userID string) (*storage.ThresholdState, error) {
	query := `SELECT user_id, theta, updated_at FROM thresholds WHERE user_id = $1`

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
	query := `INSERT INTO thresholds (user_id, theta, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET theta = EXCLUDED.theta, updated_at = EXCLUDED.updated_at`

	_, err := c.db.ExecContext(ctx, query, state.UserID, state.Theta, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("SaveThreshold: %w", err)
	}
	return nil
}

// DeleteThreshold removes a user's adaptive threshold.
func (c *Client) DeleteThreshold(ctx context.Context, userID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM thresholds WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("DeleteThreshold: %w", err)
	}
	return nil
}

// LoadLedger loads a user's privacy ledger in recording order.
func (c *Client) LoadLedger(ctx context.Context, userID string) (*storage.LedgerState, error) {
	query := `SELECT epsilon FROM privacy_ledger WHERE user_id = $1 ORDER BY id`

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

	query := `INSERT INTO privacy_ledger (user_id, epsilon, recorded_at) VALUES ($1, $2, $3)`
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

// toPgVector converts a float64 vector to pgvector's float32 representation.
func toPgVector(v []float64) pgvector.Vector {
	f32 := make([]float32, len(v))
	for i, x := range v {
		f32[i] = float32(x)
	}
	return pgvector.NewVector(f32)
}

// fromPgVector converts a pgvector value back to float64.
func fromPgVector(vec pgvector.Vector) []float64 {
	f32 := vec.Slice()
	out := make([]float64, len(f32))
	for i, x := range f32 {
		out[i] = float64(x)
	}
	return out
}

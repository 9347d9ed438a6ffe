package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// PostgresDB records research sessions, their events and their logs.
type PostgresDB struct {
	Pool *pgxpool.Pool
}

// NewPostgresDB connects to databaseURL. Every streamed session holds a connection
// only for its create, log and final writes, so the pool stays small and drops
// idle connections between bursts.
func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresDB{Pool: pool}, nil
}

func (db *PostgresDB) Close() {
	db.Pool.Close()
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (db *PostgresDB) CreateSession(ctx context.Context, id uuid.UUID, query string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO research_sessions (id, query, status)
		VALUES ($1, $2, 'running')
	`, id, query)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FinishSession records the final status of a session. errMsg is stored only when non-empty.
func (db *PostgresDB) FinishSession(ctx context.Context, id uuid.UUID, status, errMsg string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE research_sessions
		SET status = $2, error = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1
	`, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	var errMsg *string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, query, status, error, created_at, updated_at
		FROM research_sessions WHERE id = $1
	`, id).Scan(&s.ID, &s.Query, &s.Status, &errMsg, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if errMsg != nil {
		s.Error = *errMsg
	}
	return &s, nil
}

func (db *PostgresDB) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, query, status, COALESCE(error, ''), created_at, updated_at
		FROM research_sessions ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Query, &s.Status, &s.Error, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendEvents stores encoded events after the ones already recorded for the session.
func (db *PostgresDB) AppendEvents(ctx context.Context, id uuid.UUID, firstSeq int, events []json.RawMessage) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, ev := range events {
		batch.Queue(`INSERT INTO research_events (session_id, seq, event) VALUES ($1, $2, $3)`, id, firstSeq+i, []byte(ev))
	}
	if err := db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}
	return nil
}

func (db *PostgresDB) ListEvents(ctx context.Context, id uuid.UUID) ([]json.RawMessage, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT event FROM research_events WHERE session_id = $1 ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, json.RawMessage(raw))
	}
	return events, rows.Err()
}

func (db *PostgresDB) InsertLog(ctx context.Context, id uuid.UUID, entry LogEntry) error {
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		meta = []byte("{}")
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO research_logs (session_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, id, entry.Timestamp, entry.Level, entry.Message, meta)
	return err
}

func (db *PostgresDB) ListLogs(ctx context.Context, id uuid.UUID) ([]LogEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT timestamp, level, message, metadata
		FROM research_logs WHERE session_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var e LogEntry
		var meta []byte
		if err := rows.Scan(&e.Timestamp, &e.Level, &e.Message, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

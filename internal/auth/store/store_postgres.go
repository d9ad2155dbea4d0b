package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Clock returns the current time.
type Clock func() time.Time

const sessionEntriesSchema = `
CREATE TABLE IF NOT EXISTS session_entries (
	session_id TEXT        NOT NULL,
	entry_key  TEXT        NOT NULL,
	value      BYTEA       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, entry_key)
)`

// PostgresProvider persists session entries in PostgreSQL.
type PostgresProvider struct {
	db    *sql.DB
	clock Clock
}

// PostgresOption configures a PostgresProvider.
type PostgresOption func(*PostgresProvider)

// WithPostgresClock sets the clock used for updated_at.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(p *PostgresProvider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewPostgresProvider(db *sql.DB, opts ...PostgresOption) *PostgresProvider {
	p := &PostgresProvider{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// EnsureSchema creates the session_entries table if it does not exist.
func (p *PostgresProvider) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, sessionEntriesSchema); err != nil {
		return fmt.Errorf("create session_entries: %w", err)
	}
	return nil
}

func (p *PostgresProvider) ForSession(sessionID string) Store {
	return &postgresStore{provider: p, sessionID: sessionID}
}

type postgresStore struct {
	provider  *PostgresProvider
	sessionID string
}

func (s *postgresStore) Persist(ctx context.Context, key Key, value []byte) error {
	query := `
		INSERT INTO session_entries (session_id, entry_key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, entry_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.provider.db.ExecContext(ctx, query, s.sessionID, string(key), value, s.provider.clock())
	if err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func (s *postgresStore) Read(ctx context.Context, key Key) ([]byte, error) {
	var value []byte
	err := s.provider.db.QueryRowContext(ctx,
		`SELECT value FROM session_entries WHERE session_id = $1 AND entry_key = $2`,
		s.sessionID, string(key),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

// Delete removes every given key in one statement.
func (s *postgresStore) Delete(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, string(k))
	}
	_, err := s.provider.db.ExecContext(ctx,
		`DELETE FROM session_entries WHERE session_id = $1 AND entry_key = ANY($2)`,
		s.sessionID, pq.Array(names),
	)
	if err != nil {
		return fmt.Errorf("delete session entries: %w", err)
	}
	return nil
}

// PurgeStale deletes entries not written for longer than ttl, the Postgres
// counterpart of Redis key expiry.
func (p *PostgresProvider) PurgeStale(ctx context.Context, ttl time.Duration) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM session_entries WHERE updated_at < $1`,
		p.clock().Add(-ttl),
	)
	if err != nil {
		return 0, fmt.Errorf("purge stale session entries: %w", err)
	}
	return res.RowsAffected()
}

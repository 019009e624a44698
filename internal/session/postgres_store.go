package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jscyril/spotify_streamer/api"
	playerrors "github.com/jscyril/spotify_streamer/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS playback_sessions (
	id           UUID PRIMARY KEY,
	track        JSONB NOT NULL,
	position_ms  INTEGER NOT NULL DEFAULT 0,
	queue_tracks JSONB NOT NULL DEFAULT '[]',
	queue_index  INTEGER NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS playback_sessions_updated_at_idx
	ON playback_sessions (updated_at DESC);
`

const upsertSession = `
INSERT INTO playback_sessions (id, track, position_ms, queue_tracks, queue_index, updated_at)
VALUES ($1::uuid, $2::jsonb, $3, $4::jsonb, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	track        = EXCLUDED.track,
	position_ms  = EXCLUDED.position_ms,
	queue_tracks = EXCLUDED.queue_tracks,
	queue_index  = EXCLUDED.queue_index,
	updated_at   = EXCLUDED.updated_at`

const latestSession = `
SELECT id::text, track, position_ms, queue_tracks, queue_index, updated_at
FROM playback_sessions
ORDER BY updated_at DESC
LIMIT 1`

// PostgresStore keeps sessions in the playback_sessions table. Every
// session is its own row; Load returns the most recently updated one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and verifies the connection
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the sessions table if it does not exist
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate sessions: %w", err)
	}
	return nil
}

// Save inserts or updates the session row
func (p *PostgresStore) Save(ctx context.Context, s Session) error {
	track, err := json.Marshal(s.Track)
	if err != nil {
		return fmt.Errorf("marshal track: %w", err)
	}
	queue := s.QueueTracks
	if queue == nil {
		queue = []api.Track{}
	}
	queueJSON, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	_, err = p.pool.Exec(ctx, upsertSession,
		s.ID.String(), string(track), s.PositionMs, string(queueJSON), s.QueueIndex, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the most recently updated session
func (p *PostgresStore) Load(ctx context.Context) (Session, error) {
	var (
		id           string
		track, queue []byte
		s            Session
	)

	err := p.pool.QueryRow(ctx, latestSession).
		Scan(&id, &track, &s.PositionMs, &queue, &s.QueueIndex, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, playerrors.ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	if s.ID, err = uuid.Parse(id); err != nil {
		return Session{}, fmt.Errorf("parse session id: %w", err)
	}
	if err := json.Unmarshal(track, &s.Track); err != nil {
		return Session{}, fmt.Errorf("unmarshal track: %w", err)
	}
	if err := json.Unmarshal(queue, &s.QueueTracks); err != nil {
		return Session{}, fmt.Errorf("unmarshal queue: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

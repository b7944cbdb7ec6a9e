package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS threads (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	topic      TEXT NOT NULL,
	title      TEXT NOT NULL,
	next_seq   BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_threads_owner ON threads(owner_id, created_at);
CREATE TABLE IF NOT EXISTS turns (
	id         TEXT PRIMARY KEY,
	thread_id  TEXT NOT NULL REFERENCES threads(id),
	local_id   TEXT NOT NULL,
	seq        BIGINT NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	topic      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (thread_id, local_id)
);
CREATE INDEX IF NOT EXISTS idx_turns_thread ON turns(thread_id, created_at, seq);
CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	thread_id  TEXT,
	kind       TEXT NOT NULL,
	topic      TEXT NOT NULL,
	title      TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_owner ON artifacts(owner_id, kind, created_at);
`

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and applies the schema. maxConns <= 0
// keeps the pgx default.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateThread creates a new thread.
func (s *PostgresStore) CreateThread(ctx context.Context, ownerID string, topic domain.Topic, titleSeed string) (*domain.Thread, error) {
	thread := &domain.Thread{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Topic:     topic,
		Title:     domain.TitleFromText(titleSeed),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO threads (id, owner_id, topic, title, created_at) VALUES ($1, $2, $3, $4, $5)`,
		thread.ID, thread.OwnerID, string(thread.Topic), thread.Title, thread.CreatedAt)
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// GetThread retrieves a thread by ID.
func (s *PostgresStore) GetThread(ctx context.Context, ownerID, threadID string) (*domain.Thread, error) {
	var t domain.Thread
	var topic string
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, topic, title, created_at FROM threads WHERE id = $1 AND owner_id = $2`,
		threadID, ownerID).Scan(&t.ID, &t.OwnerID, &topic, &t.Title, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Topic = domain.Topic(topic)
	return &t, nil
}

// AppendTurn appends a turn to a thread. The UPDATE on the thread row
// serializes concurrent appends to the same thread.
func (s *PostgresStore) AppendTurn(ctx context.Context, ownerID, threadID string, turn domain.Turn) (*domain.Turn, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	err = tx.QueryRow(ctx,
		`UPDATE threads SET next_seq = next_seq + 1 WHERE id = $1 AND owner_id = $2 RETURNING next_seq - 1`,
		threadID, ownerID).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if turn.LocalID != "" {
		existing, err := scanPgTurn(tx.QueryRow(ctx,
			`SELECT id, thread_id, local_id, seq, role, text, topic, created_at FROM turns WHERE thread_id = $1 AND local_id = $2`,
			threadID, turn.LocalID))
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	} else {
		turn.LocalID = uuid.NewString()
	}

	turn.ID = uuid.NewString()
	turn.ThreadID = threadID
	turn.Seq = seq
	turn.CreatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`INSERT INTO turns (id, thread_id, local_id, seq, role, text, topic, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		turn.ID, turn.ThreadID, turn.LocalID, turn.Seq, string(turn.Role), turn.Text, string(turn.Topic), turn.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert turn: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &turn, nil
}

// ListThreads lists an owner's threads, newest first.
func (s *PostgresStore) ListThreads(ctx context.Context, ownerID string, limit int) ([]domain.Thread, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, topic, title, created_at FROM threads WHERE owner_id = $1 ORDER BY created_at DESC, id LIMIT $2`,
		ownerID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads := []domain.Thread{}
	for rows.Next() {
		var t domain.Thread
		var topic string
		if err := rows.Scan(&t.ID, &t.OwnerID, &topic, &t.Title, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Topic = domain.Topic(topic)
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// ListTurns lists the turns of a thread in conversation order.
func (s *PostgresStore) ListTurns(ctx context.Context, ownerID, threadID string) ([]domain.Turn, error) {
	if _, err := s.GetThread(ctx, ownerID, threadID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, thread_id, local_id, seq, role, text, topic, created_at FROM turns WHERE thread_id = $1 ORDER BY created_at ASC, seq ASC`,
		threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []domain.Turn{}
	for rows.Next() {
		t, err := scanPgTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, *t)
	}
	return turns, rows.Err()
}

// SaveArtifact stores a quiz or study plan.
func (s *PostgresStore) SaveArtifact(ctx context.Context, a domain.Artifact) (*domain.Artifact, error) {
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	var threadID *string
	if a.ThreadID != "" {
		threadID = &a.ThreadID
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO artifacts (id, owner_id, thread_id, kind, topic, title, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.OwnerID, threadID, string(a.Kind), string(a.Topic), a.Title, string(a.Payload), a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListArtifacts lists an owner's artifacts, newest first. An empty kind lists all kinds.
func (s *PostgresStore) ListArtifacts(ctx context.Context, ownerID string, kind domain.ArtifactKind, limit int) ([]domain.Artifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, thread_id, kind, topic, title, payload::text, created_at FROM artifacts
		  WHERE owner_id = $1 AND ($2 = '' OR kind = $2)
		  ORDER BY created_at DESC, id LIMIT $3`,
		ownerID, string(kind), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts := []domain.Artifact{}
	for rows.Next() {
		var a domain.Artifact
		var threadID *string
		var kind, topic, payload string
		if err := rows.Scan(&a.ID, &a.OwnerID, &threadID, &kind, &topic, &a.Title, &payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		if threadID != nil {
			a.ThreadID = *threadID
		}
		a.Kind = domain.ArtifactKind(kind)
		a.Topic = domain.Topic(topic)
		a.Payload = []byte(payload)
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// DeleteArtifact removes an artifact.
func (s *PostgresStore) DeleteArtifact(ctx context.Context, ownerID, artifactID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM artifacts WHERE id = $1 AND owner_id = $2`, artifactID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPgTurn(row pgx.Row) (*domain.Turn, error) {
	var t domain.Turn
	var role, topic string
	if err := row.Scan(&t.ID, &t.ThreadID, &t.LocalID, &t.Seq, &role, &t.Text, &topic, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Role = domain.Role(role)
	t.Topic = domain.Topic(topic)
	return &t, nil
}

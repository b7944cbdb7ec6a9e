package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer. One connection serializes writers in the
	// pool instead of failing them with SQLITE_LOCKED, and keeps in-memory
	// databases from splitting into one database per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			title TEXT NOT NULL,
			next_seq INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_owner ON threads(owner_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			local_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			topic TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (thread_id) REFERENCES threads(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_thread ON turns(thread_id, created_at, seq)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_turns_local ON turns(thread_id, local_id)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			thread_id TEXT,
			kind TEXT NOT NULL,
			topic TEXT NOT NULL,
			title TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_owner ON artifacts(owner_id, kind, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateThread creates a new thread.
func (s *SQLiteStore) CreateThread(ctx context.Context, ownerID string, topic domain.Topic, titleSeed string) (*domain.Thread, error) {
	thread := &domain.Thread{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Topic:     topic,
		Title:     domain.TitleFromText(titleSeed),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, owner_id, topic, title, created_at) VALUES (?, ?, ?, ?, ?)`,
		thread.ID, thread.OwnerID, thread.Topic, thread.Title, thread.CreatedAt)
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// GetThread retrieves a thread by ID.
func (s *SQLiteStore) GetThread(ctx context.Context, ownerID, threadID string) (*domain.Thread, error) {
	var t domain.Thread
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, topic, title, created_at FROM threads WHERE id = ? AND owner_id = ?`,
		threadID, ownerID).Scan(&t.ID, &t.OwnerID, &t.Topic, &t.Title, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// AppendTurn appends a turn to a thread.
func (s *SQLiteStore) AppendTurn(ctx context.Context, ownerID, threadID string, turn domain.Turn) (*domain.Turn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Taking the seq first puts the write lock on the thread before the
	// duplicate check. A duplicate rolls the increment back.
	var seq int64
	err = tx.QueryRowContext(ctx,
		`UPDATE threads SET next_seq = next_seq + 1 WHERE id = ? AND owner_id = ? RETURNING next_seq - 1`,
		threadID, ownerID).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if turn.LocalID != "" {
		existing, err := scanTurn(tx.QueryRowContext(ctx,
			`SELECT id, thread_id, local_id, seq, role, text, topic, created_at FROM turns WHERE thread_id = ? AND local_id = ?`,
			threadID, turn.LocalID))
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	} else {
		turn.LocalID = uuid.NewString()
	}

	turn.ID = uuid.NewString()
	turn.ThreadID = threadID
	turn.Seq = seq
	turn.CreatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (id, thread_id, local_id, seq, role, text, topic, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.ThreadID, turn.LocalID, turn.Seq, turn.Role, turn.Text, turn.Topic, turn.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert turn: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &turn, nil
}

// ListThreads lists an owner's threads, newest first.
func (s *SQLiteStore) ListThreads(ctx context.Context, ownerID string, limit int) ([]domain.Thread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, topic, title, created_at FROM threads WHERE owner_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		ownerID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads := []domain.Thread{}
	for rows.Next() {
		var t domain.Thread
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Topic, &t.Title, &t.CreatedAt); err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// ListTurns lists the turns of a thread in conversation order.
func (s *SQLiteStore) ListTurns(ctx context.Context, ownerID, threadID string) ([]domain.Turn, error) {
	if _, err := s.GetThread(ctx, ownerID, threadID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, local_id, seq, role, text, topic, created_at FROM turns WHERE thread_id = ? ORDER BY created_at ASC, seq ASC`,
		threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []domain.Turn{}
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, *t)
	}
	return turns, rows.Err()
}

// SaveArtifact stores a quiz or study plan.
func (s *SQLiteStore) SaveArtifact(ctx context.Context, a domain.Artifact) (*domain.Artifact, error) {
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	var threadID sql.NullString
	if a.ThreadID != "" {
		threadID = sql.NullString{String: a.ThreadID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, owner_id, thread_id, kind, topic, title, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, threadID, a.Kind, a.Topic, a.Title, string(a.Payload), a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListArtifacts lists an owner's artifacts, newest first. An empty kind lists all kinds.
func (s *SQLiteStore) ListArtifacts(ctx context.Context, ownerID string, kind domain.ArtifactKind, limit int) ([]domain.Artifact, error) {
	query := `SELECT id, owner_id, thread_id, kind, topic, title, payload, created_at FROM artifacts WHERE owner_id = ?`
	args := []interface{}{ownerID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts := []domain.Artifact{}
	for rows.Next() {
		var a domain.Artifact
		var threadID sql.NullString
		var payload string
		if err := rows.Scan(&a.ID, &a.OwnerID, &threadID, &a.Kind, &a.Topic, &a.Title, &payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ThreadID = threadID.String
		a.Payload = []byte(payload)
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// DeleteArtifact removes an artifact.
func (s *SQLiteStore) DeleteArtifact(ctx context.Context, ownerID, artifactID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE id = ? AND owner_id = ?`, artifactID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTurn(row rowScanner) (*domain.Turn, error) {
	var t domain.Turn
	if err := row.Scan(&t.ID, &t.ThreadID, &t.LocalID, &t.Seq, &t.Role, &t.Text, &t.Topic, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

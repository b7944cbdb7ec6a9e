// Package repository persists threads, turns, and saved artifacts, and
// publishes change notifications for them.
package repository

import (
	"context"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

const (
	// DefaultThreadListLimit is used when ListThreads is called with limit <= 0.
	DefaultThreadListLimit = 20
	// MaxThreadListLimit bounds ListThreads.
	MaxThreadListLimit = 100
)

// Store defines the persistence interface. Every operation is scoped to an
// owner; rows of another owner behave as if they did not exist.
type Store interface {
	// CreateThread always creates a new thread titled after titleSeed.
	CreateThread(ctx context.Context, ownerID string, topic domain.Topic, titleSeed string) (*domain.Thread, error)
	GetThread(ctx context.Context, ownerID, threadID string) (*domain.Thread, error)
	// AppendTurn assigns ID, Seq and CreatedAt. Appending a turn whose
	// LocalID is already stored in the thread returns the stored turn.
	AppendTurn(ctx context.Context, ownerID, threadID string, turn domain.Turn) (*domain.Turn, error)
	ListThreads(ctx context.Context, ownerID string, limit int) ([]domain.Thread, error)
	ListTurns(ctx context.Context, ownerID, threadID string) ([]domain.Turn, error)

	SaveArtifact(ctx context.Context, artifact domain.Artifact) (*domain.Artifact, error)
	ListArtifacts(ctx context.Context, ownerID string, kind domain.ArtifactKind, limit int) ([]domain.Artifact, error)
	DeleteArtifact(ctx context.Context, ownerID, artifactID string) error

	Close() error
}

// clampLimit applies the thread listing bounds.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultThreadListLimit
	}
	if limit > MaxThreadListLimit {
		return MaxThreadListLimit
	}
	return limit
}

// Package repotest provides store fixtures for tests of other packages.
package repotest

import (
	"testing"

	"github.com/AsfandAhmad/Study-ChatBot/internal/repository"
)

// NewTestSQLiteStore opens an in-memory SQLite store closed at test cleanup.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

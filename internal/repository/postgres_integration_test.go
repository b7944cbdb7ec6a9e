package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

func mustOpenPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("TUTOR_TEST_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: TUTOR_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, raw, 4)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStoreAppendAndList(t *testing.T) {
	store := mustOpenPostgresStore(t)
	ctx := context.Background()
	owner := "it-" + time.Now().Format("150405.000000000")

	thread, err := store.CreateThread(ctx, owner, domain.TopicDBMS, "What is ACID?")
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}

	turn := domain.Turn{LocalID: "l1", Role: domain.RoleUser, Text: "What is ACID?", Topic: domain.TopicDBMS}
	first, err := store.AppendTurn(ctx, owner, thread.ID, turn)
	if err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	again, err := store.AppendTurn(ctx, owner, thread.ID, turn)
	if err != nil {
		t.Fatalf("AppendTurn retry failed: %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("retry created a new turn")
	}

	turns, err := store.ListTurns(ctx, owner, thread.ID)
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Seq != 1 {
		t.Fatalf("unexpected turns: %+v", turns)
	}

	if _, err := store.GetThread(ctx, "someone-else", thread.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

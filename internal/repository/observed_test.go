package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

func receive(t *testing.T, ch <-chan domain.ChangeEvent) domain.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return domain.ChangeEvent{}
}

func TestObservedPublishesWrites(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	broker := NewMemoryBroker(nil)
	store := NewObserved(newTestStore(t), broker, log)
	defer store.Close()

	events, cancel, err := store.Subscribe(ctx, Filter{OwnerID: "u1"})
	require.NoError(t, err)
	defer cancel()

	thread, err := store.CreateThread(ctx, "u1", domain.TopicNet, "tcp vs udp")
	require.NoError(t, err)
	ev := receive(t, events)
	assert.Equal(t, domain.ChangeThreadCreated, ev.Kind)
	assert.Equal(t, thread.ID, ev.ThreadID)

	turn, err := store.AppendTurn(ctx, "u1", thread.ID, domain.Turn{LocalID: "l1", Role: domain.RoleUser, Text: "tcp vs udp"})
	require.NoError(t, err)
	ev = receive(t, events)
	assert.Equal(t, domain.ChangeTurnAppended, ev.Kind)
	require.NotNil(t, ev.Turn)
	assert.Equal(t, turn.ID, ev.Turn.ID)

	saved, err := store.SaveArtifact(ctx, domain.Artifact{OwnerID: "u1", Kind: domain.ArtifactKindQuiz, Title: "q", Topic: domain.TopicNet, Payload: []byte(`{}`)})
	require.NoError(t, err)
	ev = receive(t, events)
	assert.Equal(t, domain.ChangeArtifactSaved, ev.Kind)
	assert.Equal(t, saved.ID, ev.ArtifactID)

	require.NoError(t, store.DeleteArtifact(ctx, "u1", saved.ID))
	ev = receive(t, events)
	assert.Equal(t, domain.ChangeArtifactDeleted, ev.Kind)
}

func TestObservedFailedWriteDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	store := NewObserved(newTestStore(t), NewMemoryBroker(nil), log)
	defer store.Close()

	events, cancel, err := store.Subscribe(ctx, Filter{OwnerID: "u1"})
	require.NoError(t, err)
	defer cancel()

	_, err = store.AppendTurn(ctx, "u1", "missing", domain.Turn{Role: domain.RoleUser, Text: "x"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBrokerFilters(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker(nil)
	defer b.Close()

	thread, cancelThread, err := b.Subscribe(ctx, Filter{OwnerID: "u1", ThreadID: "t1"})
	require.NoError(t, err)
	defer cancelThread()
	other, cancelOther, err := b.Subscribe(ctx, Filter{OwnerID: "u2"})
	require.NoError(t, err)
	defer cancelOther()

	require.NoError(t, b.Publish(ctx, domain.ChangeEvent{Kind: domain.ChangeTurnAppended, OwnerID: "u1", ThreadID: "t2"}))
	require.NoError(t, b.Publish(ctx, domain.ChangeEvent{Kind: domain.ChangeTurnAppended, OwnerID: "u1", ThreadID: "t1"}))

	ev := receive(t, thread)
	assert.Equal(t, "t1", ev.ThreadID)
	assert.Len(t, other, 0)
}

func TestMemoryBrokerDropsOnSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	dropped := 0
	b := NewMemoryBroker(func() { dropped++ })
	defer b.Close()

	_, cancel, err := b.Subscribe(ctx, Filter{OwnerID: "u1"})
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < subscriberBuffer+3; i++ {
		require.NoError(t, b.Publish(ctx, domain.ChangeEvent{OwnerID: "u1"}))
	}
	assert.Equal(t, 3, dropped)
}

func TestMemoryBrokerCancelOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewMemoryBroker(nil)
	defer b.Close()

	ch, _, err := b.Subscribe(ctx, Filter{OwnerID: "u1"})
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultThreadListLimit, clampLimit(0))
	assert.Equal(t, 5, clampLimit(5))
	assert.Equal(t, MaxThreadListLimit, clampLimit(1000))
}

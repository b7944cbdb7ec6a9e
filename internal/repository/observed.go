package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// Observed wraps a Store and publishes a ChangeEvent after every successful
// write. Publish failures are logged; the write itself has already succeeded.
type Observed struct {
	Store
	broker Broker
	log    logrus.FieldLogger
}

// NewObserved wraps store.
func NewObserved(store Store, broker Broker, log logrus.FieldLogger) *Observed {
	return &Observed{Store: store, broker: broker, log: log}
}

// Subscribe delivers the change events that match f.
func (o *Observed) Subscribe(ctx context.Context, f Filter) (<-chan domain.ChangeEvent, func(), error) {
	return o.broker.Subscribe(ctx, f)
}

// CreateThread implements Store.
func (o *Observed) CreateThread(ctx context.Context, ownerID string, topic domain.Topic, titleSeed string) (*domain.Thread, error) {
	t, err := o.Store.CreateThread(ctx, ownerID, topic, titleSeed)
	if err != nil {
		return nil, err
	}
	o.publish(ctx, domain.ChangeEvent{Kind: domain.ChangeThreadCreated, OwnerID: ownerID, ThreadID: t.ID, Thread: t})
	return t, nil
}

// AppendTurn implements Store.
func (o *Observed) AppendTurn(ctx context.Context, ownerID, threadID string, turn domain.Turn) (*domain.Turn, error) {
	t, err := o.Store.AppendTurn(ctx, ownerID, threadID, turn)
	if err != nil {
		return nil, err
	}
	o.publish(ctx, domain.ChangeEvent{Kind: domain.ChangeTurnAppended, OwnerID: ownerID, ThreadID: threadID, Turn: t})
	return t, nil
}

// SaveArtifact implements Store.
func (o *Observed) SaveArtifact(ctx context.Context, a domain.Artifact) (*domain.Artifact, error) {
	saved, err := o.Store.SaveArtifact(ctx, a)
	if err != nil {
		return nil, err
	}
	o.publish(ctx, domain.ChangeEvent{Kind: domain.ChangeArtifactSaved, OwnerID: saved.OwnerID, ThreadID: saved.ThreadID, ArtifactID: saved.ID})
	return saved, nil
}

// DeleteArtifact implements Store.
func (o *Observed) DeleteArtifact(ctx context.Context, ownerID, artifactID string) error {
	if err := o.Store.DeleteArtifact(ctx, ownerID, artifactID); err != nil {
		return err
	}
	o.publish(ctx, domain.ChangeEvent{Kind: domain.ChangeArtifactDeleted, OwnerID: ownerID, ArtifactID: artifactID})
	return nil
}

// Close closes the broker and the wrapped store.
func (o *Observed) Close() error {
	if err := o.broker.Close(); err != nil {
		o.log.WithError(err).Warn("close broker")
	}
	return o.Store.Close()
}

func (o *Observed) publish(ctx context.Context, ev domain.ChangeEvent) {
	ev.Ts = time.Now().UTC()
	if err := o.broker.Publish(ctx, ev); err != nil {
		o.log.WithError(err).WithFields(logrus.Fields{
			"owner":  ev.OwnerID,
			"thread": ev.ThreadID,
			"op":     string(ev.Kind),
		}).Warn("publish change event")
	}
}

package artifact

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/policy"
)

// Store is the persistence the author needs.
type Store interface {
	GetThread(ctx context.Context, ownerID, threadID string) (*domain.Thread, error)
	SaveArtifact(ctx context.Context, artifact domain.Artifact) (*domain.Artifact, error)
	ListArtifacts(ctx context.Context, ownerID string, kind domain.ArtifactKind, limit int) ([]domain.Artifact, error)
	DeleteArtifact(ctx context.Context, ownerID, artifactID string) error
}

// Author saves, lists, and deletes a student's artifacts. Saves are checked
// against the artifact policy before anything is written.
type Author struct {
	store  Store
	policy *policy.Engine
}

// NewAuthor creates an author.
func NewAuthor(store Store, engine *policy.Engine) *Author {
	return &Author{store: store, policy: engine}
}

// Save validates and stores an artifact. A policy violation returns
// *domain.ValidationError; a ThreadID the owner does not have returns
// domain.ErrNotFound.
func (a *Author) Save(ctx context.Context, ownerID string, req domain.SaveArtifactRequest) (*domain.Artifact, error) {
	var payload interface{}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return nil, &domain.ValidationError{Reasons: []string{"payload is not valid JSON"}}
		}
	}
	if _, ok := payload.(map[string]interface{}); !ok {
		return nil, &domain.ValidationError{Reasons: []string{"payload must be a JSON object"}}
	}

	reasons, err := a.policy.Deny(ctx, map[string]interface{}{
		"kind":    string(req.Kind),
		"topic":   string(req.Topic),
		"title":   req.Title,
		"payload": payload,
	})
	if err != nil {
		return nil, err
	}
	if len(reasons) > 0 {
		return nil, &domain.ValidationError{Reasons: reasons}
	}

	if req.ThreadID != "" {
		if _, err := a.store.GetThread(ctx, ownerID, req.ThreadID); err != nil {
			return nil, err
		}
	}

	return a.store.SaveArtifact(ctx, domain.Artifact{
		OwnerID:  ownerID,
		ThreadID: req.ThreadID,
		Kind:     req.Kind,
		Topic:    domain.ParseTopic(string(req.Topic)),
		Title:    strings.TrimSpace(req.Title),
		Payload:  req.Payload,
	})
}

// List returns the owner's artifacts of kind, or of every kind when kind is empty.
func (a *Author) List(ctx context.Context, ownerID string, kind domain.ArtifactKind, limit int) ([]domain.Artifact, error) {
	return a.store.ListArtifacts(ctx, ownerID, kind, limit)
}

// Delete removes one artifact.
func (a *Author) Delete(ctx context.Context, ownerID, artifactID string) error {
	return a.store.DeleteArtifact(ctx, ownerID, artifactID)
}

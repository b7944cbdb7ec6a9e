package service

import (
	"context"

	"github.com/AsfandAhmad/Study-ChatBot/internal/artifact"
	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// GenerateQuiz builds a quiz from the recent turns of a client session, or
// of a stored thread when only ThreadID is given. Generation failures are
// answered with the fallback quiz; only an unknown thread is an error.
func (s *Service) GenerateQuiz(ctx context.Context, ownerID string, req domain.QuizRequest) (domain.Quiz, error) {
	var recent []domain.Turn
	topic := req.Topic

	if mgr, ok := s.lookup(ownerID, req.SessionID); ok && req.SessionID != "" && (req.ThreadID == "" || req.ThreadID == mgr.ThreadID()) {
		recent = mgr.Snapshot(artifact.QuizHistoryLimit)
		if topic == "" {
			topic = mgr.Topic()
		}
	} else if req.ThreadID != "" {
		thread, err := s.store.GetThread(ctx, ownerID, req.ThreadID)
		if err != nil {
			return domain.Quiz{}, err
		}
		turns, err := s.store.ListTurns(ctx, ownerID, req.ThreadID)
		if err != nil {
			return domain.Quiz{}, err
		}
		recent = turns
		if topic == "" {
			topic = thread.Topic
		}
	}

	return s.generator.Quiz(ctx, ownerID, domain.ParseTopic(string(topic)), recent), nil
}

// GenerateStudyPlan builds a seven day plan for a topic.
func (s *Service) GenerateStudyPlan(ctx context.Context, ownerID string, req domain.StudyPlanRequest) domain.StudyPlan {
	return s.generator.StudyPlan(ctx, ownerID, domain.ParseTopic(string(req.Topic)))
}

// SaveArtifact validates and stores a quiz or study plan.
func (s *Service) SaveArtifact(ctx context.Context, ownerID string, req domain.SaveArtifactRequest) (*domain.Artifact, error) {
	return s.author.Save(ctx, ownerID, req)
}

// ListArtifacts lists an owner's saved artifacts.
func (s *Service) ListArtifacts(ctx context.Context, ownerID string, kind domain.ArtifactKind, limit int) (*domain.ListArtifactsResponse, error) {
	artifacts, err := s.author.List(ctx, ownerID, kind, limit)
	if err != nil {
		return nil, err
	}
	return &domain.ListArtifactsResponse{Artifacts: artifacts}, nil
}

// DeleteArtifact removes a saved artifact.
func (s *Service) DeleteArtifact(ctx context.Context, ownerID, artifactID string) error {
	return s.author.Delete(ctx, ownerID, artifactID)
}

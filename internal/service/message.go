package service

import (
	"context"
	"strings"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/session"
)

// SendMessage sends a message in a client session. A set ThreadID that
// differs from the session's thread opens that thread first; a nil ThreadID
// on a bound session starts a new conversation. History only seeds the
// prompt of a session that has no conversation yet.
//
// On a *domain.PersistenceError the response is still returned, carrying the
// pending turns.
func (s *Service) SendMessage(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error) {
	var reasons []string
	if strings.TrimSpace(req.OwnerID) == "" {
		reasons = append(reasons, "owner_id is required")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		reasons = append(reasons, "session_id is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		reasons = append(reasons, "text is required")
	}
	if len(reasons) > 0 {
		return nil, &domain.ValidationError{Reasons: reasons}
	}

	mgr := s.session(req.OwnerID, req.SessionID)

	switch {
	case req.ThreadID != nil && *req.ThreadID != "" && *req.ThreadID != mgr.ThreadID():
		if res, err := mgr.Open(ctx, *req.ThreadID); err != nil {
			return toResponse(res), err
		}
	case (req.ThreadID == nil || *req.ThreadID == "") && mgr.State() == session.StateBound:
		if res, err := mgr.NewConversation(ctx); err != nil {
			return toResponse(res), err
		}
	}

	if len(req.History) > 0 {
		mgr.SetPrelude(req.History)
	}

	var hint domain.Topic
	if req.Topic != "" {
		hint = domain.ParseTopic(string(req.Topic))
	}
	res, err := mgr.Send(ctx, req.Text, hint)
	return toResponse(res), err
}

// NewConversation resets a client session after flushing it.
func (s *Service) NewConversation(ctx context.Context, ownerID, sessionID string) (*domain.SendMessageResponse, error) {
	mgr, ok := s.lookup(ownerID, sessionID)
	if !ok {
		return &domain.SendMessageResponse{Turns: []domain.ViewTurn{}}, nil
	}
	res, err := mgr.NewConversation(ctx)
	return toResponse(res), err
}

// FlushSession retries the writes of a session's pending turns.
func (s *Service) FlushSession(ctx context.Context, ownerID, sessionID string) (*domain.SendMessageResponse, error) {
	mgr, ok := s.lookup(ownerID, sessionID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	res, err := mgr.Flush(ctx)
	return toResponse(res), err
}

// ListThreads lists an owner's threads, newest first.
func (s *Service) ListThreads(ctx context.Context, ownerID string, limit int) (*domain.ListThreadsResponse, error) {
	if limit <= 0 {
		limit = s.opts.ThreadListLimit
	}
	threads, err := s.store.ListThreads(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}
	return &domain.ListThreadsResponse{Threads: threads}, nil
}

// ListTurns lists the turns of one of the owner's threads.
func (s *Service) ListTurns(ctx context.Context, ownerID, threadID string) (*domain.ListTurnsResponse, error) {
	turns, err := s.store.ListTurns(ctx, ownerID, threadID)
	if err != nil {
		return nil, err
	}
	return &domain.ListTurnsResponse{ThreadID: threadID, Turns: turns}, nil
}

func toResponse(res session.Result) *domain.SendMessageResponse {
	turns := []domain.ViewTurn(res.View)
	if turns == nil {
		turns = []domain.ViewTurn{}
	}
	return &domain.SendMessageResponse{ThreadID: res.ThreadID, Turns: turns}
}

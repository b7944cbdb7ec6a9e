package service

import (
	"context"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/repository"
)

// Subscribe streams an owner's change events, optionally narrowed to one
// thread. When sessionID names a live session bound to that thread, the
// session's view follows the same events until ctx ends.
func (s *Service) Subscribe(ctx context.Context, ownerID, threadID, sessionID string) (<-chan domain.ChangeEvent, func(), error) {
	events, cancel, err := s.store.Subscribe(ctx, repository.Filter{OwnerID: ownerID, ThreadID: threadID})
	if err != nil {
		return nil, nil, err
	}

	if mgr, ok := s.lookup(ownerID, sessionID); ok && threadID != "" && mgr.ThreadID() == threadID {
		watchCtx, stopWatch := context.WithCancel(ctx)
		follow, cancelFollow, err := s.store.Subscribe(watchCtx, repository.Filter{OwnerID: ownerID, ThreadID: threadID})
		if err != nil {
			stopWatch()
			cancel()
			return nil, nil, err
		}
		go mgr.Watch(watchCtx, follow)
		inner := cancel
		cancel = func() {
			stopWatch()
			cancelFollow()
			inner()
		}
	}
	return events, cancel, nil
}

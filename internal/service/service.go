package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AsfandAhmad/Study-ChatBot/internal/artifact"
	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
	"github.com/AsfandAhmad/Study-ChatBot/internal/gateway"
	"github.com/AsfandAhmad/Study-ChatBot/internal/metrics"
	"github.com/AsfandAhmad/Study-ChatBot/internal/repository"
	"github.com/AsfandAhmad/Study-ChatBot/internal/session"
)

// Store is a repository.Store that also delivers change notifications.
type Store interface {
	repository.Store
	Subscribe(ctx context.Context, f repository.Filter) (<-chan domain.ChangeEvent, func(), error)
}

// Options tunes the service.
type Options struct {
	ThreadListLimit    int
	SessionIdleTimeout time.Duration
}

type sessionKey struct {
	owner   string
	session string
}

// Service is the boundary used by the HTTP API and the terminal client.
type Service struct {
	store     Store
	gateway   *gateway.Gateway
	generator *artifact.Generator
	author    *artifact.Author
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	opts      Options

	mu       sync.Mutex
	sessions map[sessionKey]*session.Manager
}

// New creates a service.
func New(store Store, gw *gateway.Gateway, generator *artifact.Generator, author *artifact.Author, m *metrics.Metrics, log logrus.FieldLogger, opts Options) *Service {
	if opts.ThreadListLimit <= 0 {
		opts.ThreadListLimit = repository.DefaultThreadListLimit
	}
	if opts.SessionIdleTimeout <= 0 {
		opts.SessionIdleTimeout = 30 * time.Minute
	}
	return &Service{
		store:     store,
		gateway:   gw,
		generator: generator,
		author:    author,
		metrics:   m,
		log:       log,
		opts:      opts,
		sessions:  make(map[sessionKey]*session.Manager),
	}
}

// session returns the manager for (owner, sessionID), creating it if needed.
// The manager is touched under s.mu so the sweeper cannot evict it before
// the caller uses it.
func (s *Service) session(ownerID, sessionID string) *session.Manager {
	key := sessionKey{owner: ownerID, session: sessionID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mgr, ok := s.sessions[key]; ok {
		mgr.Touch()
		return mgr
	}
	mgr := session.NewManager(ownerID, s.store, s.gateway, s.metrics, s.log.WithField("session", sessionID))
	s.sessions[key] = mgr
	s.metrics.SetActiveSessions(len(s.sessions))
	return mgr
}

// lookup returns an existing manager for a client call, touching it like
// session does.
func (s *Service) lookup(ownerID, sessionID string) (*session.Manager, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mgr, ok := s.sessions[sessionKey{owner: ownerID, session: sessionID}]
	if ok {
		mgr.Touch()
	}
	return mgr, ok
}

// SessionCount returns the number of session managers held in memory.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close flushes and stops every session manager.
func (s *Service) Close(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[sessionKey]*session.Manager)
	s.metrics.SetActiveSessions(0)
	s.mu.Unlock()

	for key, mgr := range sessions {
		if _, err := mgr.Flush(ctx); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"owner":   key.owner,
				"session": key.session,
				"op":      "flush",
			}).Warn("pending turns lost at shutdown")
		}
		_ = mgr.Close()
	}
}

// Topics lists the supported course topics.
func (s *Service) Topics() []domain.TopicInfo {
	return domain.Topics()
}

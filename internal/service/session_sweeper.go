package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RunSessionSweeper evicts session managers idle for longer than the
// configured timeout until ctx is done. Sessions with turns that still
// fail to flush are kept.
func (s *Service) RunSessionSweeper(ctx context.Context) {
	interval := s.opts.SessionIdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepIdleSessions(ctx, time.Now())
		}
	}
}

func (s *Service) sweepIdleSessions(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	var idle []sessionKey
	for key, mgr := range s.sessions {
		if now.Sub(mgr.LastActive()) >= s.opts.SessionIdleTimeout {
			idle = append(idle, key)
		}
	}
	s.mu.Unlock()

	evicted := 0
	for _, key := range idle {
		s.mu.Lock()
		mgr, ok := s.sessions[key]
		s.mu.Unlock()
		if !ok {
			continue
		}
		sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := mgr.Flush(sweepCtx)
		cancel()
		if err != nil || mgr.Busy() {
			s.log.WithError(err).WithFields(logrus.Fields{
				"owner":   key.owner,
				"session": key.session,
				"thread":  mgr.ThreadID(),
				"op":      "sweep",
			}).Warn("keeping idle session with pending turns")
			continue
		}

		s.mu.Lock()
		// Skip sessions that were used while being flushed.
		if current, ok := s.sessions[key]; !ok || current != mgr || now.Sub(mgr.LastActive()) < s.opts.SessionIdleTimeout {
			s.mu.Unlock()
			continue
		}
		delete(s.sessions, key)
		s.metrics.SetActiveSessions(len(s.sessions))
		s.mu.Unlock()

		_ = mgr.Close()
		evicted++
	}
	return evicted
}

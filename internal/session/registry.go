// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session tracks chat sessions and the document index each one
// owns. Sessions expire after a period of inactivity and a background
// sweep reclaims them, closing their index.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/internal/index"
	"github.com/pdiddy/paper-brain/pkg/types"
)

const (
	// DefaultTTL is how long a session survives without activity.
	DefaultTTL = 30 * time.Minute

	// DefaultSweepInterval is how often expired sessions are reclaimed.
	DefaultSweepInterval = 5 * time.Minute
)

// ErrNotFound reports an unknown or expired session id.
var ErrNotFound = errors.New("session not found")

// ErrMessageLimit reports that a session has used up its message quota.
var ErrMessageLimit = errors.New("session message limit reached")

// Session is one chat session. The index is built once when papers are
// loaded and is read-only afterward, so concurrent questions against
// the same session are safe.
type Session struct {
	ID     string
	Index  *index.Index
	Papers []types.Paper

	mu         sync.Mutex
	lastActive time.Time
	messages   int
}

// Touch records activity and counts one message against the session's
// quota. maxMessages <= 0 means unlimited.
func (s *Session) Touch(now time.Time, maxMessages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxMessages > 0 && s.messages >= maxMessages {
		return ErrMessageLimit
	}
	s.messages++
	s.lastActive = now
	return nil
}

// Messages returns how many messages the session has used.
func (s *Session) Messages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive) > ttl
}

// Registry owns all live sessions.
type Registry struct {
	cfg    types.SessionConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	// now is replaceable for expiry tests.
	now func() time.Time
}

func NewRegistry(cfg types.SessionConfig, logger *zap.Logger) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create opens a new session with an empty index.
func (r *Registry) Create() (*Session, error) {
	ix, err := index.New()
	if err != nil {
		return nil, fmt.Errorf("create session index: %w", err)
	}
	s := &Session{
		ID:         uuid.NewString(),
		Index:      ix,
		lastActive: r.now(),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.logger.Info("session created", zap.String("session_id", s.ID))
	return s, nil
}

// Get returns the session and records a message against its quota.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.Touch(r.now(), r.cfg.MaxMessages); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes a session and closes its index.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Index.Close()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep reclaims every session idle past the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.expired(now, r.cfg.TTL) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		if err := s.Index.Close(); err != nil {
			r.logger.Warn("closing expired session index", zap.String("session_id", s.ID), zap.Error(err))
		}
		r.logger.Info("session expired", zap.String("session_id", s.ID))
	}
	return len(expired)
}

// Run sweeps on the configured interval until the context is canceled,
// then closes every remaining session.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		if err := s.Index.Close(); err != nil {
			r.logger.Warn("closing session index", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
}

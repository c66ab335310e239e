// Package session maps browser sessions to their conversations. Sessions
// live only in memory and are dropped after an idle period.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/docchat/internal/conversation"
	"github.com/MikeSquared-Agency/docchat/internal/dispatch"
	"github.com/MikeSquared-Agency/docchat/internal/hermes"
)

type Session struct {
	ID         string
	Controller *dispatch.Controller

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Registry struct {
	greeting string
	asker    dispatch.Asker
	uploader dispatch.Uploader
	events   hermes.Publisher
	idleTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds a registry. events may be nil.
func NewRegistry(greeting string, asker dispatch.Asker, uploader dispatch.Uploader, events hermes.Publisher, idleTTL time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		greeting: greeting,
		asker:    asker,
		uploader: uploader,
		events:   events,
		idleTTL:  idleTTL,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a freshly greeted conversation.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	store := conversation.NewStore(r.greeting, hermes.MessageObserver(r.events, id, r.logger))
	sess := &Session{
		ID:         id,
		Controller: dispatch.New(store, r.asker, r.uploader, r.logger.With("session_id", id)),
		lastSeen:   r.now(),
	}

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	r.logger.Debug("session created", "session_id", id)
	return sess
}

// Get returns a live session and refreshes its idle timer. The touch
// happens under the registry lock so a concurrent Sweep cannot drop a
// session that Get is about to return.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	sess.touch(r.now())
	return sess, true
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
func (r *Registry) GetOrCreate(id string) (sess *Session, created bool) {
	if id != "" {
		if sess, ok := r.Get(id); ok {
			return sess, false
		}
	}
	return r.Create(), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL. Sessions with a
// dispatch in flight are kept. It returns the number removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if now.Sub(sess.idleSince()) <= r.idleTTL {
			continue
		}
		if sess.Controller.Store().Pending() {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		r.logger.Info("expired idle sessions", "removed", removed, "remaining", len(r.sessions))
	}
	return removed
}

// Run sweeps periodically until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	if r.idleTTL <= 0 {
		return
	}
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			r.Sweep(t)
		}
	}
}

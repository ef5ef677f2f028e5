package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepforge/quizgate/internal/logger"
	"github.com/prepforge/quizgate/internal/quiz"
)

// ErrNotFound means no session exists for the given id, or the caller
// does not own it. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("registry: session not found")

// entry tracks one owned session plus when it entered a terminal state, so
// the janitor knows when it may be evicted.
type entry struct {
	session    *quiz.Session
	terminalAt time.Time
}

// Registry holds all live quiz sessions in memory and enforces the
// one-active-session-per-learner-per-flavor rule. Finished and failed
// sessions stay addressable for the retention window so the client can
// still read the final state, then the janitor evicts them.
type Registry struct {
	retention time.Duration
	log       zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

func New(retention time.Duration, log zerolog.Logger) *Registry {
	return &Registry{
		retention: retention,
		log:       logger.Component(log, "registry"),
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*entry),
	}
}

// Put registers a freshly started session. A learner holds at most one
// live session per flavor: any existing non-terminal one is abandoned,
// matching the original client where starting a quiz replaced the previous
// run.
func (r *Registry) Put(session *quiz.Session) {
	r.mu.Lock()
	var abandoned []*entry
	for id, e := range r.sessions {
		if e.session.Owner != session.Owner || e.session.Flow.Flavor != session.Flow.Flavor {
			continue
		}
		if !isTerminal(e.session.State()) {
			delete(r.sessions, id)
			abandoned = append(abandoned, e)
		}
	}
	r.sessions[session.ID] = &entry{session: session}
	r.mu.Unlock()

	for _, e := range abandoned {
		e.session.Close()
		r.log.Info().
			Str("session_id", e.session.ID.String()).
			Str("owner", session.Owner).
			Msg("active session abandoned by new start")
	}
	r.log.Info().
		Str("session_id", session.ID.String()).
		Str("owner", session.Owner).
		Str("flavor", string(session.Flow.Flavor)).
		Msg("session registered")
}

// Get returns the session when it exists and belongs to owner.
func (r *Registry) Get(id uuid.UUID, owner string) (*quiz.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok || e.session.Owner != owner {
		return nil, ErrNotFound
	}
	return e.session, nil
}

// Remove closes and drops a session. Used for explicit abandonment.
func (r *Registry) Remove(id uuid.UUID, owner string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok || e.session.Owner != owner {
		r.mu.Unlock()
		return ErrNotFound
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	e.session.Close()
	r.log.Info().Str("session_id", id.String()).Msg("session removed")
	return nil
}

// Len reports how many sessions are currently held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunJanitor sweeps terminal sessions until ctx is cancelled. Each sweep
// stamps newly terminal sessions and evicts ones past the retention window.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := r.sweep(); evicted > 0 {
				r.log.Info().Int("evicted", evicted).Msg("janitor swept sessions")
			}
		}
	}
}

func (r *Registry) sweep() int {
	now := r.now()

	r.mu.Lock()
	var expired []*entry
	for id, e := range r.sessions {
		if !isTerminal(e.session.State()) {
			continue
		}
		if e.terminalAt.IsZero() {
			e.terminalAt = now
			continue
		}
		if now.Sub(e.terminalAt) >= r.retention {
			delete(r.sessions, id)
			expired = append(expired, e)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		e.session.Close()
	}
	return len(expired)
}

// CloseAll shuts down every session. Called on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.sessions = make(map[uuid.UUID]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.session.Close()
	}
}

func isTerminal(state quiz.State) bool {
	return state == quiz.StateScored || state == quiz.StateError
}

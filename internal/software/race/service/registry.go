package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"racegap/internal/domain/race"
)

// Registry owns every live race session for the process. Each session has its
// own lock so updates for one race never wait on another.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*SessionHandle
	clock    func() time.Time
}

// SessionHandle serializes access to one session.
type SessionHandle struct {
	mu      sync.Mutex
	session *race.Session
}

// NewRegistry constructs an empty registry. A nil clock defaults to time.Now.
func NewRegistry(clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		sessions: make(map[string]*SessionHandle),
		clock:    clock,
	}
}

// GetOrCreate returns the session for raceID, creating it on first access.
func (r *Registry) GetOrCreate(raceID string) (*SessionHandle, error) {
	raceID = strings.TrimSpace(raceID)
	if h, ok := r.Get(raceID); ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.sessions[raceID]; ok {
		return h, nil
	}
	s, err := race.NewSession(raceID, r.clock)
	if err != nil {
		return nil, err
	}
	h := &SessionHandle{session: s}
	r.sessions[raceID] = h
	return h, nil
}

// Get returns an existing session.
func (r *Registry) Get(raceID string) (*SessionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sessions[strings.TrimSpace(raceID)]
	return h, ok
}

// Remove takes a competitor out of a race. When it was present, onRemoved runs
// with the session still locked. Unknown races and competitors are no-ops.
func (r *Registry) Remove(raceID, competitorID string, onRemoved func(s *race.Session)) bool {
	h, ok := r.Get(raceID)
	if !ok {
		return false
	}
	var removed bool
	_ = h.Do(func(s *race.Session) error {
		if removed = s.Leave(competitorID); removed && onRemoved != nil {
			onRemoved(s)
		}
		return nil
	})
	return removed
}

// RaceIDs lists the known races in lexical order.
func (r *Registry) RaceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Do runs fn with exclusive access to the session.
func (h *SessionHandle) Do(fn func(s *race.Session) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.session)
}

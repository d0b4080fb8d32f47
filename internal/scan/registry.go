package scan

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("scan session not found")

type session struct {
	mu      sync.Mutex
	pairer  *Pairer
	deleted atomic.Bool
}

// Registry keeps one Pairer per scanning session. Idle sessions expire after the
// configured TTL; every access refreshes it.
type Registry struct {
	sessions *cache.Cache
	ttl      time.Duration
	opts     []Option
}

// NewRegistry creates a registry whose sessions expire after idleTTL without use.
// opts are applied to every new Pairer.
func NewRegistry(idleTTL time.Duration, opts ...Option) *Registry {
	cleanup := idleTTL / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &Registry{
		sessions: cache.New(idleTTL, cleanup),
		ttl:      idleTTL,
		opts:     opts,
	}
}

// Create starts a new session and returns its id.
func (r *Registry) Create() string {
	id := uuid.NewString()
	r.sessions.Set(id, &session{pairer: NewPairer(r.opts...)}, r.ttl)
	return id
}

// Do runs fn with the session's Pairer while holding the session lock.
func (r *Registry) Do(id string, fn func(*Pairer) error) error {
	v, ok := r.sessions.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	s := v.(*session)
	// Replace fails once the session is deleted or expired, so a refresh
	// never brings it back.
	if err := r.sessions.Replace(id, s, r.ttl); err != nil {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted.Load() {
		return ErrSessionNotFound
	}
	return fn(s.pairer)
}

// Delete ends a session. Calls still waiting on it fail with
// ErrSessionNotFound. Deleting an unknown id is not an error.
func (r *Registry) Delete(id string) {
	if v, ok := r.sessions.Get(id); ok {
		v.(*session).deleted.Store(true)
	}
	r.sessions.Delete(id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// Get returns the pending state of a session.
func (r *Registry) Get(id string) (State, error) {
	var st State
	err := r.Do(id, func(p *Pairer) error {
		st = p.State()
		return nil
	})
	return st, err
}

// Package alarmstore is the shared per-object expiry primitive behind
// both the Token Object (internal/authtoken) and the OpenIdSession
// Object (internal/openidsession). It generalizes session/repo.go's
// SessionKeyRepo push-with-TTL shape into an
// explicit per-object actor: one goroutine per live object waits on
// its own alarm deadline and erases the object's state when it fires,
// mirroring a Durable Object's self-destructing alarm.
package alarmstore

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store is a keyed collection of isolated, alarm-backed state holders.
type Store struct {
	clock clockwork.Clock

	mu      sync.Mutex
	objects map[string]*object
}

type object struct {
	mu        sync.Mutex
	state     interface{}
	destroyed bool
	cancel    chan struct{}
}

// New returns a Store driven by clock. A nil clock uses the real wall
// clock; tests should pass a clockwork.FakeClock for deterministic
// alarm firing.
func New(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{clock: clock, objects: make(map[string]*object)}
}

// Create installs state for id and arms its alarm for ttl from now.
// It reports false if an object already exists for id, matching the
// Create action's precondition that the object be empty.
func (s *Store) Create(id string, ttl time.Duration, state interface{}) bool {
	s.mu.Lock()
	if _, exists := s.objects[id]; exists {
		s.mu.Unlock()
		return false
	}
	obj := &object{state: state}
	s.objects[id] = obj
	s.mu.Unlock()

	s.arm(id, obj, ttl)
	return true
}

// With runs fn against the live state for id under that object's own
// lock, serializing every action against one object.
// It reports false if the object does not exist (never created,
// already destroyed, or already expired).
func (s *Store) With(id string, fn func(state interface{}) (interface{}, bool)) bool {
	s.mu.Lock()
	obj, exists := s.objects[id]
	s.mu.Unlock()
	if !exists {
		return false
	}

	obj.mu.Lock()
	if obj.destroyed {
		obj.mu.Unlock()
		return false
	}
	newState, ok := fn(obj.state)
	if ok {
		obj.state = newState
	}
	obj.mu.Unlock()
	return ok
}

// Extend re-arms id's alarm for ttl from now, matching the
// ExtendExpiresMs action. It is a no-op (returning false) if the
// object has already been destroyed.
func (s *Store) Extend(id string, ttl time.Duration) bool {
	s.mu.Lock()
	obj, exists := s.objects[id]
	s.mu.Unlock()
	if !exists {
		return false
	}

	obj.mu.Lock()
	if obj.destroyed {
		obj.mu.Unlock()
		return false
	}
	if obj.cancel != nil {
		close(obj.cancel)
	}
	obj.mu.Unlock()

	s.arm(id, obj, ttl)
	return true
}

// Destroy clears the alarm and erases id's state immediately, matching
// the Destroy action and the terminal step of Delete-after validation.
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	obj, exists := s.objects[id]
	if exists {
		delete(s.objects, id)
	}
	s.mu.Unlock()
	if !exists {
		return
	}

	obj.mu.Lock()
	if obj.cancel != nil {
		close(obj.cancel)
	}
	obj.destroyed = true
	obj.state = nil
	obj.mu.Unlock()
}

// arm starts (or restarts) the goroutine that waits for ttl to elapse
// on the store's clock and then destroys the object — the alarm.
func (s *Store) arm(id string, obj *object, ttl time.Duration) {
	cancel := make(chan struct{})

	obj.mu.Lock()
	obj.cancel = cancel
	obj.mu.Unlock()

	go func() {
		select {
		case <-s.clock.After(ttl):
			s.Destroy(id)
		case <-cancel:
			// re-armed or destroyed out from under this goroutine
		}
	}()
}

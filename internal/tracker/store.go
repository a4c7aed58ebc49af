package tracker

import (
	"sync"
	"time"

	"floatwatch/internal/csfloat"
	"floatwatch/internal/transport"
)

type TrackingConfig struct {
	Name        string
	Params      csfloat.QueryParams
	Destination transport.ChatTarget
	CreatedAt   time.Time
}

func (c TrackingConfig) clone() TrackingConfig {
	c.Params = c.Params.Clone()
	return c
}

// Store holds tracking configurations in insertion order, plus the default
// notification destination. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]TrackingConfig
	dest   transport.ChatTarget
	now    func() time.Time
}

// NewStore returns an empty store whose destination is def until the first
// Add.
func NewStore(def transport.ChatTarget) *Store {
	return &Store{byName: map[string]TrackingConfig{}, dest: def, now: time.Now}
}

// Add inserts or overwrites name. An overwrite keeps its list position.
// When the store was empty, dest also becomes the default destination.
// It reports whether name was new.
func (s *Store) Add(name string, params csfloat.QueryParams, dest transport.ChatTarget) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(TrackingConfig{Name: name, Params: params.Clone(), Destination: dest, CreatedAt: s.now()})
}

func (s *Store) putLocked(c TrackingConfig) bool {
	if len(s.order) == 0 && c.Destination.Resolvable() {
		s.dest = c.Destination
	}
	_, exists := s.byName[c.Name]
	if !exists {
		s.order = append(s.order, c.Name)
	}
	s.byName[c.Name] = c
	return !exists
}

// restore inserts a previously stored configuration as-is.
func (s *Store) restore(c TrackingConfig) {
	s.mu.Lock()
	s.putLocked(c.clone())
	s.mu.Unlock()
}

func (s *Store) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[name]; !ok {
		return false
	}
	delete(s.byName, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Get(name string) (TrackingConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byName[name]
	if !ok {
		return TrackingConfig{}, false
	}
	return c.clone(), true
}

// List returns copies in insertion order.
func (s *Store) List() []TrackingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TrackingConfig, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n].clone())
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Destination is where notifications for every configuration go.
func (s *Store) Destination() transport.ChatTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dest
}

// SetDefaultDestination replaces the destination only while the store is
// empty; once a configuration exists its channel wins.
func (s *Store) SetDefaultDestination(t transport.ChatTarget) {
	s.mu.Lock()
	if len(s.order) == 0 {
		s.dest = t
	}
	s.mu.Unlock()
}

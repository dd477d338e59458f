// Package store keeps the authoritative in-memory player records.
//
// Mutations are serialized per player id and applied copy-on-write: a mutator
// works on a private clone that replaces the published record only when the
// mutator succeeds. Readers always get a consistent snapshot.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/progression-hub/internal/domain"
)

// ChangeKind tells observers what happened to a record
type ChangeKind int

const (
	ChangeUpsert ChangeKind = iota
	ChangeDelete
)

// Change describes a committed mutation
type Change struct {
	Kind     ChangeKind
	PlayerID string
	Created  bool
	// Player is a private snapshot of the committed record. Nil for deletes.
	Player *domain.Player
}

// Observer is called after every committed change, outside of any store lock
type Observer func(Change)

// Mutator modifies a player clone. Returning an error discards the clone.
type Mutator func(p *domain.Player, created bool) error

// Store is the in-memory player aggregate store
type Store struct {
	mu      sync.RWMutex
	players map[string]*domain.Player

	locks keyedMutex

	obsMu     sync.RWMutex
	observers []Observer

	now func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for default timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		players: make(map[string]*domain.Player),
		locks:   keyedMutex{entries: make(map[string]*keyedEntry)},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers an observer for committed changes
func (s *Store) Subscribe(o Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

// Get returns a snapshot of the player
func (s *Store) Get(id string) (*domain.Player, bool) {
	s.mu.RLock()
	p, ok := s.players[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Exists reports whether a record is stored under id
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	_, ok := s.players[id]
	s.mu.RUnlock()
	return ok
}

// Upsert applies mutate to the player, creating it with defaults first when absent.
// It returns a snapshot of the committed record.
func (s *Store) Upsert(id string, mutate Mutator) (*domain.Player, error) {
	return s.apply(id, true, mutate)
}

// Update applies mutate to an existing player. It fails with ErrPlayerNotFound when absent.
func (s *Store) Update(id string, mutate Mutator) (*domain.Player, error) {
	return s.apply(id, false, mutate)
}

func (s *Store) apply(id string, create bool, mutate Mutator) (*domain.Player, error) {
	if id == "" {
		return nil, domain.InvalidInput("player id is required")
	}

	unlock := s.locks.lock(id)

	s.mu.RLock()
	current, exists := s.players[id]
	s.mu.RUnlock()

	var working *domain.Player
	switch {
	case exists:
		working = current.Clone()
	case create:
		working = domain.NewPlayer(id, "", s.now())
	default:
		unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrPlayerNotFound, id)
	}

	if err := mutate(working, !exists); err != nil {
		unlock()
		return nil, err
	}

	s.mu.Lock()
	s.players[id] = working
	s.mu.Unlock()
	unlock()

	snapshot := working.Clone()
	s.notify(Change{Kind: ChangeUpsert, PlayerID: id, Created: !exists, Player: snapshot.Clone()})
	return snapshot, nil
}

// Delete removes the player and reports whether it existed
func (s *Store) Delete(id string) bool {
	unlock := s.locks.lock(id)
	s.mu.Lock()
	_, ok := s.players[id]
	delete(s.players, id)
	s.mu.Unlock()
	unlock()

	if ok {
		s.notify(Change{Kind: ChangeDelete, PlayerID: id})
	}
	return ok
}

// All returns snapshots of every player in no particular order
func (s *Store) All() []*domain.Player {
	s.mu.RLock()
	out := make([]*domain.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()
	return out
}

// Len returns the number of stored players
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Restore loads records without notifying observers. Records already present are kept.
// It returns the number of records added.
func (s *Store) Restore(players []domain.Player) int {
	added := 0
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range players {
		p := players[i]
		if p.PlayerID == "" {
			continue
		}
		if _, ok := s.players[p.PlayerID]; ok {
			continue
		}
		if p.Level < domain.DefaultLevel {
			p.Level = domain.DefaultLevel
		}
		s.players[p.PlayerID] = p.Clone()
		added++
	}
	return added
}

func (s *Store) notify(c Change) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, o := range observers {
		o(c)
	}
}

// keyedMutex hands out one mutex per key and forgets it when unused
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

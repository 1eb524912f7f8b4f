// pkg/entity/store.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package entity

import (
	"errors"
	"fmt"

	"github.com/davidarule/edge-c2-sim/pkg/log"
	"github.com/davidarule/edge-c2-sim/pkg/util"
)

var (
	// ErrAlreadyExists is returned by Add when entity_id collides.
	ErrAlreadyExists = errors.New("entity already exists")
	// ErrNotFound is returned by Update/Remove when entity_id is unknown.
	ErrNotFound = errors.New("entity not found")
)

// UpdateListener is invoked, outside the store's critical section,
// whenever an entity is added, updated, or upserted.
type UpdateListener func(Entity)

// EventListener is invoked, outside the store's critical section,
// whenever an operational event is emitted (see EmitEvent).
type EventListener func(any)

// Store is the concurrent in-memory registry of entities keyed by id.
// Every operation is linearizable under a single internal mutex;
// snapshot operations (All, ByDomain, ByAgency) copy the entities so
// iteration by callers is lock-free. Listener invocation happens
// outside the critical section, per spec.
type Store struct {
	mu       util.LoggingMutex
	lg       *log.Logger
	entities map[string]Entity
	onUpdate []UpdateListener
	onEvent  []EventListener
}

// NewStore constructs an empty Entity Store. lg must not be nil; it is
// threaded through every lock/unlock for LoggingMutex's contention
// diagnostics.
func NewStore(lg *log.Logger) *Store {
	return &Store{
		lg:       lg,
		entities: make(map[string]Entity),
	}
}

// Add inserts a new entity, failing with ErrAlreadyExists if id clashes.
func (s *Store) Add(e Entity) error {
	s.mu.Lock(s.lg)
	_, exists := s.entities[e.ID]
	if !exists {
		s.entities[e.ID] = e.Clone()
	}
	s.mu.Unlock(s.lg)

	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, e.ID)
	}
	s.notifyUpdate(e)
	return nil
}

// Update replaces an existing entity, failing with ErrNotFound if the
// id isn't present.
func (s *Store) Update(e Entity) error {
	s.mu.Lock(s.lg)
	_, exists := s.entities[e.ID]
	if exists {
		s.entities[e.ID] = e.Clone()
	}
	s.mu.Unlock(s.lg)

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, e.ID)
	}
	s.notifyUpdate(e)
	return nil
}

// Upsert inserts or replaces an entity unconditionally. The orchestrator
// uses this exclusively on its per-tick write path to avoid the
// Add/Update error cases (spec.md §7).
func (s *Store) Upsert(e Entity) {
	s.mu.Lock(s.lg)
	s.entities[e.ID] = e.Clone()
	s.mu.Unlock(s.lg)

	s.notifyUpdate(e)
}

// Get looks up an entity by id.
func (s *Store) Get(id string) (Entity, bool) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.Clone(), true
}

// All returns a consistent point-in-time snapshot of every entity.
func (s *Store) All() []Entity {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	out := make([]Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e.Clone())
	}
	return out
}

// ByDomain returns a snapshot of every entity in the given domain.
func (s *Store) ByDomain(d Domain) []Entity {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	var out []Entity
	for _, e := range s.entities {
		if e.Domain == d {
			out = append(out, e.Clone())
		}
	}
	return out
}

// ByAgency returns a snapshot of every entity belonging to the given
// agency.
func (s *Store) ByAgency(a Agency) []Entity {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	var out []Entity
	for _, e := range s.entities {
		if e.Agency == a {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Remove deletes the entity with the given id, failing with ErrNotFound
// if it isn't present.
func (s *Store) Remove(id string) error {
	s.mu.Lock(s.lg)
	_, exists := s.entities[id]
	if exists {
		delete(s.entities, id)
	}
	s.mu.Unlock(s.lg)

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear removes every entity, keeping the Store's identity (and its
// registered listeners) intact. Used by the tick orchestrator's restart
// path to rebuild the store from the scenario without invalidating any
// external holder of the *Store pointer.
func (s *Store) Clear() {
	s.mu.Lock(s.lg)
	s.entities = make(map[string]Entity)
	s.mu.Unlock(s.lg)
}

// Count returns the number of entities currently in the store.
func (s *Store) Count() int {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return len(s.entities)
}

// OnUpdate registers a listener invoked after every Add/Update/Upsert.
func (s *Store) OnUpdate(fn UpdateListener) {
	s.mu.Lock(s.lg)
	s.onUpdate = append(s.onUpdate, fn)
	s.mu.Unlock(s.lg)
}

// OnEvent registers a listener invoked by EmitEvent.
func (s *Store) OnEvent(fn EventListener) {
	s.mu.Lock(s.lg)
	s.onEvent = append(s.onEvent, fn)
	s.mu.Unlock(s.lg)
}

// EmitEvent pushes an operational event to every registered event
// listener. Used by the event engine (C7) to notify transports of a
// fired scenario event.
func (s *Store) EmitEvent(ev any) {
	s.mu.Lock(s.lg)
	listeners := make([]EventListener, len(s.onEvent))
	copy(listeners, s.onEvent)
	s.mu.Unlock(s.lg)

	for _, cb := range listeners {
		cb(ev)
	}
}

func (s *Store) notifyUpdate(e Entity) {
	s.mu.Lock(s.lg)
	listeners := make([]UpdateListener, len(s.onUpdate))
	copy(listeners, s.onUpdate)
	s.mu.Unlock(s.lg)

	for _, cb := range listeners {
		cb(e)
	}
}

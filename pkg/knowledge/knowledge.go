// Package knowledge holds the declarative world state the mission layer
// reasons over: typed instances, ground facts, and the active goal. The
// store is the single source of truth the planning problem is generated
// from, so every mutation here changes what the next plan will solve.
package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrEmptyName is returned when an instance is added without a name or type.
	ErrEmptyName = errors.New("knowledge: instance name and type must be non-empty")

	// ErrConflictingType is returned when an instance is re-added with a
	// different type than it was first declared with.
	ErrConflictingType = errors.New("knowledge: instance already declared with another type")

	// ErrMalformedFact is returned when a predicate is not a parenthesized term.
	ErrMalformedFact = errors.New("knowledge: fact must be a parenthesized term")
)

// Instance is a named, typed object in the world.
type Instance struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Store is a threadsafe fact base. Instances and predicates keep insertion
// order so generated problems are stable across runs.
type Store struct {
	mu         sync.RWMutex
	instances  []Instance
	byName     map[string]string
	predicates []string
	known      map[string]struct{}
	goal       string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byName: make(map[string]string),
		known:  make(map[string]struct{}),
	}
}

// AddInstance declares a typed object. Re-adding an instance with the same
// type is a no-op; re-adding it with a different type is an error.
func (s *Store) AddInstance(name, typ string) error {
	name = strings.TrimSpace(name)
	typ = strings.TrimSpace(typ)
	if name == "" || typ == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byName[name]; ok {
		if existing != typ {
			return fmt.Errorf("%w: %s is %s, not %s", ErrConflictingType, name, existing, typ)
		}
		return nil
	}
	s.byName[name] = typ
	s.instances = append(s.instances, Instance{Name: name, Type: typ})
	return nil
}

// AddPredicate records a ground fact such as "(robot_at r2d2 wp_control)".
// Duplicate facts are ignored.
func (s *Store) AddPredicate(fact string) error {
	norm, err := normalizeFact(fact)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[norm]; ok {
		return nil
	}
	s.known[norm] = struct{}{}
	s.predicates = append(s.predicates, norm)
	return nil
}

// RemovePredicate deletes a fact and reports whether it was present.
// Removing an absent fact is not an error: mission recovery paths retract
// facts without tracking whether an earlier pass already did.
func (s *Store) RemovePredicate(fact string) bool {
	norm, err := normalizeFact(fact)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[norm]; !ok {
		return false
	}
	delete(s.known, norm)
	for i, p := range s.predicates {
		if p == norm {
			s.predicates = append(s.predicates[:i], s.predicates[i+1:]...)
			break
		}
	}
	return true
}

// HasPredicate reports whether a fact is currently asserted.
func (s *Store) HasPredicate(fact string) bool {
	norm, err := normalizeFact(fact)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.known[norm]
	return ok
}

// SetGoal replaces the active goal expression.
func (s *Store) SetGoal(goal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = strings.TrimSpace(goal)
}

// Goal returns the active goal expression, or "" when none is set.
func (s *Store) Goal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal
}

// Instances returns the declared objects in insertion order.
func (s *Store) Instances() []Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Instance, len(s.instances))
	copy(out, s.instances)
	return out
}

// Predicates returns the asserted facts in insertion order.
func (s *Store) Predicates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.predicates))
	copy(out, s.predicates)
	return out
}

// normalizeFact trims and collapses whitespace so equivalent spellings of
// a fact compare equal.
func normalizeFact(fact string) (string, error) {
	fact = strings.TrimSpace(fact)
	if len(fact) < 2 || !strings.HasPrefix(fact, "(") || !strings.HasSuffix(fact, ")") {
		return "", fmt.Errorf("%w: %q", ErrMalformedFact, fact)
	}
	inner := strings.Fields(fact[1 : len(fact)-1])
	if len(inner) == 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedFact, fact)
	}
	return "(" + strings.Join(inner, " ") + ")", nil
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mokjang/internal/attendance"
	"mokjang/pkg/platform/sentinel"
)

// InMemory holds the authoritative roster and attendance facts. It is the
// reference backing store for the sync backend; every mutation goes
// through here before it is fanned out.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	order  []int64
	people map[int64]*attendance.Person
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextID: 1,
		people: make(map[int64]*attendance.Person),
	}
}

// CreatePerson registers a roster member. An empty group lands in the
// unassigned bucket.
func (s *InMemory) CreatePerson(_ context.Context, name, group string) (attendance.Person, error) {
	if group == "" {
		group = attendance.UnassignedGroup
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &attendance.Person{
		ID:    s.nextID,
		Name:  name,
		Group: group,
		Facts: make(map[string]attendance.Fact),
	}
	s.nextID++
	s.people[p.ID] = p
	s.order = append(s.order, p.ID)
	return clonePerson(p), nil
}

// UpdatePerson renames a member or moves them between groups.
func (s *InMemory) UpdatePerson(_ context.Context, id int64, name, group string) (attendance.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return attendance.Person{}, fmt.Errorf("person %d: %w", id, sentinel.ErrNotFound)
	}
	if name != "" {
		p.Name = name
	}
	if group != "" {
		p.Group = group
	}
	return clonePerson(p), nil
}

// DeletePerson removes a member and all their facts.
func (s *InMemory) DeletePerson(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[id]; !ok {
		return fmt.Errorf("person %d: %w", id, sentinel.ErrNotFound)
	}
	delete(s.people, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListPeople returns every member with their full fact history, in
// insertion order.
func (s *InMemory) ListPeople(_ context.Context) ([]attendance.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]attendance.Person, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clonePerson(s.people[id]))
	}
	return out, nil
}

// SetFact upserts one day's flag pair for a member. The fact's day must
// already be canonical.
func (s *InMemory) SetFact(_ context.Context, fact attendance.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[fact.PersonID]
	if !ok {
		return fmt.Errorf("person %d: %w", fact.PersonID, sentinel.ErrNotFound)
	}
	p.Facts[fact.Day] = fact
	return nil
}

// PersonFacts returns one member's facts, optionally bounded by inclusive
// canonical start/end days, sorted by day.
func (s *InMemory) PersonFacts(_ context.Context, id int64, startDay, endDay string) ([]attendance.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[id]
	if !ok {
		return nil, fmt.Errorf("person %d: %w", id, sentinel.ErrNotFound)
	}
	facts := make([]attendance.Fact, 0, len(p.Facts))
	for day, f := range p.Facts {
		if startDay != "" && day < startDay {
			continue
		}
		if endDay != "" && day > endDay {
			continue
		}
		facts = append(facts, f)
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Day < facts[j].Day })
	return facts, nil
}

func clonePerson(p *attendance.Person) attendance.Person {
	c := *p
	c.Facts = make(map[string]attendance.Fact, len(p.Facts))
	for day, f := range p.Facts {
		c.Facts[day] = f
	}
	return c
}

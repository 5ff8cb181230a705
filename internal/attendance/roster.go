package attendance

import (
	"maps"
	"sync"
)

// Roster is the in-memory ordered collection of people loaded for the
// currently viewed day window. It is the single shared mutable resource of
// the sync engine: the optimistic path and the inbound merge path write it,
// nothing else does. It favors clarity over performance.
type Roster struct {
	mu     sync.RWMutex
	order  []int64
	people map[int64]*Person
}

func NewRoster() *Roster {
	return &Roster{people: make(map[int64]*Person)}
}

// Load wholesale-replaces the roster contents, discarding facts held for
// the previous day window. Input order is preserved for display.
func (r *Roster) Load(people []Person) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = r.order[:0]
	r.people = make(map[int64]*Person, len(people))
	for i := range people {
		p := people[i]
		if p.Group == "" {
			p.Group = UnassignedGroup
		}
		if p.Facts == nil {
			p.Facts = make(map[string]Fact)
		} else {
			p.Facts = maps.Clone(p.Facts)
		}
		r.order = append(r.order, p.ID)
		r.people[p.ID] = &p
	}
}

// FactFor returns the current fact for (personID, day), or a default
// all-false fact if none is recorded. Never fails.
func (r *Roster) FactFor(personID int64, day string) Fact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.people[personID]; ok {
		return p.FactFor(day)
	}
	return Fact{PersonID: personID, Day: day}
}

// Replace upserts the fact for (personID, day), overwriting any existing
// fact for that key. Ordering between competing writers is the caller's
// responsibility. Unknown people are ignored; facts only exist on loaded
// roster members.
func (r *Roster) Replace(personID int64, day string, fact Fact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.people[personID]
	if !ok {
		return
	}
	fact.PersonID = personID
	fact.Day = day
	p.Facts[day] = fact
}

// Remove drops a person and, by composition, all their facts.
func (r *Roster) Remove(personID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.people[personID]; !ok {
		return
	}
	delete(r.people, personID)
	for i, id := range r.order {
		if id == personID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// People returns a copy of the roster in load order.
func (r *Roster) People() []Person {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Person, 0, len(r.order))
	for _, id := range r.order {
		p := *r.people[id]
		p.Facts = maps.Clone(p.Facts)
		out = append(out, p)
	}
	return out
}

// Len returns the number of loaded people.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.people)
}

package realtime

import (
	"fmt"
	"sync"
	"time"

	"mokjang/internal/attendance"
)

// pendingKey identifies an in-flight optimistic edit by its post-edit
// state. The push protocol carries only resulting field values, no
// correlation id, so an exact value match is the only correlation
// available. If two different edits produce the identical resulting fact
// before either echo arrives, one echo may suppress the wrong logical
// edit; that trade-off is accepted, not worked around.
func pendingKey(f attendance.Fact) string {
	return fmt.Sprintf("%d|%s|%t|%t", f.PersonID, f.Day, f.Worship, f.Mokjang)
}

// pendingSet is an expiring multiset of suppression keys. Registering the
// same key twice adds another membership; consuming removes one
// occurrence. Expired entries are swept lazily, so a broadcast that never
// arrives cannot wedge the set or grow it without bound.
type pendingSet struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	now     func() time.Time
}

func newPendingSet() *pendingSet {
	return &pendingSet{
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Register adds one occurrence of key, expiring after ttl.
func (s *pendingSet) Register(key string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append(s.entries[key], s.now().Add(ttl))
}

// ConsumeIfPresent atomically checks membership and removes one unexpired
// occurrence. This is the single decision point for echo suppression.
func (s *pendingSet) ConsumeIfPresent(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeOne(key)
}

// Remove drops one occurrence of key without echo semantics; used when a
// failed write means the echo will never arrive.
func (s *pendingSet) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeOne(key)
}

// Len reports the number of live occurrences across all keys.
func (s *pendingSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for key, expiries := range s.entries {
		live := expiries[:0]
		for _, e := range expiries {
			if e.After(now) {
				live = append(live, e)
			}
		}
		if len(live) == 0 {
			delete(s.entries, key)
			continue
		}
		s.entries[key] = live
		n += len(live)
	}
	return n
}

// removeOne must be called holding s.mu. Expired occurrences of the key
// are dropped along the way.
func (s *pendingSet) removeOne(key string) bool {
	now := s.now()
	expiries := s.entries[key]
	live := expiries[:0]
	for _, e := range expiries {
		if e.After(now) {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		delete(s.entries, key)
		return false
	}
	if len(live) == 1 {
		delete(s.entries, key)
		return true
	}
	s.entries[key] = live[1:]
	return true
}

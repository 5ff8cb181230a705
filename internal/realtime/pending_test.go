package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mokjang/internal/attendance"
)

func TestPendingKey(t *testing.T) {
	f := attendance.Fact{PersonID: 7, Day: "2025-03-09", Worship: true, Mokjang: false}
	assert.Equal(t, "7|2025-03-09|true|false", pendingKey(f))

	flipped := f
	flipped.Mokjang = true
	assert.NotEqual(t, pendingKey(f), pendingKey(flipped), "key must encode both flags")
}

func TestPendingSetConsume(t *testing.T) {
	s := newPendingSet()
	s.Register("k", time.Second)

	assert.True(t, s.ConsumeIfPresent("k"))
	assert.False(t, s.ConsumeIfPresent("k"), "each registration is consumed at most once")
	assert.False(t, s.ConsumeIfPresent("other"))
}

func TestPendingSetIsMultiset(t *testing.T) {
	s := newPendingSet()
	s.Register("k", time.Second)
	s.Register("k", time.Second)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.ConsumeIfPresent("k"))
	assert.True(t, s.ConsumeIfPresent("k"))
	assert.False(t, s.ConsumeIfPresent("k"))
}

func TestPendingSetExpiry(t *testing.T) {
	now := time.Now()
	s := newPendingSet()
	s.now = func() time.Time { return now }

	s.Register("k", 3*time.Second)

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, s.Len())

	now = now.Add(2 * time.Second)
	assert.False(t, s.ConsumeIfPresent("k"), "expired entry must not suppress")
	assert.Zero(t, s.Len())
}

func TestPendingSetExpiryIsPerOccurrence(t *testing.T) {
	now := time.Now()
	s := newPendingSet()
	s.now = func() time.Time { return now }

	s.Register("k", time.Second)
	now = now.Add(500 * time.Millisecond)
	s.Register("k", time.Second)

	// First registration lapses, second is still live.
	now = now.Add(700 * time.Millisecond)
	assert.True(t, s.ConsumeIfPresent("k"))
	assert.False(t, s.ConsumeIfPresent("k"))
}

func TestPendingSetRemove(t *testing.T) {
	s := newPendingSet()
	s.Register("k", time.Second)
	s.Remove("k")
	assert.False(t, s.ConsumeIfPresent("k"))

	// Removing an absent key is a no-op.
	s.Remove("missing")
}

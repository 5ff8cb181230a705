package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mokjang/internal/attendance"
	"mokjang/internal/platform/metrics"
	"mokjang/pkg/platform/sentinel"
)

// Flag names the two independent attendance booleans.
type Flag string

const (
	FlagWorship Flag = "worship"
	FlagMokjang Flag = "mokjang"
)

// Writer issues the authoritative attendance write.
type Writer interface {
	WriteFact(ctx context.Context, fact attendance.Fact) error
}

// Mutator makes a single flag toggle feel instantaneous: the roster is
// updated synchronously before the authoritative write settles, and rolled
// back if that write fails. Each apply registers its own suppression key
// so the eventual push echo is not re-applied.
type Mutator struct {
	roster  *attendance.Roster
	pending *pendingSet
	writer  Writer
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	// mu serializes read-compute-replace-register so a second toggle on
	// the same key always recomputes from the latest local state.
	mu sync.Mutex
}

// NewMutator wires the optimistic write path. ttl bounds how long an edit
// waits for its echo before the suppression entry self-expires.
func NewMutator(roster *attendance.Roster, pending *pendingSet, writer Writer, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Mutator {
	return &Mutator{
		roster:  roster,
		pending: pending,
		writer:  writer,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// stagedEdit captures one apply's pre- and post-state for the write and
// its potential rollback.
type stagedEdit struct {
	prev attendance.Fact
	next attendance.Fact
	key  string
}

// Apply toggles one flag: local state first, then the authoritative write.
// The optimistic value is visible to readers for the whole duration of the
// write. On write failure the roster reverts to the state captured here
// and the suppression key is dropped, since its echo will never arrive.
func (m *Mutator) Apply(ctx context.Context, personID int64, day string, flag Flag, value bool) error {
	staged, err := m.stage(personID, day, flag, value)
	if err != nil {
		return err
	}
	return m.commit(ctx, staged)
}

// stage performs the synchronous half of Apply: derive the resulting
// fact, write it into the roster, and register the suppression key.
func (m *Mutator) stage(personID int64, day string, flag Flag, value bool) (stagedEdit, error) {
	day, err := attendance.NormalizeDay(day)
	if err != nil {
		return stagedEdit{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.roster.FactFor(personID, day)
	next := prev
	switch flag {
	case FlagWorship:
		next.Worship = value
	case FlagMokjang:
		next.Mokjang = value
	default:
		return stagedEdit{}, fmt.Errorf("unknown flag %q: %w", flag, sentinel.ErrInvalidState)
	}

	m.roster.Replace(personID, day, next)
	key := pendingKey(next)
	m.pending.Register(key, m.ttl)
	m.metrics.IncrementTogglesApplied()
	return stagedEdit{prev: prev, next: next, key: key}, nil
}

// commit issues the authoritative write for a staged edit and rolls back
// on failure. The rollback restores the state captured at stage time; a
// later edit may already have superseded it, in which case that edit's own
// write decides the final state.
func (m *Mutator) commit(ctx context.Context, staged stagedEdit) error {
	if err := m.writer.WriteFact(ctx, staged.next); err != nil {
		m.mu.Lock()
		m.roster.Replace(staged.prev.PersonID, staged.prev.Day, staged.prev)
		m.pending.Remove(staged.key)
		m.mu.Unlock()
		m.metrics.IncrementWriteFailures()
		m.logger.Warn("attendance write failed, rolled back",
			"person_id", staged.next.PersonID,
			"day", staged.next.Day,
			"error", err.Error(),
		)
		return fmt.Errorf("write attendance: %w", err)
	}
	return nil
}

package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mokjang/internal/api"
	"mokjang/internal/attendance"
	"mokjang/internal/platform/metrics"
	"mokjang/pkg/platform/sentinel"
)

// Fetcher loads the roster for a day from the authoritative store.
type Fetcher interface {
	RosterForDay(ctx context.Context, day string) ([]attendance.Person, error)
}

// DefaultPendingTTL bounds how long an optimistic edit waits for its push
// echo; long enough for realistic fan-out latency, short enough to keep
// the pending set small.
const DefaultPendingTTL = 3 * time.Second

// CoordinatorConfig wires a Coordinator's collaborators. Fetcher and
// Writer are usually the same api.Client.
type CoordinatorConfig struct {
	Fetcher Fetcher
	Writer  Writer
	// PushURL is the ws:// subscription endpoint; empty disables the
	// push channel (unit tests drive OnInbound directly).
	PushURL    string
	PendingTTL time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	// OnWriteError surfaces failed authoritative writes to presentation
	// after the local rollback has already happened. Optional.
	OnWriteError func(error)
	// OnRemoteChange fires after a foreign edit has been merged into the
	// roster, so presentation can redraw. Optional.
	OnRemoteChange func(attendance.Fact)
}

// Coordinator owns the roster and reconciles its two write streams: the
// local optimistic path and the push channel's inbound fan-out. A client's
// own edit is applied exactly once (locally, before the write settles) and
// its echo is suppressed; other clients' edits are merged when they
// concern the viewed day.
type Coordinator struct {
	roster  *attendance.Roster
	pending *pendingSet
	mutator *Mutator
	fetcher Fetcher
	channel *Channel
	logger  *slog.Logger
	metrics *metrics.Metrics

	onWriteError   func(error)
	onRemoteChange func(attendance.Fact)

	// mu guards the viewed day and serializes each inbound message's
	// consume-or-merge decision against concurrent day switches.
	mu        sync.Mutex
	viewedDay string
	loadGen   uint64
}

// NewCoordinator builds the sync engine. The push channel, when
// configured, is constructed but not connected; call Start.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	ttl := cfg.PendingTTL
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	roster := attendance.NewRoster()
	pending := newPendingSet()
	c := &Coordinator{
		roster:         roster,
		pending:        pending,
		mutator:        NewMutator(roster, pending, cfg.Writer, ttl, cfg.Logger, cfg.Metrics),
		fetcher:        cfg.Fetcher,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		onWriteError:   cfg.OnWriteError,
		onRemoteChange: cfg.OnRemoteChange,
	}
	if cfg.PushURL != "" {
		c.channel = NewChannel(cfg.PushURL, c.OnInbound, cfg.Logger, cfg.Metrics)
	}
	return c
}

// Start connects the push channel. A failed first dial is not fatal: the
// channel keeps retrying in the background and the engine stays usable in
// stale mode, so the error is informational.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.channel == nil {
		return nil
	}
	return c.channel.Connect(ctx)
}

// Close tears down the push channel.
func (c *Coordinator) Close() error {
	if c.channel == nil {
		return nil
	}
	return c.channel.Close()
}

// SetViewedDay switches the view and reloads the roster from the
// authoritative store. The push channel keeps running across the switch;
// messages for other days are filtered on arrival. A fetch that resolves
// after the view has moved on is discarded, so a slow response for a
// previous day can never overwrite the current one.
func (c *Coordinator) SetViewedDay(ctx context.Context, day string) error {
	day, err := attendance.NormalizeDay(day)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.viewedDay = day
	c.loadGen++
	gen := c.loadGen
	c.mu.Unlock()

	people, err := c.fetcher.RosterForDay(ctx, day)
	if err != nil {
		return fmt.Errorf("load roster for %s: %w", day, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.loadGen {
		c.logger.Info("discarding stale roster fetch", "day", day)
		return nil
	}
	c.roster.Load(people)
	return nil
}

// Refresh re-fetches the viewed day, e.g. after person CRUD.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	day := c.viewedDay
	c.mu.Unlock()
	if day == "" {
		return fmt.Errorf("no viewed day: %w", sentinel.ErrInvalidState)
	}
	return c.SetViewedDay(ctx, day)
}

// ViewedDay returns the canonical day currently displayed.
func (c *Coordinator) ViewedDay() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewedDay
}

// CurrentFactFor returns the viewed day's fact for a person, defaulting to
// all-false.
func (c *Coordinator) CurrentFactFor(personID int64) attendance.Fact {
	c.mu.Lock()
	day := c.viewedDay
	c.mu.Unlock()
	return c.roster.FactFor(personID, day)
}

// People returns the loaded roster in display order.
func (c *Coordinator) People() []attendance.Person {
	return c.roster.People()
}

// Summary computes the viewed day's attendance buckets.
func (c *Coordinator) Summary() attendance.Summary {
	return attendance.Summarize(c.roster.People(), c.ViewedDay())
}

// ConnectionStatus classifies the push channel for display.
func (c *Coordinator) ConnectionStatus() ConnectionState {
	if c.channel == nil {
		return StateDisconnected
	}
	return c.channel.State()
}

// RequestToggle applies one flag change optimistically and returns as soon
// as the local state reflects it; the authoritative write completes in the
// background. Failures roll back locally and reach presentation through
// OnWriteError.
func (c *Coordinator) RequestToggle(ctx context.Context, personID int64, flag Flag, value bool) error {
	day := c.ViewedDay()
	if day == "" {
		return fmt.Errorf("no viewed day: %w", sentinel.ErrInvalidState)
	}
	staged, err := c.mutator.stage(personID, day, flag, value)
	if err != nil {
		return err
	}
	// In-flight writes are never cancelled; the TTL on the pending key is
	// the only timeout.
	writeCtx := context.WithoutCancel(ctx)
	go func() {
		if err := c.mutator.commit(writeCtx, staged); err != nil && c.onWriteError != nil {
			c.onWriteError(err)
		}
	}()
	return nil
}

// Toggle is the blocking variant of RequestToggle: it returns after the
// authoritative write settles (and after rollback, when it fails). The
// optimistic value is visible to other goroutines throughout.
func (c *Coordinator) Toggle(ctx context.Context, personID int64, flag Flag, value bool) error {
	day := c.ViewedDay()
	if day == "" {
		return fmt.Errorf("no viewed day: %w", sentinel.ErrInvalidState)
	}
	return c.mutator.Apply(ctx, personID, day, flag, value)
}

// OnInbound routes one push message: consume it as this client's own echo,
// merge it as a foreign edit, or drop it when it concerns another day.
// Each call is one atomically-handled unit of work.
func (c *Coordinator) OnInbound(upd api.AttendanceUpdate) {
	day, err := attendance.NormalizeDay(upd.AttendanceDate)
	if err != nil {
		c.logger.Warn("dropping inbound fact with bad day", "raw", upd.AttendanceDate, "error", err.Error())
		return
	}
	fact := attendance.Fact{
		PersonID: upd.StudentID,
		Day:      day,
		Worship:  upd.Worship,
		Mokjang:  upd.Mokjang,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending.ConsumeIfPresent(pendingKey(fact)) {
		// Our own edit bouncing back; it is already on screen.
		c.metrics.IncrementEchoesSuppressed()
		return
	}
	if day != c.viewedDay {
		return
	}
	c.roster.Replace(fact.PersonID, day, fact)
	c.metrics.IncrementForeignMerges()
	if c.onRemoteChange != nil {
		c.onRemoteChange(fact)
	}
}

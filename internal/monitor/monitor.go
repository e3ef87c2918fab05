package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storage-watch/internal/alerting"
	"storage-watch/internal/fetcher"
	"storage-watch/internal/inventory"
	"storage-watch/internal/scheduler"
	"storage-watch/internal/storage"
)

// SnapshotSource yields the snapshot a cycle diffs against the baseline.
// ok=false skips the cycle.
type SnapshotSource interface {
	Fetch(ctx context.Context) (snap inventory.Snapshot, ok bool)
}

// Journal receives every sample and event. Failures are logged only.
type Journal interface {
	RecordSample(ctx context.Context, sample storage.WeightSample) error
	InsertEvent(ctx context.Context, ev storage.EventRecord) (storage.EventRecord, error)
}

// Options tune the monitor.
type Options struct {
	Limits          inventory.Limits
	Interval        time.Duration
	DevelopmentMode bool
}

// Monitor owns the storage baseline and runs the poll/diff/notify cycle.
type Monitor struct {
	opts     Options
	sched    *scheduler.Scheduler
	source   SnapshotSource
	direct   fetcher.SnapshotFetcher
	notifier alerting.Notifier
	journal  Journal
	logger   zerolog.Logger

	mu       sync.Mutex
	baseline inventory.Snapshot
	notified bool
	paused   bool
	failure  error
	lastPoll time.Time
	cycles   uint64
}

// New constructs a monitor. direct serves on-demand reads and bypasses the
// failure policy; journal may be nil.
func New(opts Options, sched *scheduler.Scheduler, source SnapshotSource, direct fetcher.SnapshotFetcher, notifier alerting.Notifier, journal Journal, logger zerolog.Logger) *Monitor {
	return &Monitor{
		opts:     opts,
		sched:    sched,
		source:   source,
		direct:   direct,
		notifier: notifier,
		journal:  journal,
		logger:   logger.With().Str("component", "monitor").Logger(),
		baseline: inventory.Empty(),
	}
}

// Start captures the startup baseline and announces that monitoring began.
func (m *Monitor) Start(ctx context.Context) {
	snap, ok := m.source.Fetch(ctx)
	if !ok {
		snap = inventory.Empty()
	}
	now := time.Now().UTC()

	m.mu.Lock()
	m.baseline = snap
	m.mu.Unlock()

	m.logger.Info().
		Bool("development_mode", m.opts.DevelopmentMode).
		Dur("interval", m.opts.Interval).
		Str("total_weight", snap.TotalWeight.String()).
		Int("items", snap.Len()).
		Msg("monitoring started")

	m.recordSample(ctx, now, snap, storage.SampleStartup)
	m.deliver(ctx, inventory.Event{
		Kind:        inventory.EventMonitoringStarted,
		TotalWeight: snap.TotalWeight,
		MaxWeight:   m.opts.Limits.MaxWeight,
		Info:        alerting.StartedInfo(m.opts.DevelopmentMode, m.opts.Interval),
		At:          now,
	})
}

// Run drives the poll loop until ctx ends or a cycle fails. The returned
// error wraps scheduler.ErrHalt in the latter case.
func (m *Monitor) Run(ctx context.Context) error {
	if m.sched == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return m.sched.Run(ctx, m.tick)
}

func (m *Monitor) tick(ctx context.Context, at time.Time) (err error) {
	if m.isPaused() {
		m.logger.Debug().Msg("monitoring paused; skipping cycle")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("monitoring cycle panicked: %v", r)
			m.fail(cause)
			err = fmt.Errorf("%w: %w", scheduler.ErrHalt, cause)
		}
	}()

	m.cycle(ctx, at)
	return nil
}

// cycle runs one fetch/diff/notify pass.
func (m *Monitor) cycle(ctx context.Context, at time.Time) {
	snap, ok := m.source.Fetch(ctx)
	if ctx.Err() != nil {
		m.logger.Debug().Msg("shutdown during fetch; cycle dropped")
		return
	}
	if !ok {
		m.recordSample(ctx, at, inventory.Empty(), storage.SampleFailed)
		m.mu.Lock()
		m.lastPoll = at
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	events, notified := inventory.Diff(m.baseline, snap, m.opts.Limits, m.notified)
	m.baseline = snap
	m.notified = notified
	m.lastPoll = at
	m.cycles++
	m.mu.Unlock()

	m.recordSample(ctx, at, snap, storage.SampleOK)
	for _, ev := range events {
		ev.At = at
		m.deliver(ctx, ev)
	}

	m.logger.Debug().
		Str("total_weight", snap.TotalWeight.String()).
		Int("items", snap.Len()).
		Int("events", len(events)).
		Msg("cycle complete")
}

func (m *Monitor) deliver(ctx context.Context, ev inventory.Event) {
	log := m.logger.With().Str("kind", string(ev.Kind)).Str("item", ev.Item).Logger()
	switch ev.Kind {
	case inventory.EventItemAdded, inventory.EventItemRemoved:
		log.Info().Str("delta", ev.Delta.String()).Msg("item amount changed")
	case inventory.EventItemVanished:
		log.Info().Msg("last item removed from storage")
	case inventory.EventThresholdCrossed:
		log.Warn().Str("remaining", ev.Remaining.String()).Msg("storage nearly full")
	}

	var sendErr error
	if m.notifier != nil {
		sendErr = m.notifier.Notify(ctx, ev)
	}
	if sendErr != nil {
		if errors.Is(sendErr, alerting.ErrChannelNotFound) {
			log.Error().Err(sendErr).Msg("channel not found; message dropped")
		} else {
			log.Error().Err(sendErr).Msg("failed to send message")
		}
	}

	if m.journal == nil {
		return
	}
	rec := storage.EventRecord{
		Kind:        string(ev.Kind),
		Item:        ev.Item,
		Delta:       ev.Delta,
		Previous:    ev.Previous,
		Current:     ev.Current,
		TotalWeight: ev.TotalWeight,
		MaxWeight:   ev.MaxWeight,
		Delivered:   sendErr == nil && m.notifier != nil,
	}
	if sendErr != nil {
		msg := sendErr.Error()
		rec.Error = &msg
	}
	if _, err := m.journal.InsertEvent(ctx, rec); err != nil {
		log.Error().Err(err).Msg("failed to journal event")
	}
}

func (m *Monitor) recordSample(ctx context.Context, at time.Time, snap inventory.Snapshot, status string) {
	if m.journal == nil {
		return
	}
	sample := storage.WeightSample{
		SampledAt:   at,
		TotalWeight: snap.TotalWeight,
		ItemCount:   snap.Len(),
		Status:      status,
	}
	if err := m.journal.RecordSample(ctx, sample); err != nil {
		m.logger.Error().Err(err).Msg("failed to journal weight sample")
	}
}

func (m *Monitor) fail(err error) {
	m.mu.Lock()
	m.failure = err
	m.mu.Unlock()
	m.logger.Error().Err(err).Msg("an error occurred in monitoring; loop stopped")
}

func (m *Monitor) isPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Pause stops fetching until Resume. The baseline stays frozen, so the first
// cycle after Resume reports everything that changed meanwhile.
func (m *Monitor) Pause() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.logger.Info().Msg("monitoring paused")
	return m.stateLocked()
}

// Resume re-enables fetching.
func (m *Monitor) Resume() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	m.logger.Info().Msg("monitoring resumed")
	return m.stateLocked()
}

func (m *Monitor) stateLocked() State {
	switch {
	case m.failure != nil:
		return StateFailed
	case m.paused:
		return StatePaused
	}
	return StateRunning
}

// Status reports the current state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:             m.stateLocked(),
		ThresholdNotified: m.notified,
		BaselineWeight:    m.baseline.TotalWeight,
		MaxWeight:         m.opts.Limits.MaxWeight,
		BaselineItems:     m.baseline.Len(),
		LastPoll:          m.lastPoll,
		Cycles:            m.cycles,
		Interval:          m.opts.Interval,
		Err:               m.failure,
	}
}

// Inspect performs one fetch outside the loop. It neither reads nor
// updates the baseline.
func (m *Monitor) Inspect(ctx context.Context) (inventory.Snapshot, error) {
	if m.direct == nil {
		return inventory.Snapshot{}, fmt.Errorf("no fetcher configured")
	}
	return m.direct.FetchSnapshot(ctx)
}

// Limits returns the configured threshold and capacity.
func (m *Monitor) Limits() inventory.Limits {
	return m.opts.Limits
}

package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storage-watch/internal/alerting"
	"storage-watch/internal/inventory"
	"storage-watch/internal/scheduler"
	"storage-watch/internal/storage"
)

// scriptedSource hands out snapshots in order and repeats the last one.
type scriptedSource struct {
	mu    sync.Mutex
	snaps []inventory.Snapshot
	ok    []bool
	calls int
}

func (s *scriptedSource) Fetch(context.Context) (inventory.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.snaps) {
		i = len(s.snaps) - 1
	}
	s.calls++
	ok := true
	if i < len(s.ok) {
		ok = s.ok[i]
	}
	return s.snaps[i], ok
}

func (s *scriptedSource) set(snap inventory.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = []inventory.Snapshot{snap}
	s.ok = nil
	s.calls = 0
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []inventory.Event
	err    error
	panic  bool
}

func (n *recordingNotifier) Notify(_ context.Context, ev inventory.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.panic && ev.Kind != inventory.EventMonitoringStarted {
		panic("renderer exploded")
	}
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) take() []inventory.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.events
	n.events = nil
	return out
}

type memJournal struct {
	samples []storage.WeightSample
	events  []storage.EventRecord
}

func (j *memJournal) RecordSample(_ context.Context, s storage.WeightSample) error {
	j.samples = append(j.samples, s)
	return nil
}

func (j *memJournal) InsertEvent(_ context.Context, ev storage.EventRecord) (storage.EventRecord, error) {
	j.events = append(j.events, ev)
	return ev, nil
}

type staticFetcher struct {
	snap inventory.Snapshot
	err  error
}

func (f staticFetcher) FetchSnapshot(context.Context) (inventory.Snapshot, error) {
	return f.snap, f.err
}

func snap(total int64, amounts map[string]int64) inventory.Snapshot {
	s := inventory.Empty()
	s.TotalWeight = decimal.NewFromInt(total)
	for name, amount := range amounts {
		s.Items[name] = inventory.Item{Name: name, Amount: decimal.NewFromInt(amount)}
	}
	return s
}

func newTestMonitor(source SnapshotSource, n alerting.Notifier, j Journal, threshold, max int64) *Monitor {
	opts := Options{
		Limits:   inventory.Limits{Threshold: decimal.NewFromInt(threshold), MaxWeight: decimal.NewFromInt(max)},
		Interval: time.Millisecond,
	}
	sched := scheduler.New(scheduler.Options{Interval: time.Millisecond, Immediate: true}, zerolog.Nop())
	return New(opts, sched, source, staticFetcher{}, n, j, zerolog.Nop())
}

func kinds(events []inventory.Event) []inventory.EventKind {
	out := make([]inventory.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestStartAnnouncesWithoutDiffing(t *testing.T) {
	src := &scriptedSource{snaps: []inventory.Snapshot{snap(100, map[string]int64{"A": 5})}}
	n := &recordingNotifier{}
	m := newTestMonitor(src, n, nil, 150, 220)

	m.Start(context.Background())
	events := n.take()
	if len(events) != 1 || events[0].Kind != inventory.EventMonitoringStarted {
		t.Fatalf("expected only the start announcement, got %v", kinds(events))
	}
	if !events[0].TotalWeight.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("start event should carry baseline weight, got %s", events[0].TotalWeight)
	}

	if err := m.tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if events := n.take(); len(events) != 0 {
		t.Fatalf("unchanged storage after start should be silent, got %v", kinds(events))
	}
}

func TestCycleScenarioThresholdAndRemoval(t *testing.T) {
	src := &scriptedSource{snaps: []inventory.Snapshot{
		snap(100, map[string]int64{"A": 5}),
		snap(160, map[string]int64{"A": 3}),
	}}
	n := &recordingNotifier{}
	m := newTestMonitor(src, n, nil, 150, 220)
	m.Start(context.Background())
	n.take()

	if err := m.tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	events := n.take()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %v", kinds(events))
	}
	if events[0].Kind != inventory.EventThresholdCrossed || !events[0].Remaining.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected threshold event %+v", events[0])
	}
	if events[1].Kind != inventory.EventItemRemoved || !events[1].Delta.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected item event %+v", events[1])
	}
	if !m.Status().ThresholdNotified {
		t.Fatal("threshold flag should be set")
	}

	if err := m.tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if events := n.take(); len(events) != 0 {
		t.Fatalf("threshold must not repeat within one excursion, got %v", kinds(events))
	}
}

func TestPauseFreezesBaseline(t *testing.T) {
	base := snap(10, map[string]int64{"A": 1, "B": 2})
	src := &scriptedSource{snaps: []inventory.Snapshot{base}}
	n := &recordingNotifier{}
	m := newTestMonitor(src, n, nil, 1000, 2000)
	m.Start(context.Background())
	n.take()

	if state := m.Pause(); state != StatePaused {
		t.Fatalf("expected paused, got %s", state)
	}

	src.set(snap(12, map[string]int64{"A": 2, "B": 2}))
	for i := 0; i < 3; i++ {
		_ = m.tick(context.Background(), time.Now())
	}
	src.set(snap(15, map[string]int64{"A": 4, "C": 1}))
	for i := 0; i < 3; i++ {
		_ = m.tick(context.Background(), time.Now())
	}
	if events := n.take(); len(events) != 0 {
		t.Fatalf("paused monitor emitted %v", kinds(events))
	}
	if src.calls != 0 {
		t.Fatalf("paused monitor fetched %d times", src.calls)
	}

	if state := m.Resume(); state != StateRunning {
		t.Fatalf("expected running, got %s", state)
	}
	if err := m.tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	events := n.take()
	got := kinds(events)
	want := []inventory.EventKind{inventory.EventItemAdded, inventory.EventItemAdded, inventory.EventItemVanished}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if events[0].Item != "A" || !events[0].Delta.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("diff should be against the pre-pause baseline: %+v", events[0])
	}
	if events[2].Item != "B" {
		t.Fatalf("expected B vanished, got %+v", events[2])
	}
}

func TestSkippedFetchKeepsBaseline(t *testing.T) {
	src := &scriptedSource{
		snaps: []inventory.Snapshot{snap(10, map[string]int64{"A": 1}), {}, snap(10, map[string]int64{"A": 1})},
		ok:    []bool{true, false, true},
	}
	n := &recordingNotifier{}
	j := &memJournal{}
	m := newTestMonitor(src, n, j, 100, 200)
	m.Start(context.Background())
	n.take()

	_ = m.tick(context.Background(), time.Now())
	_ = m.tick(context.Background(), time.Now())
	if events := n.take(); len(events) != 0 {
		t.Fatalf("skipped fetch should not disturb the baseline, got %v", kinds(events))
	}
	if len(j.samples) != 3 || j.samples[1].Status != storage.SampleFailed {
		t.Fatalf("expected startup, failed, ok samples, got %+v", j.samples)
	}
}

func TestNotifyErrorsAreNotFatal(t *testing.T) {
	src := &scriptedSource{snaps: []inventory.Snapshot{snap(10, map[string]int64{"A": 1}), snap(10, map[string]int64{"A": 2})}}
	n := &recordingNotifier{err: alerting.ErrChannelNotFound}
	j := &memJournal{}
	m := newTestMonitor(src, n, j, 100, 200)
	m.Start(context.Background())

	if err := m.tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("delivery failure should not fail the cycle: %v", err)
	}
	if m.Status().State != StateRunning {
		t.Fatalf("expected running, got %s", m.Status().State)
	}
	if len(j.events) != 2 || j.events[1].Delivered || j.events[1].Error == nil {
		t.Fatalf("journal should record the undelivered event: %+v", j.events)
	}
}

func TestPanicMovesToFailed(t *testing.T) {
	src := &scriptedSource{snaps: []inventory.Snapshot{snap(10, map[string]int64{"A": 1}), snap(10, map[string]int64{"A": 2})}}
	n := &recordingNotifier{panic: true}
	m := newTestMonitor(src, n, nil, 100, 200)
	m.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Run(ctx)
	if !errors.Is(err, scheduler.ErrHalt) {
		t.Fatalf("expected halt, got %v", err)
	}

	st := m.Status()
	if st.State != StateFailed || st.Err == nil {
		t.Fatalf("expected failed state with cause, got %+v", st)
	}
	if !strings.Contains(st.Summary(), "FAILED") {
		t.Fatalf("summary should expose the failure: %q", st.Summary())
	}
	if m.Resume() != StateFailed || m.Pause() != StateFailed {
		t.Fatal("failed is terminal")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &scriptedSource{snaps: []inventory.Snapshot{snap(10, nil)}}
	m := newTestMonitor(src, &recordingNotifier{}, nil, 100, 200)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestInspectBypassesBaseline(t *testing.T) {
	src := &scriptedSource{snaps: []inventory.Snapshot{snap(10, map[string]int64{"A": 1})}}
	m := New(Options{Interval: time.Second}, nil, src, staticFetcher{snap: snap(99, map[string]int64{"Z": 9})}, &recordingNotifier{}, nil, zerolog.Nop())
	m.Start(context.Background())

	got, err := m.Inspect(context.Background())
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !got.TotalWeight.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("inspect should fetch fresh data, got %s", got.TotalWeight)
	}
	if st := m.Status(); !st.BaselineWeight.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("inspect must not move the baseline, got %s", st.BaselineWeight)
	}

	failing := New(Options{}, nil, src, staticFetcher{err: errors.New("down")}, nil, nil, zerolog.Nop())
	if _, err := failing.Inspect(context.Background()); err == nil {
		t.Fatal("inspect should surface fetch errors")
	}
	if err := failing.Run(context.Background()); err == nil {
		t.Fatal("run without scheduler should fail")
	}
}

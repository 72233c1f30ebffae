package round

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/recall/internal/model"
)

type memStore struct {
	mu     sync.Mutex
	values map[string]int
	sets   int
	err    error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]int{}}
}

func (s *memStore) GetInt(_ context.Context, key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, false, s.err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memStore) SetInt(_ context.Context, key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sets++
	s.values[key] = value
	return nil
}

type memRecorder struct {
	mu   sync.Mutex
	recs []model.RoundRecord
}

func (r *memRecorder) InsertRound(_ context.Context, rec model.RoundRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return int64(len(r.recs)), nil
}

// scriptedGen returns queued sequences, then falls back to zeros.
type scriptedGen struct {
	queue []string
}

func (g *scriptedGen) Digits(n int) string {
	if len(g.queue) == 0 {
		return strings.Repeat("0", n)
	}
	next := g.queue[0]
	g.queue = g.queue[1:]
	return next
}

type harness struct {
	clock  *clockwork.FakeClock
	store  *memStore
	rec    *memRecorder
	events chan Snapshot
	ctrl   *Controller
}

func newHarness(t *testing.T, seqs ...string) *harness {
	t.Helper()
	h := &harness{
		clock:  clockwork.NewFakeClock(),
		store:  newMemStore(),
		rec:    &memRecorder{},
		events: make(chan Snapshot, 64),
	}
	h.ctrl = NewController(Deps{
		Clock:    h.clock,
		Gen:      &scriptedGen{queue: seqs},
		Store:    h.store,
		Recorder: h.rec,
		Notify:   func(s Snapshot) { h.events <- s },
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) waitTimers(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, n))
}

func (h *harness) waitFor(t *testing.T, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-h.events:
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot")
			return Snapshot{}
		}
	}
}

// reveal advances past the show duration and waits for the input phase.
func (h *harness) reveal(t *testing.T) Snapshot {
	t.Helper()
	h.waitTimers(t, 2)
	snap := h.ctrl.Snapshot()
	h.clock.Advance(h.ctrl.timing.Duration(snap.Level))
	return h.waitFor(t, func(s Snapshot) bool { return s.Phase == model.PhaseInput })
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 1200*time.Millisecond, Duration(1))
	assert.Equal(t, 1300*time.Millisecond, Duration(2))
	assert.Equal(t, 6000*time.Millisecond, Duration(10))
	for level := 1; level <= 50; level++ {
		want := time.Duration(level) * 650 * time.Millisecond
		if want < 1200*time.Millisecond {
			want = 1200 * time.Millisecond
		}
		if want > 6000*time.Millisecond {
			want = 6000 * time.Millisecond
		}
		assert.Equal(t, want, Duration(level), "level %d", level)
	}
}

func TestCountdown(t *testing.T) {
	assert.Equal(t, 2, Countdown(1200*time.Millisecond))
	assert.Equal(t, 6, Countdown(6000*time.Millisecond))
	assert.Equal(t, 1, Countdown(time.Millisecond))
	assert.Equal(t, 0, Countdown(0))
	assert.Equal(t, 0, Countdown(-300*time.Millisecond))
}

func TestEndToEndCorrectRound(t *testing.T) {
	h := newHarness(t, "7")

	assert.Equal(t, model.PhaseReady, h.ctrl.Snapshot().Phase)

	snap := h.ctrl.Start()
	require.Equal(t, model.PhaseShow, snap.Phase)
	require.Len(t, snap.Target, 1)
	assert.Equal(t, 2, snap.Countdown)

	h.waitTimers(t, 2)
	h.clock.Advance(time.Second)
	snap = h.waitFor(t, func(s Snapshot) bool { return s.Countdown == 1 })
	assert.Equal(t, model.PhaseShow, snap.Phase)

	h.clock.Advance(200 * time.Millisecond)
	snap = h.waitFor(t, func(s Snapshot) bool { return s.Phase == model.PhaseInput })
	assert.Equal(t, 0, snap.Countdown)
	assert.Empty(t, snap.Target, "target must be hidden while typing")

	h.ctrl.ChangeInput("7")
	snap = h.ctrl.Submit()
	require.Equal(t, model.PhaseResult, snap.Phase)
	require.NotNil(t, snap.Outcome)
	assert.True(t, snap.Outcome.Success)
	assert.Contains(t, snap.Outcome.Message, "Correct")
	assert.False(t, snap.LastRoundFailed)
	assert.Equal(t, 2, snap.Level)
	assert.Equal(t, 1, snap.Best)
	assert.Equal(t, 1, h.store.values[BestStreakKey])

	require.Len(t, h.rec.recs, 1)
	assert.True(t, h.rec.recs[0].Success)
	assert.Equal(t, int64(1200), h.rec.recs[0].ShownMs)
}

func TestWrongAnswerResetsLevel(t *testing.T) {
	h := newHarness(t, "1234")
	h.ctrl.level = 4
	h.store.values[BestStreakKey] = 2
	h.ctrl.best = 2

	h.ctrl.Start()
	h.reveal(t)
	h.ctrl.ChangeInput("1294")
	snap := h.ctrl.Submit()

	require.Equal(t, model.PhaseResult, snap.Phase)
	assert.True(t, snap.LastRoundFailed)
	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, 2, snap.Best)
	require.NotNil(t, snap.Outcome)
	assert.False(t, snap.Outcome.Success)
	assert.Contains(t, snap.Outcome.Message, "1,234")
	assert.Contains(t, snap.Outcome.Message, "1 digit off")
	for i, m := range snap.Outcome.Marks {
		assert.Equal(t, i == 2, m.Mismatch, "position %d", i)
	}
	assert.Equal(t, 0, h.store.sets)
}

func TestSubmitRequiresCompleteInput(t *testing.T) {
	h := newHarness(t, "42")
	h.ctrl.level = 2

	snap := h.ctrl.Submit()
	assert.Equal(t, model.PhaseReady, snap.Phase)

	h.ctrl.Start()
	h.reveal(t)
	h.ctrl.ChangeInput("4")
	assert.False(t, h.ctrl.CanSubmit())
	snap = h.ctrl.Submit()
	assert.Equal(t, model.PhaseInput, snap.Phase)

	snap = h.ctrl.ChangeInput("42999")
	assert.Equal(t, "42", snap.Input)
	assert.True(t, h.ctrl.CanSubmit())
}

func TestInputIgnoredOutsideInputPhase(t *testing.T) {
	h := newHarness(t, "5")
	h.ctrl.Start()
	snap := h.ctrl.ChangeInput("5")
	assert.Empty(t, snap.Input)
	assert.Equal(t, model.PhaseShow, snap.Phase)
}

func TestBestStreakNeverDecreases(t *testing.T) {
	h := newHarness(t)
	h.store.values[BestStreakKey] = 5
	h.ctrl = NewController(Deps{
		Clock:  h.clock,
		Gen:    &scriptedGen{queue: []string{"3"}},
		Store:  h.store,
		Notify: func(s Snapshot) { h.events <- s },
	})
	t.Cleanup(h.ctrl.Close)
	require.Equal(t, 5, h.ctrl.Snapshot().Best)

	h.ctrl.Start()
	h.reveal(t)
	h.ctrl.ChangeInput("3")
	snap := h.ctrl.Submit()
	assert.True(t, snap.Outcome.Success)
	assert.Equal(t, 5, snap.Best)
	assert.Equal(t, 0, h.store.sets)
}

func TestNegativeStoredBestReadsAsZero(t *testing.T) {
	st := newMemStore()
	st.values[BestStreakKey] = -4
	c := NewController(Deps{Clock: clockwork.NewFakeClock(), Gen: &scriptedGen{}, Store: st})
	assert.Equal(t, 0, c.Snapshot().Best)
}

func TestStoreErrorsAreNotFatal(t *testing.T) {
	h := newHarness(t, "8")
	h.store.err = errors.New("disk full")

	h.ctrl.Start()
	h.reveal(t)
	h.ctrl.ChangeInput("8")
	snap := h.ctrl.Submit()
	assert.True(t, snap.Outcome.Success)
	assert.Equal(t, 1, snap.Best)
}

func TestRestartCancelsPreviousTimers(t *testing.T) {
	h := newHarness(t, "1", "2")

	h.ctrl.Start()
	h.ctrl.Start()

	oneShot, periodic := h.ctrl.pendingTasks()
	assert.Equal(t, 1, oneShot)
	assert.Equal(t, 1, periodic)
	h.waitTimers(t, 2)

	h.clock.Advance(1200 * time.Millisecond)
	snap := h.waitFor(t, func(s Snapshot) bool { return s.Phase == model.PhaseInput })
	assert.Equal(t, model.PhaseInput, snap.Phase)

	oneShot, periodic = h.ctrl.pendingTasks()
	assert.Equal(t, 0, oneShot)
	assert.Equal(t, 0, periodic)

	h.ctrl.ChangeInput("2")
	snap = h.ctrl.Submit()
	assert.True(t, snap.Outcome.Success, "second round's target must be the one scored")
}

func TestNextStartsRoundAtCurrentLevel(t *testing.T) {
	h := newHarness(t, "9", "12")

	h.ctrl.Start()
	h.reveal(t)
	h.ctrl.ChangeInput("9")
	h.ctrl.Submit()

	snap := h.ctrl.Next()
	require.Equal(t, model.PhaseShow, snap.Phase)
	assert.Equal(t, 2, snap.Level)
	assert.Equal(t, "12", snap.Target)
	assert.Empty(t, snap.Input)
	assert.Nil(t, snap.Outcome)
	assert.Equal(t, 2, snap.Countdown)

	// Next is only actionable from the result phase.
	again := h.ctrl.Next()
	assert.Equal(t, "12", again.Target)
}

func TestMismatchCountIsPluralized(t *testing.T) {
	h := newHarness(t, "123")
	h.ctrl.level = 3

	h.ctrl.Start()
	h.reveal(t)
	h.ctrl.ChangeInput("456")
	snap := h.ctrl.Submit()
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, "Wrong, 3 digits off. The number was 123.", snap.Outcome.Message)
}

func TestStaleTimerFiresAreDropped(t *testing.T) {
	h := newHarness(t, "1", "2")
	h.ctrl.Start()
	h.ctrl.mu.Lock()
	old := h.ctrl.round
	h.ctrl.mu.Unlock()

	before := h.ctrl.Start()
	require.Equal(t, "2", before.Target)

	h.ctrl.onReveal(old)
	h.ctrl.onTick(old)

	after := h.ctrl.Snapshot()
	assert.Equal(t, model.PhaseShow, after.Phase)
	assert.Equal(t, before.Countdown, after.Countdown)
	assert.Equal(t, "2", after.Target)
	select {
	case snap := <-h.events:
		t.Fatalf("stale timer emitted a snapshot: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNilGeneratorUsesDefault(t *testing.T) {
	ctrl := NewController(Deps{Clock: clockwork.NewFakeClock()})
	t.Cleanup(ctrl.Close)

	snap := ctrl.Start()
	require.Equal(t, model.PhaseShow, snap.Phase)
	require.Len(t, snap.Target, 1)
	assert.True(t, snap.Target[0] >= '0' && snap.Target[0] <= '9')
}

func TestCountdownFloorsAtZero(t *testing.T) {
	h := newHarness(t, "0000000000")
	h.ctrl.level = 10

	snap := h.ctrl.Start()
	assert.Equal(t, 6, snap.Countdown)
	for want := 5; want >= 1; want-- {
		h.waitTimers(t, 2)
		h.clock.Advance(time.Second)
		w := want
		snap = h.waitFor(t, func(s Snapshot) bool { return s.Countdown == w })
		assert.Equal(t, model.PhaseShow, snap.Phase)
	}
	h.waitTimers(t, 2)
	h.clock.Advance(time.Second)
	snap = h.waitFor(t, func(s Snapshot) bool { return s.Phase == model.PhaseInput })
	assert.Equal(t, 0, snap.Countdown)
}

func TestCloseCancelsTimers(t *testing.T) {
	h := newHarness(t, "4")
	h.ctrl.Start()
	h.ctrl.Close()

	oneShot, periodic := h.ctrl.pendingTasks()
	assert.Zero(t, oneShot+periodic)

	h.clock.Advance(5 * time.Second)
	select {
	case snap := <-h.events:
		t.Fatalf("unexpected timer event after close: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, model.PhaseShow, h.ctrl.Snapshot().Phase)
	assert.Equal(t, model.PhaseShow, h.ctrl.Start().Phase)
}

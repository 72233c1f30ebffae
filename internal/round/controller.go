// Package round drives a memory round: show a digit sequence, hide it, score the answer.
package round

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/recall/internal/format"
	"github.com/verte-zerg/recall/internal/generator"
	"github.com/verte-zerg/recall/internal/model"
)

// BestStreakKey is the store key holding the best level reached.
const BestStreakKey = "best_streak"

const tickInterval = time.Second

// IntStore persists integers by key.
type IntStore interface {
	GetInt(ctx context.Context, key string) (int, bool, error)
	SetInt(ctx context.Context, key string, value int) error
}

// Recorder keeps a history of finished rounds.
type Recorder interface {
	InsertRound(ctx context.Context, rec model.RoundRecord) (int64, error)
}

// Sequencer produces target sequences.
type Sequencer interface {
	Digits(n int) string
}

// Deps wires a Controller to its collaborators. Every field is optional; a nil
// Clock means the real clock and a nil Gen means an unseeded generator.
type Deps struct {
	Clock     clockwork.Clock
	Gen       Sequencer
	Store     IntStore
	Recorder  Recorder
	Timing    Timing
	Chunk     int
	SessionID string
	Logger    *zerolog.Logger
	// Notify is called after a timer-driven change, outside the controller lock.
	Notify func(Snapshot)
}

// Outcome describes how a submitted round ended.
type Outcome struct {
	Success bool
	Level   int
	Target  string
	Input   string
	Marks   []format.Mark
	Message string
}

// Snapshot is a copy of the controller state for presentation.
type Snapshot struct {
	Phase           model.Phase
	Level           int
	Target          string
	Countdown       int
	Input           string
	Best            int
	LastRoundFailed bool
	Outcome         *Outcome
}

// Controller owns the phase machine and the round timers.
type Controller struct {
	mu sync.Mutex

	clock     clockwork.Clock
	gen       Sequencer
	store     IntStore
	recorder  Recorder
	timing    Timing
	chunk     int
	sessionID string
	log       *zerolog.Logger
	notify    func(Snapshot)

	phase     model.Phase
	level     int
	target    string
	input     []rune
	failed    bool
	best      int
	countdown int
	outcome   *Outcome
	deadline  time.Time
	shownFor  time.Duration

	round  uint64
	reveal *Task
	tick   *Task
	closed bool
}

// NewController builds a controller in the ready phase and loads BestStreak.
func NewController(deps Deps) *Controller {
	c := &Controller{
		clock:     deps.Clock,
		gen:       deps.Gen,
		store:     deps.Store,
		recorder:  deps.Recorder,
		timing:    deps.Timing,
		chunk:     deps.Chunk,
		sessionID: deps.SessionID,
		log:       deps.Logger,
		notify:    deps.Notify,
		phase:     model.PhaseReady,
		level:     1,
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.gen == nil {
		c.gen = generator.New()
	}
	if c.timing == (Timing{}) {
		c.timing = DefaultTiming
	}
	if c.chunk <= 0 {
		c.chunk = 3
	}
	if c.log == nil {
		nop := zerolog.Nop()
		c.log = &nop
	}
	c.best = c.loadBest()
	return c
}

func (c *Controller) loadBest() int {
	if c.store == nil {
		return 0
	}
	v, ok, err := c.store.GetInt(context.Background(), BestStreakKey)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to load best streak")
		return 0
	}
	if !ok || v < 0 {
		return 0
	}
	return v
}

// Start begins a round at the current level, canceling any round in flight.
func (c *Controller) Start() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startRoundLocked()
	return c.snapshotLocked()
}

// Next starts the following round once a result is shown.
func (c *Controller) Next() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == model.PhaseResult {
		c.startRoundLocked()
	}
	return c.snapshotLocked()
}

// ChangeInput replaces the typed answer, truncated to the target length.
func (c *Controller) ChangeInput(text string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != model.PhaseInput {
		return c.snapshotLocked()
	}
	runes := []rune(text)
	if limit := len([]rune(c.target)); len(runes) > limit {
		runes = runes[:limit]
	}
	c.input = runes
	return c.snapshotLocked()
}

// CanSubmit reports whether Submit would score the round.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Controller) canSubmitLocked() bool {
	return c.phase == model.PhaseInput && len(c.input) == len([]rune(c.target))
}

// Submit scores the typed answer. It does nothing unless the answer is complete.
func (c *Controller) Submit() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canSubmitLocked() {
		return c.snapshotLocked()
	}

	played := c.level
	input := string(c.input)
	out := &Outcome{
		Level:  played,
		Target: c.target,
		Input:  input,
		Marks:  format.Mismatches(input, c.target),
	}
	if input == c.target {
		out.Success = true
		c.level++
		c.failed = false
		if played > c.best {
			c.best = played
			c.saveBestLocked()
		}
		out.Message = fmt.Sprintf("Correct! Level %d next.", c.level)
	} else {
		c.level = 1
		c.failed = true
		out.Message = fmt.Sprintf("Wrong, %s off. The number was %s.",
			digitCount(format.CountMismatches(out.Marks)), format.ChunkDigits(c.target, c.chunk))
	}
	c.outcome = out
	c.phase = model.PhaseResult

	c.log.Info().
		Int("level", played).
		Bool("success", out.Success).
		Str("answer", format.MarkText(out.Marks)).
		Int("best", c.best).
		Msg("round finished")
	c.recordLocked(out)
	return c.snapshotLocked()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels pending timers. Further Start and Next calls are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTasksLocked()
	c.closed = true
}

func (c *Controller) startRoundLocked() {
	if c.closed {
		return
	}
	c.cancelTasksLocked()
	c.round++
	round := c.round

	c.target = c.gen.Digits(c.level)
	c.input = nil
	c.outcome = nil
	c.phase = model.PhaseShow

	d := c.timing.Duration(c.level)
	c.deadline = c.clock.Now().Add(d)
	c.shownFor = d
	c.countdown = Countdown(d)

	c.reveal = After(c.clock, d, func() { c.onReveal(round) })
	c.tick = Every(c.clock, tickInterval, func() { c.onTick(round) })

	c.log.Debug().
		Uint64("round", round).
		Int("level", c.level).
		Dur("show", d).
		Msg("round started")
}

func (c *Controller) cancelTasksLocked() {
	c.reveal.Cancel()
	c.tick.Cancel()
	c.reveal = nil
	c.tick = nil
}

func (c *Controller) onTick(round uint64) {
	c.mu.Lock()
	if round != c.round || c.phase != model.PhaseShow {
		c.mu.Unlock()
		return
	}
	next := Countdown(c.deadline.Sub(c.clock.Now()))
	if next > c.countdown {
		next = c.countdown
	}
	c.countdown = next
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Controller) onReveal(round uint64) {
	c.mu.Lock()
	if round != c.round || c.phase != model.PhaseShow {
		c.mu.Unlock()
		return
	}
	c.tick.Cancel()
	c.tick = nil
	c.reveal = nil
	c.countdown = 0
	c.phase = model.PhaseInput
	c.log.Debug().Uint64("round", round).Msg("target hidden")
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Controller) emit(snap Snapshot) {
	if c.notify != nil {
		c.notify(snap)
	}
}

func (c *Controller) saveBestLocked() {
	if c.store == nil {
		return
	}
	if err := c.store.SetInt(context.Background(), BestStreakKey, c.best); err != nil {
		c.log.Error().Err(err).Int("best", c.best).Msg("failed to save best streak")
	}
}

func (c *Controller) recordLocked(out *Outcome) {
	if c.recorder == nil {
		return
	}
	rec := model.RoundRecord{
		SessionID: c.sessionID,
		Level:     out.Level,
		Target:    out.Target,
		Input:     out.Input,
		Success:   out.Success,
		ShownMs:   c.shownFor.Milliseconds(),
		PlayedAt:  c.clock.Now(),
	}
	if _, err := c.recorder.InsertRound(context.Background(), rec); err != nil {
		c.log.Error().Err(err).Msg("failed to record round")
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:           c.phase,
		Level:           c.level,
		Countdown:       c.countdown,
		Input:           string(c.input),
		Best:            c.best,
		LastRoundFailed: c.failed,
	}
	if c.phase == model.PhaseShow {
		snap.Target = c.target
	}
	if c.outcome != nil {
		out := *c.outcome
		out.Marks = append([]format.Mark(nil), c.outcome.Marks...)
		snap.Outcome = &out
	}
	return snap
}

func (c *Controller) pendingTasks() (oneShot, periodic int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range []*Task{c.reveal, c.tick} {
		if !t.Pending() {
			continue
		}
		if t.Periodic() {
			periodic++
		} else {
			oneShot++
		}
	}
	return oneShot, periodic
}

func digitCount(n int) string {
	if n == 1 {
		return "1 digit"
	}
	return fmt.Sprintf("%d digits", n)
}

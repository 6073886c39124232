// Package playback drives a slide sequence against a tick clock: it counts
// down each slide, fades it out near the end and stops after the last one.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/slidereel/internal/clock"
	"github.com/ivlev/slidereel/internal/notify"
	"github.com/ivlev/slidereel/internal/slide"
)

// ErrClosed is returned by every call on a closed Controller.
var ErrClosed = errors.New("playback session closed")

// DefaultFadeWindow is how long a slide takes to fade out before the next one.
const DefaultFadeWindow = 500 * time.Millisecond

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhasePlaying          Phase = "playing"
	PhasePaused           Phase = "paused"
	PhaseStopped          Phase = "stopped"
	PhaseTransitioningOut Phase = "transitioning_out"
)

// Source is the sequence being played. A slide.Sequence plays a fixed
// snapshot; a live store.Store reflects edits made during playback.
type Source interface {
	Len() int
	At(i int) (slide.Slide, bool)
}

// Outgoing describes a slide that was skipped away from manually and is
// still fading out on top of the current one.
type Outgoing struct {
	Index     int
	Remaining time.Duration
	Window    time.Duration
	Opacity   float64
}

// State is a consistent view of a session.
type State struct {
	Phase     Phase
	Index     int
	Len       int
	Remaining time.Duration
	Opacity   float64
	Progress  float64
	Outgoing  *Outgoing
}

// Visible reports whether a slide is on screen.
func (s State) Visible() bool {
	switch s.Phase {
	case PhasePlaying, PhasePaused, PhaseTransitioningOut:
		return s.Len > 0
	}
	return false
}

type Options struct {
	// FadeWindow defaults to DefaultFadeWindow. It is clamped to each
	// slide's own length.
	FadeWindow time.Duration
	Notifier   notify.Notifier
	Logger     *slog.Logger

	// OnChange receives the state after every transition and tick. It is
	// called without internal locks held.
	OnChange func(State)
}

// Controller is one playback session.
type Controller struct {
	src        Source
	clock      clock.Clock
	fadeWindow time.Duration
	notifier   notify.Notifier
	logger     *slog.Logger
	onChange   func(State)

	mu        sync.Mutex
	phase     Phase
	index     int
	remaining time.Duration
	fade      time.Duration
	outgoing  *Outgoing
	gen       uint64 // bumped on every (un)subscribe; stale ticks are dropped
	closed    bool
}

func New(src Source, clk clock.Clock, opts Options) *Controller {
	if opts.FadeWindow <= 0 {
		opts.FadeWindow = DefaultFadeWindow
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Controller{
		src:        src,
		clock:      clk,
		fadeWindow: opts.FadeWindow,
		notifier:   opts.Notifier,
		logger:     opts.Logger.With("component", "playback"),
		onChange:   opts.OnChange,
		phase:      PhaseIdle,
	}
	c.reset()
	return c
}

// Start begins playback from the first slide. Calling it again restarts.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.src.Len() == 0 {
		c.mu.Unlock()
		return slide.ErrEmptySequence
	}
	c.reset()
	c.setRunningPhase()
	c.subscribe()
	st := c.stateLocked()
	c.mu.Unlock()

	c.logger.Debug("playback started", "slides", st.Len)
	c.emit(st, false)
	return nil
}

// Pause freezes the countdown. It does nothing unless the session is playing.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.running() || c.src.Len() == 0 {
		c.mu.Unlock()
		return nil
	}
	c.unsubscribe()
	c.phase = PhasePaused
	st := c.stateLocked()
	c.mu.Unlock()

	c.logger.Debug("playback paused", "index", st.Index, "remaining", st.Remaining)
	c.emit(st, false)
	return nil
}

// Resume continues a paused session with the remaining time it had.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase != PhasePaused || c.src.Len() == 0 {
		c.mu.Unlock()
		return nil
	}
	c.setRunningPhase()
	c.subscribe()
	st := c.stateLocked()
	c.mu.Unlock()

	c.logger.Debug("playback resumed", "index", st.Index, "remaining", st.Remaining)
	c.emit(st, false)
	return nil
}

// TogglePause pauses a playing session and resumes a paused one.
func (c *Controller) TogglePause() error {
	c.mu.Lock()
	paused := c.phase == PhasePaused
	c.mu.Unlock()

	if paused {
		return c.Resume()
	}
	return c.Pause()
}

// Stop halts playback and rewinds to the first slide.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.unsubscribe()
	c.reset()
	c.phase = PhaseStopped
	st := c.stateLocked()
	c.mu.Unlock()

	c.emit(st, false)
	return nil
}

// Advance skips to the next slide. On the last slide it finishes the
// session exactly like running out of time does. It is a no-op while idle
// or stopped.
func (c *Controller) Advance() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.src.Len() == 0 {
		c.mu.Unlock()
		return slide.ErrEmptySequence
	}
	if c.phase == PhaseIdle || c.phase == PhaseStopped {
		c.mu.Unlock()
		return nil
	}
	finished := c.advanceLocked(true)
	st := c.stateLocked()
	c.mu.Unlock()

	c.logger.Debug("slide skipped", "index", st.Index, "finished", finished)
	c.emit(st, finished)
	return nil
}

// Seek jumps to slide i with its full duration, keeping the current phase.
// Idle and stopped sessions stay where they are.
func (c *Controller) Seek(i int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	n := c.src.Len()
	if i < 0 || i >= n {
		c.mu.Unlock()
		return fmt.Errorf("%w: seek to %d with %d slides", slide.ErrIndexOutOfRange, i, n)
	}
	if c.phase == PhaseIdle || c.phase == PhaseStopped {
		c.mu.Unlock()
		return nil
	}
	c.moveTo(i)
	c.outgoing = nil
	if c.phase != PhasePaused {
		c.setRunningPhase()
	}
	st := c.stateLocked()
	c.mu.Unlock()

	c.emit(st, false)
	return nil
}

// Close ends the session and releases the clock. Later calls fail with
// ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.unsubscribe()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// CurrentIndex returns the index of the slide on screen.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Remaining returns the time left on the current slide.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// ProgressFraction is index/len, or 0 for an empty sequence.
func (c *Controller) ProgressFraction() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return progress(c.index, c.src.Len())
}

func (c *Controller) onTick(gen uint64, dt time.Duration) {
	c.mu.Lock()
	if c.closed || gen != c.gen || !c.running() {
		c.mu.Unlock()
		return
	}

	// The live source may have shrunk under us.
	if c.index >= c.src.Len() {
		c.unsubscribe()
		c.reset()
		c.phase = PhaseStopped
		st := c.stateLocked()
		c.mu.Unlock()

		c.logger.Warn("sequence shrank during playback, stopping")
		c.emit(st, false)
		return
	}

	if c.outgoing != nil {
		c.outgoing.Remaining -= dt
		if c.outgoing.Remaining <= 0 {
			c.outgoing = nil
		}
	}

	c.remaining -= dt
	finished := false
	for c.remaining <= 0 {
		carry := -c.remaining
		if c.advanceLocked(false) {
			finished = true
			break
		}
		c.remaining -= carry
	}
	if !finished {
		c.setRunningPhase()
	}
	st := c.stateLocked()
	c.mu.Unlock()

	if finished {
		c.logger.Debug("playback finished")
	}
	c.emit(st, finished)
}

// advanceLocked moves to the next slide, or stops the session when the
// current slide is the last one. It reports whether the session finished.
func (c *Controller) advanceLocked(manual bool) bool {
	if c.index >= c.src.Len()-1 {
		c.unsubscribe()
		c.reset()
		c.phase = PhaseStopped
		return true
	}

	var out *Outgoing
	if manual && c.fade > 0 {
		left := c.fade
		if c.remaining < c.fade {
			left = c.remaining
		}
		if left > 0 {
			out = &Outgoing{Index: c.index, Remaining: left, Window: c.fade}
		}
	}

	c.moveTo(c.index + 1)
	c.outgoing = out
	if c.phase != PhasePaused {
		c.setRunningPhase()
	}
	return false
}

func (c *Controller) moveTo(i int) {
	c.index = i
	c.remaining = 0
	c.fade = 0
	if s, ok := c.src.At(i); ok {
		c.remaining = s.Length()
		c.fade = c.fadeFor(s)
	}
}

func (c *Controller) reset() {
	c.moveTo(0)
	c.outgoing = nil
}

func (c *Controller) fadeFor(s slide.Slide) time.Duration {
	fade := c.fadeWindow
	if l := s.Length(); l < fade {
		fade = l
	}
	if fade < 0 {
		return 0
	}
	return fade
}

func (c *Controller) running() bool {
	return c.phase == PhasePlaying || c.phase == PhaseTransitioningOut
}

func (c *Controller) setRunningPhase() {
	if c.fade > 0 && c.remaining <= c.fade {
		c.phase = PhaseTransitioningOut
		return
	}
	c.phase = PhasePlaying
}

func (c *Controller) subscribe() {
	c.gen++
	gen := c.gen
	c.clock.Subscribe(func(dt time.Duration) {
		c.onTick(gen, dt)
	})
}

func (c *Controller) unsubscribe() {
	c.gen++
	c.clock.Unsubscribe()
}

func (c *Controller) stateLocked() State {
	n := c.src.Len()
	st := State{
		Phase:     c.phase,
		Index:     c.index,
		Len:       n,
		Remaining: c.remaining,
		Opacity:   1,
		Progress:  progress(c.index, n),
	}
	if c.phase == PhaseTransitioningOut || c.phase == PhasePaused {
		st.Opacity = fadeOpacity(c.remaining, c.fade)
	}
	if c.outgoing != nil {
		out := *c.outgoing
		out.Opacity = fadeOpacity(out.Remaining, out.Window)
		st.Outgoing = &out
	}
	return st
}

func (c *Controller) emit(st State, finished bool) {
	if finished {
		c.notifier.PlaybackFinished()
	}
	if c.onChange != nil {
		c.onChange(st)
	}
}

func progress(index, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(index) / float64(n)
}

// Package capture turns key presses and button clicks into ledger deltas at
// the current video position.
package capture

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/player"
	"github.com/okian/clicker/pkg/logger"
	"github.com/okian/clicker/pkg/metrics"
)

// KeyEvent is a key-down event as reported by the page.
type KeyEvent struct {
	Key       string `json:"key"`
	Repeat    bool   `json:"repeat"`
	TargetTag string `json:"targetTag,omitempty"`
	Editable  bool   `json:"editable,omitempty"`
}

// FromTextInput reports whether the event targets an element that takes
// typing, so it must not be captured.
func (e KeyEvent) FromTextInput() bool {
	switch strings.ToLower(e.TargetTag) {
	case "input", "textarea", "select":
		return true
	}
	return e.Editable
}

// Gate is the state that decides whether clicks are accepted.
type Gate struct {
	Mode     model.Mode
	Ready    bool
	Duration float64
	Player   player.Player
}

// Reason explains why a gate is closed, or is empty when it is open.
func (g Gate) Reason() string {
	switch {
	case g.Mode != model.ModeScoring:
		return "not_scoring"
	case !g.Ready:
		return "not_ready"
	case g.Duration <= 0:
		return "no_duration"
	case g.Player == nil:
		return "no_player"
	}
	return ""
}

// Open reports whether clicks are accepted.
func (g Gate) Open() bool { return g.Reason() == "" }

// Recorder applies a delta to the current ledger.
type Recorder interface {
	RecordDelta(ts float64, delta int)
}

// Capturer applies gated clicks to a Recorder and flashes them.
type Capturer struct {
	rec     Recorder
	flasher player.Flasher
	log     logger.Logger
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Capturer) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Capturer.
func New(rec Recorder, f player.Flasher, opts ...Option) *Capturer {
	c := &Capturer{rec: rec, flasher: f, log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleClick records delta at the player's current time when g is open and
// reports whether it did.
func (c *Capturer) HandleClick(ctx context.Context, g Gate, delta int) bool {
	if reason := g.Reason(); reason != "" {
		metrics.RecordClickRejected(reason)
		return false
	}
	ts := g.Player.CurrentTime()
	c.log.Debug(ctx, "click",
		logger.Int("delta", delta), logger.Float64("ts", ts), logger.Float64("duration", g.Duration))
	c.rec.RecordDelta(ts, delta)
	metrics.RecordClick(model.SignOf(delta).String())
	player.Flash(ctx, c.flasher, c.log, "capture", delta)
	return true
}

// Outcome is the result of a key event.
type Outcome struct {
	// Handled means the key matched a binding; the page should suppress its
	// default action and stop propagation.
	Handled  bool
	Recorded bool
}

type armed struct {
	gate     Gate
	bindings Bindings
}

// Listener is the key listener that is installed only while scoring. It is
// re-armed with fresh state on every parameter change, so a key is always
// judged against the current mode and bindings.
type Listener struct {
	capt  *Capturer
	state atomic.Pointer[armed]
}

// NewListener returns a disarmed listener.
func NewListener(c *Capturer) *Listener {
	return &Listener{capt: c}
}

// Arm installs the listener for g and b, replacing any earlier state. Outside
// scoring mode it disarms instead.
func (l *Listener) Arm(g Gate, b Bindings) {
	if g.Mode != model.ModeScoring {
		l.Disarm()
		return
	}
	l.state.Store(&armed{gate: g, bindings: b})
}

// Disarm removes the listener.
func (l *Listener) Disarm() { l.state.Store(nil) }

// Armed reports whether the listener is installed.
func (l *Listener) Armed() bool { return l.state.Load() != nil }

// HandleKey processes a key-down event.
func (l *Listener) HandleKey(ctx context.Context, ev KeyEvent) Outcome {
	st := l.state.Load()
	if st == nil || !st.gate.Open() || ev.FromTextInput() {
		return Outcome{}
	}
	delta, ok := st.bindings.DeltaFor(ev.Key)
	if !ok {
		return Outcome{}
	}
	if ev.Repeat {
		metrics.RecordClickRejected("repeat")
		return Outcome{Handled: true}
	}
	return Outcome{Handled: true, Recorded: l.capt.HandleClick(ctx, st.gate, delta)}
}

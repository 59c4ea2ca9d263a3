// Package player defines the playback-control contract the scoring core
// drives, plus a simulated player with a manually advanced clock.
package player

import (
	"context"
	"sync"

	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/pkg/logger"
	"github.com/okian/clicker/pkg/metrics"
)

// Player is the minimal video playback handle.
type Player interface {
	CurrentTime() float64
	Duration() float64
	SeekTo(seconds float64)
	Play()
	Pause()
	PlayState() model.PlayState
}

// Flasher receives the visual feedback for a scored click.
type Flasher interface {
	Flash(sign model.Sign)
}

// FlasherFunc adapts a function to Flasher.
type FlasherFunc func(sign model.Sign)

// Flash calls f(sign).
func (f FlasherFunc) Flash(sign model.Sign) { f(sign) }

// Flash fires f for the sign of delta. Deltas other than +1 and -1 have no
// flash and are logged instead.
func Flash(ctx context.Context, f Flasher, log logger.Logger, origin string, delta int) {
	sign := model.SignOf(delta)
	if sign == model.SignNone {
		if log == nil {
			log = logger.Nop()
		}
		log.Debug(ctx, "no flash for delta", logger.String("origin", origin), logger.Int("delta", delta))
		return
	}
	metrics.RecordFlash(origin, sign.String())
	if f != nil {
		f.Flash(sign)
	}
}

// Sim is a Player whose clock only moves when told to. It is safe for
// concurrent use.
type Sim struct {
	mu       sync.Mutex
	now      float64
	duration float64
	state    model.PlayState
	seeks    []float64
}

// NewSim returns a cued simulated player for a video of duration seconds.
func NewSim(duration float64) *Sim {
	return &Sim{duration: duration, state: model.PlayStateCued}
}

func (s *Sim) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Sim) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Sim) SeekTo(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = max(0, min(seconds, s.duration))
	s.seeks = append(s.seeks, s.now)
}

func (s *Sim) Play() { s.SetState(model.PlayStatePlaying) }

func (s *Sim) Pause() { s.SetState(model.PlayStatePaused) }

func (s *Sim) PlayState() model.PlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState forces the discrete player state, e.g. to simulate buffering.
func (s *Sim) SetState(state model.PlayState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Set moves the clock to t without recording a seek. The clock may move
// backwards to simulate out-of-order observations.
func (s *Sim) Set(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t
}

// Advance moves the clock forward by d seconds and reports the new time.
func (s *Sim) Advance(d float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now += d
	if s.now >= s.duration {
		s.now = s.duration
		s.state = model.PlayStateEnded
	}
	return s.now
}

// Seeks returns the positions passed to SeekTo, after clamping.
func (s *Sim) Seeks() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.seeks))
	copy(out, s.seeks)
	return out
}

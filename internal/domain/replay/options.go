package replay

import (
	"time"

	"github.com/okian/clicker/pkg/logger"
)

const (
	// DefaultInterval is the polling period of the replay timer.
	DefaultInterval = 10 * time.Millisecond
	// DefaultThreshold is the backward clock movement, in seconds, treated as
	// timer jitter rather than a seek. Forward jumps beyond it are seeks.
	DefaultThreshold = 0.05
	// DefaultPreRoll is how many seconds before the first click replay starts.
	DefaultPreRoll = 5.0
)

type settings struct {
	interval  time.Duration
	threshold float64
	preRoll   float64
	stepper   *Stepper
	onCursor  func(int)
	log       logger.Logger
}

func defaults() settings {
	return settings{
		interval:  DefaultInterval,
		threshold: DefaultThreshold,
		preRoll:   DefaultPreRoll,
		log:       logger.Nop(),
	}
}

// Option configures a Scheduler or Runner.
type Option func(*settings)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithThreshold sets the jitter/seek threshold in seconds.
func WithThreshold(seconds float64) Option {
	return func(s *settings) {
		if seconds > 0 {
			s.threshold = seconds
		}
	}
}

// WithPreRoll sets how far before the first click playback is seeked.
func WithPreRoll(seconds float64) Option {
	return func(s *settings) {
		if seconds >= 0 {
			s.preRoll = seconds
		}
	}
}

// WithStepper drives the Runner from st instead of a wall-clock ticker.
func WithStepper(st *Stepper) Option {
	return func(s *settings) {
		s.stepper = st
	}
}

// WithCursor registers a callback receiving every published cursor value.
// It runs on the replay goroutine and must not call Start or Stop.
func WithCursor(fn func(int)) Option {
	return func(s *settings) {
		s.onCursor = fn
	}
}

// WithLogger sets the logger used for the per-tick trace.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// Package replay walks a frozen ledger snapshot in step with video playback,
// firing one flash per recorded click.
//
// Scheduler holds the pure per-tick state machine. Runner wraps it with a
// timer goroutine and the entry and exit actions against a player.
package replay

import (
	"context"
	"math"

	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/pkg/logger"
	"github.com/okian/clicker/pkg/metrics"
)

// NoCursor marks a cursor that is unresolved or past the last entry.
const NoCursor = -1

// Scheduler is the replay state machine for one ledger snapshot. It is not
// safe for concurrent use; Runner serialises all calls on one goroutine.
type Scheduler struct {
	snap     *ledger.Ledger
	last     float64
	prev     float64
	cursor   int
	shown    int
	cfg      settings
	onFlash  func(model.Entry)
	onCursor func(int)
}

// NewScheduler starts a scheduler at playback position start with the cursor
// at the first entry.
func NewScheduler(snap *ledger.Ledger, start float64, onFlash func(model.Entry), opts ...Option) *Scheduler {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	last, ok := snap.Last()
	if !ok {
		last = math.Inf(-1)
	}
	if onFlash == nil {
		onFlash = func(model.Entry) {}
	}
	s := &Scheduler{
		snap:     snap,
		last:     last,
		prev:     start,
		cfg:      cfg,
		onFlash:  onFlash,
		onCursor: cfg.onCursor,
		shown:    math.MinInt,
	}
	s.publish(0)
	return s
}

// Cursor returns the last published cursor: the number of entries already
// played, or NoCursor when unresolved or exhausted.
func (s *Scheduler) Cursor() int { return s.shown }

// Tick advances the state machine with the player state and position
// observed now.
func (s *Scheduler) Tick(state model.PlayState, cur float64) {
	ctx := context.Background()
	metrics.RecordReplayTick()

	if state != model.PlayStatePlaying {
		return
	}

	if cur < s.prev && s.prev-cur < s.cfg.threshold {
		s.cfg.log.Debug(ctx, "out-of-order rewind ignored",
			logger.Float64("prev", s.prev), logger.Float64("cur", cur))
		return
	}

	if cur < s.prev || s.prev+s.cfg.threshold < cur {
		s.cfg.log.Debug(ctx, "seek detected",
			logger.Float64("prev", s.prev), logger.Float64("cur", cur),
			logger.Bool("rewind", cur < s.prev))
		metrics.RecordReplayReset("seek")
		s.prev = cur
		s.cursor = NoCursor
		return
	}

	if s.prev > s.last {
		if s.shown != NoCursor {
			metrics.RecordReplayReset("exhausted")
		}
		s.prev = cur
		s.publish(NoCursor)
		return
	}

	if s.cursor == NoCursor {
		s.publish(s.snap.FirstAfter(s.prev))
		if s.cursor == NoCursor {
			s.prev = cur
			return
		}
	}

	for s.cursor < s.snap.Len() {
		e := s.snap.At(s.cursor)
		if cur < e.Timestamp {
			break
		}
		s.cfg.log.Debug(ctx, "replay click",
			logger.Float64("ts", e.Timestamp), logger.Int("delta", e.Delta))
		s.onFlash(e)
		s.publish(s.cursor + 1)
	}

	s.prev = cur
}

// publish moves the cursor and reports it when the visible value changes.
func (s *Scheduler) publish(c int) {
	s.cursor = c
	if c == s.shown {
		return
	}
	s.shown = c
	if s.onCursor != nil {
		s.onCursor(c)
	}
}

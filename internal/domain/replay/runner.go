package replay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/player"
	"github.com/okian/clicker/pkg/logger"
	"github.com/okian/clicker/pkg/metrics"
)

// ErrEmptyLedger is returned when replay is started without any entries.
var ErrEmptyLedger = errors.New("replay: empty ledger")

// ErrNotReady is returned when the player has no usable duration yet.
var ErrNotReady = errors.New("replay: player not ready")

// Runner owns the replay timer for one player. Start always stops a running
// replay first, so two schedulers never fire flashes at the same time.
type Runner struct {
	player  player.Player
	flasher player.Flasher
	opts    []Option
	cfg     settings

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	cursor atomic.Int64
}

// NewRunner creates a stopped runner.
func NewRunner(p player.Player, f player.Flasher, opts ...Option) *Runner {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &Runner{player: p, flasher: f, opts: opts, cfg: cfg}
	r.cursor.Store(NoCursor)
	return r
}

// Start performs the entry action for snap and launches the timer: seek to
// the pre-roll before the first click, start playback, and set the cursor to
// the first entry.
func (r *Runner) Start(ctx context.Context, snap *ledger.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	first, ok := snap.First()
	if !ok {
		return ErrEmptyLedger
	}
	if r.player.Duration() <= 0 {
		return ErrNotReady
	}

	r.player.SeekTo(max(first-r.cfg.preRoll, 0))
	r.player.Play()

	opts := append([]Option{}, r.opts...)
	opts = append(opts, WithCursor(r.setCursor))
	sched := NewScheduler(snap, r.player.CurrentTime(), r.flash, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	var (
		ticker *time.Ticker
		ticks  <-chan time.Time
		steps  <-chan chan struct{}
	)
	if r.cfg.stepper != nil {
		steps = r.cfg.stepper.steps
	} else {
		ticker = time.NewTicker(r.cfg.interval)
		ticks = ticker.C
	}

	metrics.AddActiveReplays(1)
	r.cfg.log.Debug(ctx, "replay started",
		logger.Int("entries", snap.Len()), logger.Float64("first", first))

	go func() {
		defer close(done)
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticks:
				sched.Tick(r.player.PlayState(), r.player.CurrentTime())
			case ack := <-steps:
				sched.Tick(r.player.PlayState(), r.player.CurrentTime())
				close(ack)
			}
		}
	}()
	return nil
}

// Stop performs the exit action: stop the timer and wait for it, pause
// playback, and reset the cursor. Stopping a stopped runner is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Runner) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil

	r.player.Pause()
	r.setCursor(NoCursor)
	metrics.AddActiveReplays(-1)
	r.cfg.log.Debug(context.Background(), "replay stopped")
}

// Running reports whether a replay timer is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Cursor returns the last published cursor. Unlike Running it takes no lock
// and may be called from callbacks.
func (r *Runner) Cursor() int { return int(r.cursor.Load()) }

func (r *Runner) setCursor(c int) {
	if r.cursor.Swap(int64(c)) == int64(c) {
		return
	}
	if r.cfg.onCursor != nil {
		r.cfg.onCursor(c)
	}
}

func (r *Runner) flash(e model.Entry) {
	player.Flash(context.Background(), r.flasher, r.cfg.log, "replay", e.Delta)
}

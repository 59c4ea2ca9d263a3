package capture_test

import (
	"context"
	"sync"
	"testing"

	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/player"
	"github.com/smartystreets/goconvey/convey"
)

type ledgerRecorder struct {
	mu sync.Mutex
	l  *ledger.Ledger
}

func (r *ledgerRecorder) RecordDelta(ts float64, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.l = r.l.RecordDelta(ts, delta)
}

func setup() (*ledgerRecorder, *[]model.Sign, *capture.Capturer, *player.Sim) {
	rec := &ledgerRecorder{l: ledger.New()}
	var signs []model.Sign
	c := capture.New(rec, player.FlasherFunc(func(s model.Sign) { signs = append(signs, s) }))
	p := player.NewSim(120)
	p.Set(12.5)
	return rec, &signs, c, p
}

func TestHandleClick(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a ready player in scoring mode", t, func() {
		rec, signs, c, p := setup()
		gate := capture.Gate{Mode: model.ModeScoring, Ready: true, Duration: 120, Player: p}

		convey.Convey("When clicking positive", func() {
			ok := c.HandleClick(ctx, gate, 1)

			convey.Convey("Then the delta is recorded at the current time and flashed", func() {
				convey.So(ok, convey.ShouldBeTrue)
				d, found := rec.l.Get(12.5)
				convey.So(found, convey.ShouldBeTrue)
				convey.So(d, convey.ShouldEqual, 1)
				convey.So(*signs, convey.ShouldResemble, []model.Sign{model.SignPositive})
			})
		})

		convey.Convey("When clicking a non-unit delta", func() {
			c.HandleClick(ctx, gate, 2)

			convey.Convey("Then it is recorded without a flash", func() {
				convey.So(rec.l.Len(), convey.ShouldEqual, 1)
				convey.So(*signs, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the gate is closed", func() {
			closed := map[string]capture.Gate{
				"playback":    {Mode: model.ModePlayback, Ready: true, Duration: 120, Player: p},
				"not ready":   {Mode: model.ModeScoring, Ready: false, Duration: 120, Player: p},
				"no duration": {Mode: model.ModeScoring, Ready: true, Duration: 0, Player: p},
				"no player":   {Mode: model.ModeScoring, Ready: true, Duration: 120},
			}
			for _, g := range closed {
				convey.So(c.HandleClick(ctx, g, 1), convey.ShouldBeFalse)
			}

			convey.Convey("Then the ledger is unchanged and nothing flashes", func() {
				convey.So(rec.l.Len(), convey.ShouldEqual, 0)
				convey.So(*signs, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestListener(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given an armed listener with default bindings", t, func() {
		rec, _, c, p := setup()
		l := capture.NewListener(c)
		gate := capture.Gate{Mode: model.ModeScoring, Ready: true, Duration: 120, Player: p}
		l.Arm(gate, capture.DefaultBindings())

		convey.Convey("When the positive then negative keys are pressed", func() {
			o1 := l.HandleKey(ctx, capture.KeyEvent{Key: "1"})
			p.Set(13)
			o2 := l.HandleKey(ctx, capture.KeyEvent{Key: "0"})

			convey.Convey("Then both are handled and recorded", func() {
				convey.So(o1, convey.ShouldResemble, capture.Outcome{Handled: true, Recorded: true})
				convey.So(o2, convey.ShouldResemble, capture.Outcome{Handled: true, Recorded: true})
				convey.So(rec.l.Entries(), convey.ShouldResemble, []model.Entry{
					{Timestamp: 12.5, Delta: 1},
					{Timestamp: 13, Delta: -1},
				})
			})
		})

		convey.Convey("When a key is held down", func() {
			l.HandleKey(ctx, capture.KeyEvent{Key: "1"})
			o := l.HandleKey(ctx, capture.KeyEvent{Key: "1", Repeat: true})
			l.HandleKey(ctx, capture.KeyEvent{Key: "1", Repeat: true})

			convey.Convey("Then only the first press counts but repeats are still suppressed", func() {
				convey.So(o, convey.ShouldResemble, capture.Outcome{Handled: true})
				d, _ := rec.l.Get(12.5)
				convey.So(d, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When typing into a text field", func() {
			o := l.HandleKey(ctx, capture.KeyEvent{Key: "1", TargetTag: "INPUT"})
			o2 := l.HandleKey(ctx, capture.KeyEvent{Key: "0", Editable: true})

			convey.Convey("Then the key passes through", func() {
				convey.So(o, convey.ShouldResemble, capture.Outcome{})
				convey.So(o2, convey.ShouldResemble, capture.Outcome{})
				convey.So(rec.l.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When an unbound key is pressed", func() {
			o := l.HandleKey(ctx, capture.KeyEvent{Key: "x"})

			convey.Convey("Then it is ignored", func() {
				convey.So(o.Handled, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When re-armed with new bindings", func() {
			l.Arm(gate, capture.Bindings{Positive: "j", Negative: "k"})
			old := l.HandleKey(ctx, capture.KeyEvent{Key: "1"})
			fresh := l.HandleKey(ctx, capture.KeyEvent{Key: "k"})

			convey.Convey("Then only the new bindings apply", func() {
				convey.So(old.Handled, convey.ShouldBeFalse)
				convey.So(fresh.Recorded, convey.ShouldBeTrue)
				d, _ := rec.l.Get(12.5)
				convey.So(d, convey.ShouldEqual, -1)
			})
		})

		convey.Convey("When re-armed for playback", func() {
			gate.Mode = model.ModePlayback
			l.Arm(gate, capture.DefaultBindings())

			convey.Convey("Then the listener is removed", func() {
				convey.So(l.Armed(), convey.ShouldBeFalse)
				convey.So(l.HandleKey(ctx, capture.KeyEvent{Key: "1"}).Handled, convey.ShouldBeFalse)
				convey.So(rec.l.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the player becomes unready", func() {
			gate.Ready = false
			l.Arm(gate, capture.DefaultBindings())
			o := l.HandleKey(ctx, capture.KeyEvent{Key: "1"})

			convey.Convey("Then keys are not captured", func() {
				convey.So(o, convey.ShouldResemble, capture.Outcome{})
				convey.So(rec.l.Len(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestBindings(t *testing.T) {
	convey.Convey("Given candidate bindings", t, func() {
		convey.So(capture.DefaultBindings().Valid(), convey.ShouldBeTrue)
		convey.So(capture.Bindings{Positive: "é", Negative: "ü"}.Valid(), convey.ShouldBeTrue)
		convey.So(capture.Bindings{Positive: "a", Negative: "a"}.Valid(), convey.ShouldBeFalse)
		convey.So(capture.Bindings{Positive: "", Negative: "a"}.Valid(), convey.ShouldBeFalse)
		convey.So(capture.Bindings{Positive: "ab", Negative: "c"}.Valid(), convey.ShouldBeFalse)
		convey.So(capture.Bindings{Positive: "a", Negative: "a"}.OrDefault(), convey.ShouldResemble, capture.DefaultBindings())

		d, ok := capture.DefaultBindings().DeltaFor("0")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(d, convey.ShouldEqual, -1)
	})
}

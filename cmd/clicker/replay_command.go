package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/player"
	"github.com/okian/clicker/internal/domain/replay"
	"github.com/okian/clicker/pkg/logger"
)

// replayStep is how far the simulated clock moves per tick. It stays below
// the seek threshold so steady playback is never mistaken for a jump.
const replayStep = 0.04

// tail is the simulated playback kept after the last click.
const tail = 1.0

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var (
		speed   float64
		preRoll float64
	)
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Replay a scores document on a simulated player, printing each flash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			l := rebuild(doc).Ledger()
			n, err := runReplay(cmd.Context(), cmd.OutOrStdout(), l, speed, preRoll)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d flashes, total %d\n", n, l.Summary(replay.NoCursor).Total)
			return nil
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "Playback speed; 0 replays without waiting")
	cmd.Flags().Float64Var(&preRoll, "pre-roll", 5, "Seconds of playback before the first click")
	return cmd
}

// runReplay drives a replay runner over a simulated player until the player
// ends and reports how many flashes fired.
func runReplay(ctx context.Context, out io.Writer, l *ledger.Ledger, speed, preRoll float64) (int, error) {
	last, ok := l.Last()
	if !ok {
		return 0, replay.ErrEmptyLedger
	}
	sim := player.NewSim(last + tail)

	var (
		mu      sync.Mutex
		flashes int
	)
	colorize := shouldColorize(out)
	flasher := player.FlasherFunc(func(sign model.Sign) {
		mu.Lock()
		defer mu.Unlock()
		flashes++
		delta := 1
		if sign == model.SignNegative {
			delta = -1
		}
		fmt.Fprintf(out, "%10s  %s\n", formatSeconds(sim.CurrentTime()), formatDelta(delta, colorize))
	})

	stepper := replay.NewStepper()
	runner := replay.NewRunner(sim, flasher,
		replay.WithStepper(stepper),
		replay.WithPreRoll(preRoll),
		replay.WithLogger(logger.Get().Named("replay")),
	)
	if err := runner.Start(ctx, l); err != nil {
		return 0, err
	}

	var wait time.Duration
	if speed > 0 {
		wait = time.Duration(replayStep / speed * float64(time.Second))
	}
	var runErr error
loop:
	for sim.PlayState() == model.PlayStatePlaying {
		sim.Advance(replayStep)
		if err := stepper.Step(ctx); err != nil {
			runErr = err
			break loop
		}
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				runErr = ctx.Err()
				break loop
			}
		}
	}
	runner.Stop()

	mu.Lock()
	defer mu.Unlock()
	return flashes, runErr
}

package replay

import "context"

// Stepper drives a Runner by hand. Step returns only after the runner has
// read the player's clock and evaluated the tick, so the caller may move the
// clock between steps.
type Stepper struct {
	steps chan chan struct{}
}

// NewStepper returns a stepper to pass to WithStepper.
func NewStepper() *Stepper {
	return &Stepper{steps: make(chan chan struct{})}
}

// Step delivers one tick and waits until it has been evaluated. It returns
// ctx's error when no running replay takes the tick.
func (s *Stepper) Step(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.steps <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

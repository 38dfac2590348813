package procfx

import "context"

// StepFunc performs a step's work. It should check Cancelled(ctx) at its
// suspension points (DHT round-trips, sleeps, latch waits) and return an
// AbortedByUser failure promptly when cancelled.
type StepFunc func(ctx context.Context) *StepFailure

// RollbackFunc undoes a step's effects. It is called with the failure
// passed to Rollback, and only for a step that has started (it may have
// failed part-way); rolling back a step that never ran does not call it.
type RollbackFunc func(ctx context.Context, reason *StepFailure)

// Step is the atomic unit of the process engine (spec.md §4.3).
type Step struct {
	*base
	execute  StepFunc
	rollback RollbackFunc
}

// NewStep builds a Step named name. A nil rollback is treated as a no-op,
// for steps with nothing to compensate.
func NewStep(name string, execute StepFunc, rollback RollbackFunc) *Step {
	if rollback == nil {
		rollback = func(context.Context, *StepFailure) {}
	}
	return &Step{base: newBase(name), execute: execute, rollback: rollback}
}

func (s *Step) Start(ctx context.Context) *StepFailure {
	s.captureToken(ctx)
	if err := s.transition(Running); err != nil {
		return &StepFailure{Message: err.Message, Cause: err}
	}

	failure := s.execute(ctx)
	if failure != nil {
		if err := s.transition(Failed); err != nil {
			failure = &StepFailure{Message: err.Message, Cause: err}
		}
		s.notifyFailed(failure)
		return failure
	}

	if err := s.transition(Succeeded); err != nil {
		failure = &StepFailure{Message: err.Message, Cause: err}
		s.notifyFailed(failure)
		return failure
	}
	s.notifySucceeded()
	return nil
}

// Rollback undoes the step's effects, if any. Rolling back a step that
// never started (still Ready) or already rolled back is a tolerated
// no-op, matching the "idempotent under rollback" requirement.
func (s *Step) Rollback(ctx context.Context, reason *StepFailure) {
	s.mu.Lock()
	already := s.state == RolledBack || s.state == RollingBack
	neverRan := s.state == Ready
	s.mu.Unlock()
	if already {
		return
	}
	if err := s.transition(RollingBack); err != nil {
		return
	}
	if !neverRan {
		s.rollback(ctx, reason)
	}
	_ = s.transition(RolledBack)
}

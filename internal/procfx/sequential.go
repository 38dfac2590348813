package procfx

import (
	"context"

	"github.com/hive2hive/h2h/internal/h2herrors"
)

const cancelledFailureKind = h2herrors.AbortedByUser

// Sequential runs its children in order; on any child's failure it rolls
// back the already-succeeded children in reverse order (spec.md §4.3).
type Sequential struct {
	*base
	children []Component
}

func NewSequential(name string, children ...Component) *Sequential {
	return &Sequential{base: newBase(name), children: children}
}

func (s *Sequential) Start(ctx context.Context) *StepFailure {
	s.captureToken(ctx)
	if err := s.transition(Running); err != nil {
		return &StepFailure{Message: err.Message, Cause: err}
	}

	var succeeded []Component
	for _, child := range s.children {
		if Cancelled(ctx) {
			failure := Fail(cancelledFailureKind, "process cancelled before all steps ran")
			s.unwind(ctx, succeeded, failure)
			return failure
		}
		if failure := child.Start(ctx); failure != nil {
			s.unwind(ctx, succeeded, failure)
			return failure
		}
		succeeded = append(succeeded, child)
	}

	if err := s.transition(Succeeded); err != nil {
		failure := &StepFailure{Message: err.Message, Cause: err}
		s.notifyFailed(failure)
		return failure
	}
	s.notifySucceeded()
	return nil
}

func (s *Sequential) unwind(ctx context.Context, succeeded []Component, failure *StepFailure) {
	for i := len(succeeded) - 1; i >= 0; i-- {
		succeeded[i].Rollback(ctx, failure)
	}
	_ = s.transition(Failed)
	s.notifyFailed(failure)
}

// Rollback rolls back every child in reverse declaration order, regardless
// of whether it ran — children tolerate being rolled back as a no-op.
func (s *Sequential) Rollback(ctx context.Context, reason *StepFailure) {
	s.mu.Lock()
	already := s.state == RolledBack || s.state == RollingBack
	s.mu.Unlock()
	if already {
		return
	}
	if err := s.transition(RollingBack); err != nil {
		return
	}
	for i := len(s.children) - 1; i >= 0; i-- {
		s.children[i].Rollback(ctx, reason)
	}
	_ = s.transition(RolledBack)
}

package procfx

import (
	"context"
	"sync"
)

// Parallel runs its children concurrently; the first failure cancels the
// shared token so still-running siblings can unwind at their own
// suspension points, then every child that reached Succeeded is rolled
// back (spec.md §4.3). Grounded on the teacher's existing
// goroutine+channel fan-out idiom rather than an external errgroup
// dependency (see DESIGN.md).
type Parallel struct {
	*base
	children []Component
}

func NewParallel(name string, children ...Component) *Parallel {
	return &Parallel{base: newBase(name), children: children}
}

func (p *Parallel) Start(ctx context.Context) *StepFailure {
	p.captureToken(ctx)
	if err := p.transition(Running); err != nil {
		return &StepFailure{Message: err.Message, Cause: err}
	}

	results := make([]*StepFailure, len(p.children))
	var wg sync.WaitGroup
	for i, child := range p.children {
		wg.Add(1)
		go func(i int, child Component) {
			defer wg.Done()
			failure := child.Start(ctx)
			if failure != nil {
				results[i] = failure
				p.Cancel()
			}
		}(i, child)
	}
	wg.Wait()

	var first *StepFailure
	for _, r := range results {
		if r != nil && first == nil {
			first = r
		}
	}
	if first != nil {
		p.unwind(ctx, first)
		return first
	}

	if err := p.transition(Succeeded); err != nil {
		failure := &StepFailure{Message: err.Message, Cause: err}
		p.notifyFailed(failure)
		return failure
	}
	p.notifySucceeded()
	return nil
}

func (p *Parallel) unwind(ctx context.Context, failure *StepFailure) {
	var wg sync.WaitGroup
	for _, child := range p.children {
		wg.Add(1)
		go func(child Component) {
			defer wg.Done()
			child.Rollback(ctx, failure)
		}(child)
	}
	wg.Wait()
	_ = p.transition(Failed)
	p.notifyFailed(failure)
}

// Rollback rolls back every child concurrently; order across siblings is
// unspecified, matching spec.md §4.3's parallel-composite contract.
func (p *Parallel) Rollback(ctx context.Context, reason *StepFailure) {
	p.mu.Lock()
	already := p.state == RolledBack || p.state == RollingBack
	p.mu.Unlock()
	if already {
		return
	}
	if err := p.transition(RollingBack); err != nil {
		return
	}
	var wg sync.WaitGroup
	for _, child := range p.children {
		wg.Add(1)
		go func(child Component) {
			defer wg.Done()
			child.Rollback(ctx, reason)
		}(child)
	}
	wg.Wait()
	_ = p.transition(RolledBack)
}

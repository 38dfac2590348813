package procfx

import "context"

// Process wraps a root Component with its own CancelToken and runs it to
// completion, matching the source's "a started process runs on a worker;
// executeBlocking awaits completion and surfaces the terminal state"
// (spec.md §4.3). On failure the root is rolled back before returning.
type Process struct {
	root  Component
	token *CancelToken
}

func New(root Component) *Process {
	return &Process{root: root, token: NewCancelToken()}
}

// ExecuteBlocking runs the process to completion and returns its terminal
// state plus the failure that caused it, if any.
func (p *Process) ExecuteBlocking(ctx context.Context) (State, *StepFailure) {
	ctx = withCancelToken(ctx, p.token)
	if failure := p.root.Start(ctx); failure != nil {
		p.root.Rollback(ctx, failure)
		return p.root.State(), failure
	}
	return p.root.State(), nil
}

// Cancel requests cooperative cancellation of every component in the
// process tree.
func (p *Process) Cancel() { p.token.Cancel() }

func (p *Process) State() State { return p.root.State() }

func (p *Process) Subscribe(l Listener) { p.root.Subscribe(l) }

package procfx

import (
	"context"
	"sync"

	"github.com/hive2hive/h2h/internal/h2herrors"
)

// StepFailure is the value a component returns instead of raising, so
// composites inspect it explicitly and decide whether to roll back
// (SPEC_FULL.md/design notes: "Result<_, StepFailure>" in place of the
// source's ProcessExecutionException control flow).
type StepFailure struct {
	Message string
	Cause   error
}

func (f *StepFailure) Error() string {
	if f == nil {
		return ""
	}
	return f.Message
}

func (f *StepFailure) Unwrap() error { return f.Cause }

// Fail builds a StepFailure whose cause is a fresh h2herrors.Error of kind.
func Fail(kind h2herrors.Kind, message string) *StepFailure {
	return &StepFailure{Message: message, Cause: h2herrors.New(kind, message)}
}

// WrapFailure builds a StepFailure around an existing error, tagging it
// with kind.
func WrapFailure(kind h2herrors.Kind, message string, cause error) *StepFailure {
	return &StepFailure{Message: message, Cause: h2herrors.Wrap(kind, message, cause)}
}

// Listener observes a component's terminal transitions.
type Listener interface {
	OnSucceeded()
	OnFailed(reason *StepFailure)
	OnFinished()
}

// ListenerFuncs is a Listener built from plain funcs; any nil func is a
// no-op, so callers only implement the callbacks they need.
type ListenerFuncs struct {
	Succeeded func()
	Failed    func(reason *StepFailure)
	Finished  func()
}

func (l ListenerFuncs) OnSucceeded() {
	if l.Succeeded != nil {
		l.Succeeded()
	}
}

func (l ListenerFuncs) OnFailed(reason *StepFailure) {
	if l.Failed != nil {
		l.Failed(reason)
	}
}

func (l ListenerFuncs) OnFinished() {
	if l.Finished != nil {
		l.Finished()
	}
}

// Component is the capability set every process-engine node implements:
// steps, the sequential composite and the parallel composite alike
// (spec.md §4.3 design note: composition over inheritance).
type Component interface {
	Start(ctx context.Context) *StepFailure
	Rollback(ctx context.Context, reason *StepFailure)
	Cancel()
	State() State
	Subscribe(l Listener)
}

// base is the shared state-machine and listener bookkeeping embedded by
// every concrete Component.
type base struct {
	mu        sync.Mutex
	name      string
	state     State
	token     *CancelToken
	listeners []Listener
}

func newBase(name string) *base {
	return &base{name: name, state: Ready}
}

func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *base) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *base) captureToken(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := tokenFromContext(ctx); t != nil {
		b.token = t
	}
}

func (b *base) Cancel() {
	b.mu.Lock()
	t := b.token
	b.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
}

// transition attempts from -> to under the lock, returning
// InvalidProcessState if the machine forbids it.
func (b *base) transition(to State) *h2herrors.Error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !validTransition(b.state, to) {
		return h2herrors.NewInvalidProcessState(
			b.name + ": cannot go from " + b.state.String() + " to " + to.String())
	}
	b.state = to
	return nil
}

func (b *base) snapshotListeners() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Listener, len(b.listeners))
	copy(out, b.listeners)
	return out
}

func (b *base) notifySucceeded() {
	for _, l := range b.snapshotListeners() {
		l.OnSucceeded()
		l.OnFinished()
	}
}

func (b *base) notifyFailed(reason *StepFailure) {
	for _, l := range b.snapshotListeners() {
		l.OnFailed(reason)
		l.OnFinished()
	}
}

package procfx

import (
	"context"
	"sync"
)

type cancelTokenKey struct{}

// CancelToken is the cooperative cancel flag shared by every component of
// one process tree (spec.md §5: "a step observes an interrupt/cancel flag
// at its suspension points"). It is installed once into the root context
// by Process and read by every descendant via Cancelled(ctx).
type CancelToken struct {
	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
}

func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

func (t *CancelToken) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.cancelled {
		t.cancelled = true
		close(t.done)
	}
}

func (t *CancelToken) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done lets a step block on cancellation alongside a DHT round-trip via
// select, instead of polling.
func (t *CancelToken) Done() <-chan struct{} { return t.done }

func withCancelToken(ctx context.Context, t *CancelToken) context.Context {
	return context.WithValue(ctx, cancelTokenKey{}, t)
}

func tokenFromContext(ctx context.Context) *CancelToken {
	t, _ := ctx.Value(cancelTokenKey{}).(*CancelToken)
	return t
}

// Cancelled reports whether the process tree rooted at ctx has been asked
// to cancel. Steps should check this at suspension points.
func Cancelled(ctx context.Context) bool {
	t := tokenFromContext(ctx)
	return t != nil && t.Cancelled()
}

// Done returns the process tree's cancel channel, or a nil channel (which
// blocks forever in a select) if ctx carries no token.
func Done(ctx context.Context) <-chan struct{} {
	if t := tokenFromContext(ctx); t != nil {
		return t.Done()
	}
	return nil
}

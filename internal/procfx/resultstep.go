package procfx

import "context"

// ResultFunc is a step body that additionally produces a typed value on
// success, for the "result-bearing" component variant of spec.md §4.3.
type ResultFunc[T any] func(ctx context.Context) (T, *StepFailure)

// ResultStep wraps Step with a typed Value(), e.g. the meta-file a
// create-meta-file step produced, for later steps in the same context to
// consume without a cast.
type ResultStep[T any] struct {
	*Step
	value T
}

func NewResultStep[T any](name string, execute ResultFunc[T], rollback RollbackFunc) *ResultStep[T] {
	rs := &ResultStep[T]{}
	rs.Step = NewStep(name, func(ctx context.Context) *StepFailure {
		v, failure := execute(ctx)
		if failure != nil {
			return failure
		}
		rs.value = v
		return nil
	}, rollback)
	return rs
}

// Value returns the step's produced result. It is the zero value until
// the step has succeeded.
func (rs *ResultStep[T]) Value() T { return rs.value }

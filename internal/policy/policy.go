// Package policy wraps command operations with confirmation, error
// containment and timing.
//
// A Policy is a function from an operation to a wrapped operation. Chain
// composes them so that the first policy listed runs outermost; destructive
// commands use Confirm, Contain, Timed in that order.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/kyleking/primitive-db/internal/errors"
)

// Func is a wrapped operation
type Func[T any] func(ctx context.Context) (T, error)

// Policy decorates a Func
type Policy[T any] func(next Func[T]) Func[T]

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, action string) bool
}

// Reporter receives the diagnostics produced by the policies
type Reporter interface {
	Failure(op string, err error)
	Cancelled(op string)
	Elapsed(op string, d time.Duration)
}

// Chain applies policies to fn; policies[0] ends up outermost
func Chain[T any](fn Func[T], policies ...Policy[T]) Func[T] {
	for i := len(policies) - 1; i >= 0; i-- {
		fn = policies[i](fn)
	}

	return fn
}

// Confirm runs the operation only when the confirmer approves action. A
// declined operation reports a cancellation and returns declined() without
// an error.
func Confirm[T any](c Confirmer, r Reporter, op, action string, declined func() T) Policy[T] {
	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (T, error) {
			if !c.Confirm(ctx, action) {
				r.Cancelled(op)
				return declined(), nil
			}

			return next(ctx)
		}
	}
}

// Contain turns every error or panic of the operation into a single reported
// failure and a fallback value. The wrapped Func never returns an error.
func Contain[T any](r Reporter, op string, fallback func(error) T) Policy[T] {
	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (result T, err error) {
			defer func() {
				if p := recover(); p != nil {
					perr := errors.Newf(errors.ErrTypeInternal, "panic in %s: %v", op, p)
					r.Failure(op, perr)
					result, err = fallback(perr), nil
				}
			}()

			result, err = next(ctx)
			if err != nil {
				r.Failure(op, err)
				return fallback(err), nil
			}

			return result, nil
		}
	}
}

// Timed reports the wall time of the operation. The result is passed through.
func Timed[T any](r Reporter, op string, now func() time.Time) Policy[T] {
	if now == nil {
		now = time.Now
	}

	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (T, error) {
			start := now()
			result, err := next(ctx)
			r.Elapsed(op, now().Sub(start))

			return result, err
		}
	}
}

// Describe renders the one-line diagnostic for a contained failure
func Describe(err error) string {
	switch errors.GetType(err) {
	case errors.ErrTypeSchema:
		return "Schema error: " + errors.Describe(err)
	case errors.ErrTypeSyntax:
		return "Syntax error: " + errors.Describe(err)
	case errors.ErrTypeConversion, errors.ErrTypeArity:
		return "Validation error: " + errors.Describe(err)
	case errors.ErrTypeStorage:
		if errors.IsNotExist(err) {
			return "Error: data file not found. The database may not be initialized."
		}

		return "Storage error: " + errors.Describe(err)
	default:
		return "Unexpected error: " + errors.Describe(err)
	}
}

// FormatElapsed renders the timing line
func FormatElapsed(op string, d time.Duration) string {
	return fmt.Sprintf("Function %s took %.3f seconds.", op, d.Seconds())
}

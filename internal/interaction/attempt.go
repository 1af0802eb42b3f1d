// internal/interaction/attempt.go
package interaction

import (
	"context"
)

// Strategy identifies how an action reached the page.
type Strategy int

const (
	// StrategyNone means neither strategy produced the effect.
	StrategyNone Strategy = iota
	// StrategyNative goes through real input events (mouse, keyboard).
	StrategyNative
	// StrategyScript goes through script injection against the element.
	StrategyScript
)

func (s Strategy) String() string {
	switch s {
	case StrategyNative:
		return "native"
	case StrategyScript:
		return "script"
	default:
		return "none"
	}
}

// Result is the outcome of a two-phase attempt: a primary strategy and, on a
// recoverable failure, a secondary one.
type Result struct {
	// Strategy is the strategy that produced the effect.
	Strategy Strategy
	// Recovered is the primary strategy's failure, if it failed.
	Recovered *InteractionError
	// Err is set when both strategies failed.
	Err *InteractionError
}

// Succeeded reports whether either strategy produced the effect.
func (r Result) Succeeded() bool { return r.Strategy != StrategyNone }

// FellBack reports whether the secondary strategy produced the effect.
func (r Result) FellBack() bool { return r.Recovered != nil && r.Succeeded() }

type action struct {
	strategy Strategy
	run      func(ctx context.Context) error
}

// attempt runs primary and, if it fails while ctx is still live, secondary.
// A cancelled context is never treated as recoverable; the caller checks
// ctx.Err() after attempt returns.
func attempt(ctx context.Context, primary, secondary action) Result {
	err := primary.run(ctx)
	if err == nil {
		return Result{Strategy: primary.strategy}
	}
	res := Result{Recovered: &InteractionError{Strategy: primary.strategy, Err: err}}
	if ctx.Err() != nil {
		res.Err = &InteractionError{Strategy: primary.strategy, Err: ctx.Err()}
		return res
	}
	if err := secondary.run(ctx); err != nil {
		res.Err = &InteractionError{Strategy: secondary.strategy, Err: err}
		return res
	}
	res.Strategy = secondary.strategy
	return res
}

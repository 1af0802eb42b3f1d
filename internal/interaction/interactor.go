// internal/interaction/interactor.go
// This file implements the wait-act primitives. Each primitive first waits
// for the target element to reach a readiness condition, scrolls it to the
// centre of the viewport, and then performs its action with a two-phase
// attempt: a primary strategy and, on a recoverable failure, a secondary one.
//
// Readiness timeouts are the only failures surfaced to callers. Failures of
// the action itself are recovered locally and reported through the log.
package interaction

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval matches the polling cadence of a WebDriver-style wait.
const DefaultPollInterval = 500 * time.Millisecond

// Interactor performs the wait-act primitives against a Page.
// It holds no page state; the page is passed to every call.
type Interactor struct {
	logger       *zap.Logger
	pollInterval time.Duration
}

// Option configures an Interactor.
type Option func(*Interactor)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(i *Interactor) {
		if d > 0 {
			i.pollInterval = d
		}
	}
}

// New creates an Interactor.
func New(logger *zap.Logger, opts ...Option) *Interactor {
	i := &Interactor{
		logger:       logger.Named("interaction"),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// WaitAndClick waits until selector is clickable, scrolls it into view and
// clicks it. A native click that fails is retried once through script
// injection, which bypasses the overlap checks that made it fail.
func (i *Interactor) WaitAndClick(ctx context.Context, page Page, selector string, timeout time.Duration) (Element, error) {
	el, err := i.WaitClickable(ctx, page, selector, timeout)
	if err != nil {
		return nil, err
	}
	i.scrollIntoView(ctx, el, selector)

	res := attempt(ctx,
		action{strategy: StrategyNative, run: el.Click},
		action{strategy: StrategyScript, run: func(ctx context.Context) error {
			return el.Call(ctx, JSClick)
		}},
	)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	i.report("click", selector, res)
	return el, nil
}

// WaitAndType waits until selector is clickable, then focuses it, clears it
// and types text key by key so input listeners fire as they would for a
// person. If that fails the value is assigned by script and synthetic input
// and change events are dispatched, since a direct assignment alone is
// invisible to most client-side frameworks.
func (i *Interactor) WaitAndType(ctx context.Context, page Page, selector, text string, timeout time.Duration) (Element, error) {
	el, err := i.WaitClickable(ctx, page, selector, timeout)
	if err != nil {
		return nil, err
	}
	i.scrollIntoView(ctx, el, selector)

	res := attempt(ctx,
		action{strategy: StrategyNative, run: func(ctx context.Context) error {
			if err := el.Click(ctx); err != nil {
				return err
			}
			if err := el.Clear(ctx); err != nil {
				return err
			}
			return el.SendKeys(ctx, text)
		}},
		action{strategy: StrategyScript, run: func(ctx context.Context) error {
			return el.Call(ctx, JSSetValue, text)
		}},
	)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	i.report("type", selector, res)
	return el, nil
}

// ScriptClick scrolls el into view and clicks it through script injection,
// for controls whose native clicks are intercepted (modals, overlays). A
// native click is only tried when the script itself fails.
func (i *Interactor) ScriptClick(ctx context.Context, el Element, selector string) error {
	i.scrollIntoView(ctx, el, selector)

	res := attempt(ctx,
		action{strategy: StrategyScript, run: func(ctx context.Context) error {
			return el.Call(ctx, JSClick)
		}},
		action{strategy: StrategyNative, run: el.Click},
	)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	i.report("script click", selector, res)
	return nil
}

func (i *Interactor) scrollIntoView(ctx context.Context, el Element, selector string) {
	if err := el.Call(ctx, JSScrollIntoView); err != nil && ctx.Err() == nil {
		i.logger.Debug("Scroll into view failed.", zap.String("selector", selector), zap.Error(err))
	}
}

func (i *Interactor) report(op, selector string, res Result) {
	switch {
	case res.Err != nil:
		i.logger.Warn("Both interaction strategies failed.",
			zap.String("op", op),
			zap.String("selector", selector),
			zap.NamedError("primary", res.Recovered),
			zap.NamedError("fallback", res.Err),
		)
	case res.FellBack():
		i.logger.Debug("Interaction recovered through fallback.",
			zap.String("op", op),
			zap.String("selector", selector),
			zap.Stringer("strategy", res.Strategy),
			zap.NamedError("primary", res.Recovered),
		)
	default:
		i.logger.Debug("Interaction done.",
			zap.String("op", op),
			zap.String("selector", selector),
			zap.Stringer("strategy", res.Strategy),
		)
	}
}

// internal/interaction/wait.go
package interaction

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Condition is the readiness state an element must reach before a wait ends.
type Condition int

const (
	// ConditionPresent: the element exists in the DOM.
	ConditionPresent Condition = iota
	// ConditionVisible: present and displayed.
	ConditionVisible
	// ConditionClickable: displayed and not disabled.
	ConditionClickable
)

func (c Condition) String() string {
	switch c {
	case ConditionVisible:
		return "visible"
	case ConditionClickable:
		return "clickable"
	default:
		return "present"
	}
}

func (c Condition) met(ctx context.Context, el Element) (bool, error) {
	if c == ConditionPresent {
		return true, nil
	}
	shown, err := el.Displayed(ctx)
	if err != nil || !shown {
		return false, err
	}
	if c == ConditionVisible {
		return true, nil
	}
	return el.Enabled(ctx)
}

// waitFor polls page until selector satisfies cond or timeout elapses. Every
// poll re-queries the page, so a handle that went stale between polls is
// simply replaced on the next one.
func (i *Interactor) waitFor(ctx context.Context, page Page, selector string, cond Condition, timeout time.Duration) (Element, error) {
	var (
		found Element
		last  error
	)
	start := time.Now()

	err := wait.PollUntilContextTimeout(ctx, i.pollInterval, timeout, true, func(pollCtx context.Context) (bool, error) {
		el, err := page.Query(pollCtx, selector)
		if err != nil {
			last = err
			return false, nil
		}
		ok, err := cond.met(pollCtx, el)
		if err != nil {
			last = err
			return false, nil
		}
		if !ok {
			last = nil
			return false, nil
		}
		found = el
		return true, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(last, context.DeadlineExceeded) {
			last = nil
		}
		i.logger.Debug("Element wait timed out.",
			zap.String("selector", selector),
			zap.Stringer("condition", cond),
			zap.Duration("timeout", timeout),
			zap.NamedError("last", last),
		)
		return nil, &ElementTimeoutError{Selector: selector, Condition: cond, Timeout: timeout, Last: last}
	}

	i.logger.Debug("Element ready.",
		zap.String("selector", selector),
		zap.Stringer("condition", cond),
		zap.Duration("waited", time.Since(start)),
	)
	return found, nil
}

// WaitPresent waits until an element matching selector exists in the DOM.
func (i *Interactor) WaitPresent(ctx context.Context, page Page, selector string, timeout time.Duration) (Element, error) {
	return i.waitFor(ctx, page, selector, ConditionPresent, timeout)
}

// WaitVisible waits until an element matching selector exists and is displayed.
func (i *Interactor) WaitVisible(ctx context.Context, page Page, selector string, timeout time.Duration) (Element, error) {
	return i.waitFor(ctx, page, selector, ConditionVisible, timeout)
}

// WaitClickable waits until an element matching selector is displayed and enabled.
func (i *Interactor) WaitClickable(ctx context.Context, page Page, selector string, timeout time.Duration) (Element, error) {
	return i.waitFor(ctx, page, selector, ConditionClickable, timeout)
}

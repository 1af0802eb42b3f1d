// internal/interaction/interfaces.go
package interaction

import (
	"context"
	"errors"
)

// ErrNoSuchElement is returned by Page.Query when nothing matches the selector
// at the moment of the call.
var ErrNoSuchElement = errors.New("no such element")

// ErrStaleElement is returned by Element methods when the node behind the
// handle was detached or replaced by a re-render.
var ErrStaleElement = errors.New("stale element reference")

// Page is an opaque handle to the live, remotely rendered document.
// Implementations must not cache query results between calls: the remote
// application can re-render at any time.
type Page interface {
	// Query returns the first element matching the CSS selector, or
	// ErrNoSuchElement when there is none.
	Query(ctx context.Context, selector string) (Element, error)
}

// Element is a handle to a single node returned by Page.Query.
type Element interface {
	// Displayed reports whether the element is rendered and visible.
	Displayed(ctx context.Context) (bool, error)
	// Enabled reports whether the element is not disabled.
	Enabled(ctx context.Context) (bool, error)

	// Click performs a native (input-level) click. It fails when the element
	// is obscured, intercepted or otherwise not interactable.
	Click(ctx context.Context) error
	// Clear empties the element's current value.
	Clear(ctx context.Context) error
	// SendKeys types text into the element one key event per character.
	SendKeys(ctx context.Context, text string) error

	// Call invokes a script function with `this` bound to the element,
	// bypassing the browser's interactivity checks.
	Call(ctx context.Context, fn string, args ...any) error
}

// Scripts injected against element handles.
const (
	JSScrollIntoView = `function() { this.scrollIntoView({block: 'center'}); }`
	JSClick          = `function() { this.click(); }`
	JSSetValue       = `function(v) {
	this.value = v;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
}`
)

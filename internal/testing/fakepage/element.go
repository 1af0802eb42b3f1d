// internal/testing/fakepage/element.go
package fakepage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/parkpass/internal/interaction"
)

// Element is a fake DOM element. Configure it with the chainable setters
// before handing the page to the code under test.
type Element struct {
	page     *Page
	selector string

	mu           sync.Mutex
	appearAfter  time.Duration
	visibleAfter time.Duration
	enabledAfter time.Duration
	hidden       bool
	disabled     bool

	clickErr   error
	keysErr    error
	scriptErr  error
	value      string
	dispatched []string
}

var _ interaction.Element = (*Element)(nil)

// AppearAfter makes the element absent from queries until d has elapsed.
func (e *Element) AppearAfter(d time.Duration) *Element {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.appearAfter = d
	return e
}

// VisibleAfter makes the element hidden until d has elapsed.
func (e *Element) VisibleAfter(d time.Duration) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visibleAfter = d
	return e
}

// EnabledAfter makes the element disabled until d has elapsed.
func (e *Element) EnabledAfter(d time.Duration) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabledAfter = d
	return e
}

// Hidden keeps the element permanently hidden.
func (e *Element) Hidden() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = true
	return e
}

// Disabled keeps the element permanently disabled.
func (e *Element) Disabled() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disabled = true
	return e
}

// Intercepted makes native clicks fail the way an overlapping element would.
func (e *Element) Intercepted() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clickErr = fmt.Errorf("element click intercepted: %s is covered by another element", e.selector)
	return e
}

// NotTypeable makes native key input fail.
func (e *Element) NotTypeable() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keysErr = fmt.Errorf("element not interactable: %s", e.selector)
	return e
}

// ScriptFails makes every injected script fail.
func (e *Element) ScriptFails() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scriptErr = fmt.Errorf("script execution failed on %s", e.selector)
	return e
}

// WithValue presets the element's value.
func (e *Element) WithValue(v string) *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = v
	return e
}

// Value returns the element's current value.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Dispatched returns the synthetic events dispatched on the element.
func (e *Element) Dispatched() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.dispatched...)
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	elapsed := e.page.since()
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.hidden && elapsed >= e.visibleAfter, nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	elapsed := e.page.since()
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.disabled && elapsed >= e.enabledAfter, nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	err := e.clickErr
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.page.record(Event{Kind: KindClick, Selector: e.selector})
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	e.value = ""
	e.mu.Unlock()
	e.page.record(Event{Kind: KindClear, Selector: e.selector})
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.keysErr != nil {
		err := e.keysErr
		e.mu.Unlock()
		return err
	}
	e.value += text
	e.mu.Unlock()
	e.page.record(Event{Kind: KindType, Selector: e.selector, Text: text})
	return nil
}

func (e *Element) Call(ctx context.Context, fn string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.scriptErr != nil {
		err := e.scriptErr
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	switch fn {
	case interaction.JSScrollIntoView:
		e.page.record(Event{Kind: KindScroll, Selector: e.selector})
	case interaction.JSClick:
		e.page.record(Event{Kind: KindScriptClick, Selector: e.selector})
	case interaction.JSSetValue:
		if len(args) != 1 {
			return fmt.Errorf("set value expects 1 argument, got %d", len(args))
		}
		v, ok := args[0].(string)
		if !ok {
			return fmt.Errorf("set value expects a string, got %T", args[0])
		}
		e.mu.Lock()
		e.value = v
		e.dispatched = append(e.dispatched, "input", "change")
		e.mu.Unlock()
		e.page.record(Event{Kind: KindSetValue, Selector: e.selector, Text: v})
	default:
		return fmt.Errorf("unsupported script: %s", fn)
	}
	return nil
}

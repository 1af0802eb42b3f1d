// internal/browser/tab.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/parkpass/internal/interaction"
)

const (
	jsDisplayed = `function() {
	const s = window.getComputedStyle(this);
	const r = this.getBoundingClientRect();
	return s.display !== 'none' && s.visibility !== 'hidden' && r.width > 0 && r.height > 0;
}`
	jsEnabled = `function() { return !this.disabled; }`
	// jsHitTest reports whether a click at the element's centre would land
	// on the element itself rather than an overlay.
	jsHitTest = `function() {
	const r = this.getBoundingClientRect();
	const hit = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
	return hit === null || hit === this || this.contains(hit);
}`
)

// elementActionTimeout bounds a single node operation. chromedp retries
// node-id lookups until its context ends, so a detached node would
// otherwise block forever.
const elementActionTimeout = 10 * time.Second

// ErrClickIntercepted is returned by a native click whose target point is
// covered by another element.
var ErrClickIntercepted = errors.New("click intercepted by another element")

// Tab is a single browser tab and the process that owns it.
type Tab struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	navTimeout  time.Duration
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ interaction.Page = (*Tab)(nil)

// run executes actions on the tab while honouring the caller's
// cancellation and deadline.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the document to finish loading.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	if t.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.navTimeout)
		defer cancel()
	}
	if err := t.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Maximize maximizes the window holding the tab. Headless browsers accept
// the call and keep their configured window size.
func (t *Tab) Maximize(ctx context.Context) error {
	return t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return fmt.Errorf("get window: %w", err)
		}
		bounds := &cdpbrowser.Bounds{WindowState: cdpbrowser.WindowStateMaximized}
		if err := cdpbrowser.SetWindowBounds(windowID, bounds).Do(ctx); err != nil {
			return fmt.Errorf("set window bounds: %w", err)
		}
		return nil
	}))
}

// Query returns the first node matching selector without waiting for it.
func (t *Tab) Query(ctx context.Context, selector string) (interaction.Element, error) {
	var nodes []*cdp.Node
	if err := t.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, interaction.ErrNoSuchElement
	}
	return &element{runner: t, node: nodes[0]}, nil
}

// Close closes the tab and terminates the browser process. Only the first
// call does any work.
func (t *Tab) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(t.ctx) }()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.closeErr = fmt.Errorf("close tab: %w", err)
			}
		case <-ctx.Done():
			t.closeErr = fmt.Errorf("close tab: %w", ctx.Err())
		}
		t.cancel()
		t.allocCancel()
	})
	return t.closeErr
}

// callOn resolves node to a remote object, calls fn with `this` bound to it
// and releases the object again.
func (t *Tab) callOn(ctx context.Context, node *cdp.Node, fn string, res any, args ...any) error {
	return t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(fn, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
	}))
}

// nodeRunner executes protocol work for an element. *Tab is the only
// production implementation.
type nodeRunner interface {
	run(ctx context.Context, actions ...chromedp.Action) error
	callOn(ctx context.Context, node *cdp.Node, fn string, res any, args ...any) error
}

// element is a handle to one DOM node of a Tab.
type element struct {
	runner nodeRunner
	node   *cdp.Node
}

var _ interaction.Element = (*element)(nil)

func (e *element) nodeIDs() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *element) do(ctx context.Context, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, elementActionTimeout)
	defer cancel()
	return staleOr(e.runner.run(ctx, actions...))
}

// eval calls fn on the node and decodes its return value into res.
func (e *element) eval(ctx context.Context, fn string, res any, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, elementActionTimeout)
	defer cancel()
	return staleOr(e.runner.callOn(ctx, e.node, fn, res, args...))
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	var shown bool
	if err := e.eval(ctx, jsDisplayed, &shown); err != nil {
		return false, err
	}
	return shown, nil
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	var enabled bool
	if err := e.eval(ctx, jsEnabled, &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// Click dispatches real mouse events at the element's centre. An overlay
// covering that point fails the click instead of silently hitting the
// overlay.
func (e *element) Click(ctx context.Context) error {
	var onTop bool
	if err := e.eval(ctx, jsHitTest, &onTop); err != nil {
		return err
	}
	if !onTop {
		return ErrClickIntercepted
	}
	return e.do(ctx, chromedp.MouseClickNode(e.node))
}

func (e *element) Clear(ctx context.Context) error {
	return e.do(ctx, chromedp.Clear(e.nodeIDs(), chromedp.ByNodeID))
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.do(ctx, chromedp.SendKeys(e.nodeIDs(), text, chromedp.ByNodeID))
}

func (e *element) Call(ctx context.Context, fn string, args ...any) error {
	var discard *runtime.RemoteObject
	return e.eval(ctx, fn, &discard, args...)
}

// staleOr maps the protocol's missing-node errors onto ErrStaleElement.
func staleOr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "No node with given id") || strings.Contains(msg, "Could not find node") {
		return fmt.Errorf("%w: %v", interaction.ErrStaleElement, err)
	}
	return err
}

// internal/testing/fakepage/fakepage.go
// Package fakepage provides an in-memory, scriptable stand-in for a live
// browser page. Elements can be made to appear, become visible or become
// enabled after a delay, and their native actions can be made to fail so
// that fallback paths are exercised. Every effect is recorded in an ordered
// event log.
package fakepage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/parkpass/internal/interaction"
)

// Event kinds recorded in the log.
const (
	KindClick       = "click"
	KindScriptClick = "script-click"
	KindType        = "type"
	KindSetValue    = "set-value"
	KindClear       = "clear"
	KindScroll      = "scroll"
	KindNavigate    = "navigate"
	KindMaximize    = "maximize"
	KindClose       = "close"
)

// Event is a single observable effect on the page.
type Event struct {
	Kind     string
	Selector string
	Text     string
	At       time.Time
}

func (e Event) String() string {
	s := e.Kind
	if e.Selector != "" {
		s += " " + e.Selector
	}
	if e.Text != "" {
		s += fmt.Sprintf(" %q", e.Text)
	}
	return s
}

// Page is a fake page. It is safe for concurrent use.
type Page struct {
	mu       sync.Mutex
	created  time.Time
	elements map[string]*Element
	events   []Event
	queries  map[string]int

	NavigateErr error
	MaximizeErr error
	CloseErr    error
}

var _ interaction.Page = (*Page)(nil)

// New creates an empty page whose element delays are measured from now.
func New() *Page {
	return &Page{
		created:  time.Now(),
		elements: make(map[string]*Element),
		queries:  make(map[string]int),
	}
}

// Add registers an element under selector and returns it for configuration.
func (p *Page) Add(selector string) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := &Element{page: p, selector: selector}
	p.elements[selector] = el
	return el
}

// Query implements interaction.Page.
func (p *Page) Query(ctx context.Context, selector string) (interaction.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries[selector]++
	el, ok := p.elements[selector]
	if !ok || time.Since(p.created) < el.appearAfter {
		return nil, interaction.ErrNoSuchElement
	}
	return el, nil
}

// Navigate records a navigation.
func (p *Page) Navigate(_ context.Context, url string) error {
	p.record(Event{Kind: KindNavigate, Selector: url})
	return p.NavigateErr
}

// Maximize records a window maximize.
func (p *Page) Maximize(context.Context) error {
	p.record(Event{Kind: KindMaximize})
	return p.MaximizeErr
}

// Close records a session close.
func (p *Page) Close(context.Context) error {
	p.record(Event{Kind: KindClose})
	return p.CloseErr
}

// Events returns a copy of the event log.
func (p *Page) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Actions returns the log rendered as strings, omitting scrolls.
func (p *Page) Actions() []string {
	var out []string
	for _, e := range p.Events() {
		if e.Kind == KindScroll {
			continue
		}
		out = append(out, e.String())
	}
	return out
}

// Count returns how many events of kind were recorded.
func (p *Page) Count(kind string) int {
	n := 0
	for _, e := range p.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Queries returns how many times selector was queried.
func (p *Page) Queries(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[selector]
}

func (p *Page) record(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.At = time.Now()
	p.events = append(p.events, e)
}

func (p *Page) since() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.created)
}

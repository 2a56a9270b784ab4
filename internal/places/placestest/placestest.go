// Package placestest provides an in-memory lookup surface for tests. Pages
// render canned HTML keyed by URL and expose the same capabilities as a live
// browser page.
package placestest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/placescraper/internal/htmlview"
	"github.com/JakeFAU/placescraper/internal/places"
)

// ErrClosed is returned by every operation on a closed page.
var ErrClosed = errors.New("placestest: page closed")

// Detail is the view shown after clicking one result card.
type Detail struct {
	HTML     string
	Location string
}

// Surface is the canned content served to pages.
type Surface struct {
	// Search maps a URL to the HTML rendered after navigating to it.
	Search map[string]string
	// Details maps a URL to the views opened by clicking its cards, by index.
	Details map[string][]Detail
	// Fail maps a URL to the error returned when navigating to it.
	Fail map[string]error
	// Panic lists URLs whose navigation panics, simulating a crashed driver.
	Panic map[string]bool
	// Share is the locator copied from the share dialog, if any.
	Share string
}

// Provider opens pages over a Surface and counts sessions.
type Provider struct {
	Surface *Surface
	OpenErr error

	opened      atomic.Int32
	closed      atomic.Int32
	navigations atomic.Int32
}

var _ places.Provider = (*Provider)(nil)

// Open returns a fresh page.
func (p *Provider) Open(context.Context) (places.Page, error) {
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	p.opened.Add(1)
	return &Page{provider: p, surface: p.Surface}, nil
}

// Opened reports how many pages were opened.
func (p *Provider) Opened() int { return int(p.opened.Load()) }

// Closed reports how many pages were closed.
func (p *Provider) Closed() int { return int(p.closed.Load()) }

// Navigations reports how many navigations all pages performed.
func (p *Provider) Navigations() int { return int(p.navigations.Load()) }

// Page is a fake places.Page.
type Page struct {
	provider *Provider
	surface  *Surface

	mu       sync.Mutex
	url      string
	html     string
	location string
	closed   bool
	clicks   []int
}

var _ places.Page = (*Page)(nil)

// Navigate renders the search view for url.
func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.provider != nil {
		p.provider.navigations.Add(1)
	}
	if p.surface.Panic[url] {
		panic("placestest: driver crashed on " + url)
	}
	if err := p.surface.Fail[url]; err != nil {
		return err
	}
	p.url = url
	p.location = url
	p.html = p.surface.Search[url]
	return nil
}

// Location returns the current locator.
func (p *Page) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrClosed
	}
	return p.location, nil
}

// Snapshot parses the current view.
func (p *Page) Snapshot(context.Context) (places.Node, error) {
	p.mu.Lock()
	html := p.html
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return htmlview.Parse(html)
}

// WaitFor succeeds when selector matches the current view; it never sleeps.
func (p *Page) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	root, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(root.Find(selector)) == 0 {
		return fmt.Errorf("wait for %q: %w", selector, places.ErrNotFound)
	}
	return nil
}

// ScrollToEnd is a no-op on static content.
func (p *Page) ScrollToEnd(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return nil
}

// Click opens the index-th detail view of the current search, or the share
// dialog when the selector targets the share button.
func (p *Page) Click(ctx context.Context, selector string, index int) error {
	root, err := p.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(root.Find(selector)) <= index {
		return fmt.Errorf("click %q[%d]: %w", selector, index, places.ErrNotFound)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface.Share != "" && p.surface.Details[p.url] == nil {
		p.html += `<input value="` + p.surface.Share + `">`
		return nil
	}
	details := p.surface.Details[p.url]
	if index >= len(details) {
		return fmt.Errorf("click %q[%d]: %w", selector, index, places.ErrNotFound)
	}
	p.clicks = append(p.clicks, index)
	p.html = details[index].HTML
	p.location = details[index].Location
	return nil
}

// Back returns to the search view.
func (p *Page) Back(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.html = p.surface.Search[p.url]
	p.location = p.url
	return nil
}

// Close marks the page closed. Closing twice is a no-op.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.provider != nil {
		p.provider.closed.Add(1)
	}
	return nil
}

// Clicks returns the card indexes clicked so far.
func (p *Page) Clicks() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.clicks...)
}

// NewPage returns a standalone page over s, not tracked by any provider.
func NewPage(s *Surface) *Page {
	return &Page{surface: s}
}

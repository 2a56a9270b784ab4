package places

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a selector or locator pattern matches nothing.
	ErrNotFound = errors.New("places: not found")
	// ErrNoCandidates is reported when a query yields no extractable candidate.
	ErrNoCandidates = errors.New("places: no candidates")
	// ErrSessionBroken means the lookup session can no longer be used and must be reopened.
	ErrSessionBroken = errors.New("places: session broken")
)

// Node is a read-only handle on one element of a rendered view.
type Node interface {
	// Text returns the element's visible text with whitespace collapsed.
	Text() string
	Attr(name string) (string, bool)
	Find(selector string) []Node
	Closest(selector string) (Node, bool)
}

// Page is a live, single-owner view onto the lookup surface. Pages are not
// safe for concurrent use; each worker owns exactly one.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// Location returns the current locator (URL) of the view.
	Location(ctx context.Context) (string, error)
	// Snapshot captures the current rendered content for scoped queries.
	Snapshot(ctx context.Context) (Node, error)
	// WaitFor blocks until selector matches or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// ScrollToEnd scrolls the first element matching selector to its bottom.
	ScrollToEnd(ctx context.Context, selector string) error
	// Click activates the index-th element matching selector.
	Click(ctx context.Context, selector string, index int) error
	Back(ctx context.Context) error
	Close() error
}

// Provider opens isolated pages. Every opened Page must be closed by its owner.
type Provider interface {
	Open(ctx context.Context) (Page, error)
}

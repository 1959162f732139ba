// Package fetcher turns URLs into page content for engine adapters.
//
// Two implementations exist: HTTPFetcher issues a single request through
// the proxy pool, BrowserFetcher renders the page in a pooled headless
// browser. Engines pick the variant they need at construction time.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"a3s/pkg/proxypool"
	"a3s/search"
)

// WaitKind selects how a browser fetch decides the page is ready. It has
// no effect on the HTTP fetcher.
type WaitKind int

const (
	// WaitNone returns as soon as navigation completes.
	WaitNone WaitKind = iota
	// WaitDelay sleeps a fixed duration after navigation.
	WaitDelay
	// WaitSelector waits until a CSS selector matches, up to a budget.
	WaitSelector
	// WaitNetworkIdle waits for the page body to be ready and then pauses
	// a fixed settle interval, up to a budget. Network traffic itself is
	// not monitored.
	WaitNetworkIdle
)

// WaitStrategy describes when a rendered page is considered loaded.
type WaitStrategy struct {
	Kind     WaitKind
	Delay    time.Duration
	Selector string
	Timeout  time.Duration
}

// WaitForDelay waits a fixed delay after navigation.
func WaitForDelay(d time.Duration) WaitStrategy {
	return WaitStrategy{Kind: WaitDelay, Delay: d}
}

// WaitForSelector waits until css matches an element, up to timeout.
func WaitForSelector(css string, timeout time.Duration) WaitStrategy {
	return WaitStrategy{Kind: WaitSelector, Selector: css, Timeout: timeout}
}

// WaitForNetworkIdle waits for the page body to be ready plus a fixed
// settle pause, up to timeout.
func WaitForNetworkIdle(timeout time.Duration) WaitStrategy {
	return WaitStrategy{Kind: WaitNetworkIdle, Timeout: timeout}
}

// Options tune a single fetch.
type Options struct {
	// Wait applies to browser fetches only.
	Wait WaitStrategy
	// UserAgent overrides the fetcher's default user agent.
	UserAgent string
	// Proxy overrides the pool's rotation for this request.
	Proxy *proxypool.Descriptor
}

// Fetcher retrieves the content of a URL: raw bytes for HTTP fetches,
// rendered DOM HTML for browser fetches.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error)
}

// Error is a classified fetch failure. It carries the same error kinds
// the search package uses so engines can propagate it unchanged.
type Error struct {
	Kind   search.ErrorKind
	Status int
	URL    string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind returns the failure classification.
func (e *Error) ErrorKind() search.ErrorKind { return e.Kind }

// HTTPStatus returns the response status for http_status errors, else 0.
func (e *Error) HTTPStatus() int { return e.Status }

package fetcher

import (
	"context"
	"errors"
	"time"

	"a3s/pkg/browserpool"
	"a3s/search"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// networkSettle is the post-load pause used by WaitNetworkIdle to let
// straggling requests finish.
const networkSettle = 500 * time.Millisecond

// BrowserFetcher renders pages in a shared headless browser. Each fetch
// leases one tab from the pool and releases it on every exit path,
// including cancellation.
type BrowserFetcher struct {
	pool   *browserpool.Pool
	logger *zap.Logger
}

// NewBrowserFetcher creates a fetcher over the given browser pool.
func NewBrowserFetcher(pool *browserpool.Pool, logger *zap.Logger) *BrowserFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowserFetcher{pool: pool, logger: logger}
}

// Fetch navigates a fresh tab to the URL, applies the wait strategy and
// returns the rendered DOM HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	tab, err := f.pool.Lease(ctx)
	if err != nil {
		kind := search.ErrBrowserUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = search.ErrTimeout
		}
		return nil, &Error{Kind: kind, URL: rawURL, Err: err}
	}
	defer tab.Release()

	// Bound all tab work by the caller's deadline. Cancelling ctx without
	// a deadline does not interrupt work already running in the tab.
	tabCtx := tab.Context()
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}

	actions := []chromedp.Action{}
	if opts.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	actions = append(actions, chromedp.Navigate(rawURL))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, f.classify(rawURL, err)
	}

	if err := f.applyWait(tabCtx, opts.Wait); err != nil {
		return nil, f.classify(rawURL, err)
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, f.classify(rawURL, err)
	}

	f.logger.Debug("rendered page",
		zap.String("url", rawURL),
		zap.Int("bytes", len(html)))
	return []byte(html), nil
}

func (f *BrowserFetcher) applyWait(ctx context.Context, wait WaitStrategy) error {
	switch wait.Kind {
	case WaitDelay:
		return chromedp.Run(ctx, chromedp.Sleep(wait.Delay))
	case WaitSelector:
		waitCtx := ctx
		if wait.Timeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, wait.Timeout)
			defer cancel()
		}
		return chromedp.Run(waitCtx, chromedp.WaitVisible(wait.Selector, chromedp.ByQuery))
	case WaitNetworkIdle:
		waitCtx := ctx
		if wait.Timeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, wait.Timeout)
			defer cancel()
		}
		return chromedp.Run(waitCtx,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(networkSettle))
	default:
		return chromedp.Run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
	}
}

func (f *BrowserFetcher) classify(rawURL string, err error) *Error {
	kind := search.ErrNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = search.ErrTimeout
	} else if errors.Is(err, browserpool.ErrUnavailable) {
		kind = search.ErrBrowserUnavailable
	}
	return &Error{Kind: kind, URL: rawURL, Err: err}
}

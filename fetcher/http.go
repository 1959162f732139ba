package fetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"

	"a3s/pkg/proxypool"
	"a3s/search"

	"go.uber.org/zap"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; a3s-search/1.0)"
	maxRedirects     = 10
)

// HTTPFetcher fetches pages with plain HTTP requests. The underlying
// client is built per call through the proxy pool so every request can
// ride a freshly rotated proxy.
type HTTPFetcher struct {
	pool   *proxypool.Pool
	logger *zap.Logger
}

// NewHTTPFetcher creates an HTTP fetcher. pool may be nil for direct
// connections.
func NewHTTPFetcher(pool *proxypool.Pool, logger *zap.Logger) *HTTPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{pool: pool, logger: logger}
}

// Fetch issues one GET request, following up to 10 redirects. Failures
// classify as network, http_status (rate_limited for 429) or timeout;
// a client or request that cannot be built classifies as other.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	client, err := f.client(userAgent, opts.Proxy)
	if err != nil {
		return nil, &Error{Kind: search.ErrOther, URL: rawURL, Err: err}
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.New("too many redirects")
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: search.ErrOther, URL: rawURL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, f.classify(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		kind := search.ErrHTTPStatus
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = search.ErrRateLimited
		}
		return nil, &Error{Kind: kind, Status: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, f.classify(rawURL, err)
	}

	f.logger.Debug("fetched page",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)))
	return body, nil
}

func (f *HTTPFetcher) client(userAgent string, override *proxypool.Descriptor) (*http.Client, error) {
	if override != nil {
		return proxypool.NewClient(override, userAgent)
	}
	if f.pool != nil {
		return f.pool.BuildClient(userAgent)
	}
	return proxypool.NewClient(nil, userAgent)
}

func (f *HTTPFetcher) classify(rawURL string, err error) *Error {
	kind := search.ErrNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = search.ErrTimeout
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = search.ErrTimeout
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &Error{Kind: kind, URL: rawURL, Err: err}
}

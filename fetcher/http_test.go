package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"a3s/pkg/proxypool"
	"a3s/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer server.Close()

	f := NewHTTPFetcher(nil, nil)
	body, err := f.Fetch(context.Background(), server.URL, Options{})
	require.NoError(t, err)
	assert.Contains(t, string(body), "ok")
}

func TestHTTPFetcherSetsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	f := NewHTTPFetcher(nil, nil)

	_, err := f.Fetch(context.Background(), server.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, defaultUserAgent, got)

	_, err = f.Fetch(context.Background(), server.URL, Options{UserAgent: "custom/1.0"})
	require.NoError(t, err)
	assert.Equal(t, "custom/1.0", got)
}

func TestHTTPFetcherStatusErrors(t *testing.T) {
	testCases := []struct {
		status int
		kind   search.ErrorKind
	}{
		{http.StatusNotFound, search.ErrHTTPStatus},
		{http.StatusInternalServerError, search.ErrHTTPStatus},
		{http.StatusForbidden, search.ErrHTTPStatus},
		{http.StatusTooManyRequests, search.ErrRateLimited},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			f := NewHTTPFetcher(nil, nil)
			_, err := f.Fetch(context.Background(), server.URL, Options{})

			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.kind, fe.Kind)
			assert.Equal(t, tc.status, fe.Status)
		})
	}
}

func TestHTTPFetcherFollowsRedirects(t *testing.T) {
	var server *httptest.Server
	hops := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hops < 3 {
			hops++
			http.Redirect(w, r, server.URL, http.StatusFound)
			return
		}
		fmt.Fprint(w, "landed")
	}))
	defer server.Close()

	f := NewHTTPFetcher(nil, nil)
	body, err := f.Fetch(context.Background(), server.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, "landed", string(body))
}

func TestHTTPFetcherRedirectCap(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL, http.StatusFound)
	}))
	defer server.Close()

	f := NewHTTPFetcher(nil, nil)
	_, err := f.Fetch(context.Background(), server.URL, Options{})

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, search.ErrNetwork, fe.Kind)
}

func TestHTTPFetcherTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewHTTPFetcher(nil, nil)
	_, err := f.Fetch(ctx, server.URL, Options{})

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, search.ErrTimeout, fe.Kind)
}

func TestHTTPFetcherNetworkError(t *testing.T) {
	f := NewHTTPFetcher(nil, nil)
	// Closed port: connection refused.
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/", Options{})

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, search.ErrNetwork, fe.Kind)
}

func TestHTTPFetcherClassifiesForSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewHTTPFetcher(nil, nil)
	_, err := f.Fetch(context.Background(), server.URL, Options{})
	require.Error(t, err)

	// The search package reads the fetch classification through the
	// ErrorKind/HTTPStatus interfaces when tagging engine failures.
	var k interface{ ErrorKind() search.ErrorKind }
	require.ErrorAs(t, err, &k)
	assert.Equal(t, search.ErrHTTPStatus, k.ErrorKind())
	var s interface{ HTTPStatus() int }
	require.ErrorAs(t, err, &s)
	assert.Equal(t, http.StatusBadGateway, s.HTTPStatus())
}

func TestHTTPFetcherUsesProxyPool(t *testing.T) {
	// A proxy pool pointing at an unreachable proxy must make the fetch
	// fail even though the target itself is healthy, proving the request
	// went through the pool's client.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "direct")
	}))
	defer server.Close()

	pool := proxypool.WithProxies([]proxypool.Descriptor{
		proxypool.NewDescriptor("127.0.0.1", 1),
	}, nil)

	f := NewHTTPFetcher(pool, nil)
	_, err := f.Fetch(context.Background(), server.URL, Options{})
	require.Error(t, err)

	pool.SetEnabled(false)
	body, err := f.Fetch(context.Background(), server.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, "direct", string(body))
}

func TestHTTPFetcherPerRequestProxyOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "direct")
	}))
	defer server.Close()

	override := proxypool.NewDescriptor("127.0.0.1", 1)
	f := NewHTTPFetcher(nil, nil)
	_, err := f.Fetch(context.Background(), server.URL, Options{Proxy: &override})
	require.Error(t, err, "override proxy is unreachable, fetch must fail")

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, search.ErrNetwork, fe.Kind)
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Kind: search.ErrNetwork, URL: "https://x.example/", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "x.example")
}

func TestWaitStrategyConstructors(t *testing.T) {
	d := WaitForDelay(2 * time.Second)
	assert.Equal(t, WaitDelay, d.Kind)
	assert.Equal(t, 2*time.Second, d.Delay)

	s := WaitForSelector("#results", 5*time.Second)
	assert.Equal(t, WaitSelector, s.Kind)
	assert.Equal(t, "#results", s.Selector)
	assert.Equal(t, 5*time.Second, s.Timeout)

	n := WaitForNetworkIdle(3 * time.Second)
	assert.Equal(t, WaitNetworkIdle, n.Kind)
	assert.Equal(t, 3*time.Second, n.Timeout)
}

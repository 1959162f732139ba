package proxypool

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"
)

const clientTimeout = 30 * time.Second

// BuildClient constructs an HTTP client bound to the pool's next proxy.
// With the pool disabled or empty the client connects directly.
func (p *Pool) BuildClient(userAgent string) (*http.Client, error) {
	return NewClient(p.Next(), userAgent)
}

// NewClient constructs an HTTP client routed through the given proxy. A
// nil descriptor yields a direct client. SOCKS5 proxies dial through a
// SOCKS5 dialer; HTTP and HTTPS proxies use CONNECT tunneling.
func NewClient(d *Descriptor, userAgent string) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if d != nil {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		switch d.Protocol {
		case ProtocolSOCKS5:
			var auth *xproxy.Auth
			if d.Username != "" && d.Password != "" {
				auth = &xproxy.Auth{User: d.Username, Password: d.Password}
			}
			dialer, err := xproxy.SOCKS5("tcp", d.Addr(), auth, xproxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("socks5 dialer for %s: %w", d.Addr(), err)
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		default:
			proxyURL, err := url.Parse(d.URL())
			if err != nil {
				return nil, fmt.Errorf("proxy url %s: %w", d.Addr(), err)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	var rt http.RoundTripper = transport
	if userAgent != "" {
		rt = &userAgentTransport{base: transport, userAgent: userAgent}
	}

	return &http.Client{Transport: rt, Timeout: clientTimeout}, nil
}

// userAgentTransport stamps a default User-Agent on requests that carry
// none.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

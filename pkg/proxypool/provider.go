package proxypool

import (
	"context"
	"time"
)

// Provider supplies proxy lists dynamically, for pools fed by an external
// proxy service.
type Provider interface {
	// FetchProxies returns the current proxy list.
	FetchProxies(ctx context.Context) ([]Descriptor, error)
	// RefreshInterval is how often the list should be refetched.
	RefreshInterval() time.Duration
}

// StaticProvider serves a fixed proxy list and never needs refreshing.
type StaticProvider struct {
	proxies []Descriptor
}

// NewStaticProvider creates a provider over a fixed list.
func NewStaticProvider(proxies []Descriptor) *StaticProvider {
	return &StaticProvider{proxies: proxies}
}

func (p *StaticProvider) FetchProxies(ctx context.Context) ([]Descriptor, error) {
	out := make([]Descriptor, len(p.proxies))
	copy(out, p.proxies)
	return out, nil
}

func (p *StaticProvider) RefreshInterval() time.Duration {
	return time.Duration(1<<63 - 1)
}

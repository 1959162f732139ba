package proxypool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Strategy selects how the pool rotates through its proxies.
type Strategy int

const (
	// RoundRobin cycles through the list with a monotonic counter.
	RoundRobin Strategy = iota
	// Random picks uniformly on every call.
	Random
)

// Pool rotates a set of upstream proxies across HTTP client creations.
//
// The proxy list is kept as an immutable snapshot behind an atomic
// pointer, so Next is lock-free on the hot path; writers (Refresh, Add,
// Remove) serialize on a mutex and swap in a fresh snapshot. All handles
// sharing a Pool see the same state.
type Pool struct {
	snapshot atomic.Pointer[[]Descriptor]
	counter  atomic.Uint64
	enabled  atomic.Bool
	strategy Strategy
	provider Provider

	mu     sync.Mutex // serializes writers
	logger *zap.Logger
}

// New creates an empty, disabled pool.
func New(logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{logger: logger}
	empty := make([]Descriptor, 0)
	p.snapshot.Store(&empty)
	return p
}

// WithProxies creates a pool preloaded with a static list. The pool is
// enabled when the list is non-empty.
func WithProxies(proxies []Descriptor, logger *zap.Logger) *Pool {
	p := New(logger)
	list := make([]Descriptor, len(proxies))
	copy(list, proxies)
	p.snapshot.Store(&list)
	p.enabled.Store(len(list) > 0)
	return p
}

// WithProvider creates an enabled pool fed by a dynamic provider. The
// list is empty until the first Refresh.
func WithProvider(provider Provider, logger *zap.Logger) *Pool {
	p := New(logger)
	p.provider = provider
	p.enabled.Store(true)
	return p
}

// WithStrategy sets the rotation strategy and returns the pool.
func (p *Pool) WithStrategy(s Strategy) *Pool {
	p.strategy = s
	return p
}

// SetEnabled turns proxy selection on or off. A disabled pool hands out
// direct (proxy-less) clients.
func (p *Pool) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// Enabled reports whether the pool hands out proxies.
func (p *Pool) Enabled() bool {
	return p.enabled.Load()
}

// Len returns the current number of proxies.
func (p *Pool) Len() int {
	return len(*p.snapshot.Load())
}

// Next returns the next proxy per the rotation strategy, or nil when the
// pool is disabled or empty.
func (p *Pool) Next() *Descriptor {
	if !p.enabled.Load() {
		return nil
	}
	list := *p.snapshot.Load()
	if len(list) == 0 {
		return nil
	}

	var index int
	switch p.strategy {
	case Random:
		index = rand.IntN(len(list))
	default:
		index = int((p.counter.Add(1) - 1) % uint64(len(list)))
	}

	d := list[index]
	return &d
}

// Refresh fetches a fresh list from the provider and swaps it in
// atomically. The round-robin counter restarts on the new list. Without a
// provider, Refresh is a no-op.
func (p *Pool) Refresh(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	proxies, err := p.provider.FetchProxies(ctx)
	if err != nil {
		return fmt.Errorf("proxy provider: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot.Store(&proxies)
	p.counter.Store(0)
	p.logger.Debug("proxy pool refreshed", zap.Int("proxies", len(proxies)))
	return nil
}

// Add appends a proxy to the pool.
func (p *Pool) Add(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	old := *p.snapshot.Load()
	list := make([]Descriptor, 0, len(old)+1)
	list = append(list, old...)
	list = append(list, d)
	p.snapshot.Store(&list)
	return nil
}

// Remove deletes every proxy matching host and port.
func (p *Pool) Remove(host string, port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := *p.snapshot.Load()
	list := make([]Descriptor, 0, len(old))
	for _, d := range old {
		if d.Host == host && d.Port == port {
			continue
		}
		list = append(list, d)
	}
	p.snapshot.Store(&list)
}

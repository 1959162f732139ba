package browserpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrUnavailable means no browser process could be obtained: no binary
// was found or the launch failed.
var ErrUnavailable = errors.New("browser unavailable")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls the shared browser process and tab limits.
type Config struct {
	// MaxTabs bounds concurrently open tabs. Default 4.
	MaxTabs int64
	// Headless runs the browser without a window. Default true.
	Headless bool
	// ChromePath pins the browser binary, skipping discovery.
	ChromePath string
	// ProxyURL routes all browser traffic through the given proxy.
	ProxyURL string
	// Discover locates the browser binary when ChromePath is empty.
	// Defaults to Discover.
	Discover func() (string, error)
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{MaxTabs: 4, Headless: true}
}

// Pool maintains at most one live browser process and hands out tab
// leases bounded by a weighted semaphore.
//
// The process starts lazily on the first lease. A crashed process is
// detected through its dead context and relaunched on the next lease;
// leases taken before the crash fail individually but still release
// their slots.
type Pool struct {
	cfg    Config
	logger *zap.Logger
	sem    *semaphore.Weighted

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// start warms up the browser process for a fresh context. Swapped
	// out in tests to avoid launching a real browser.
	start func(ctx context.Context) error
}

// New creates a pool. The browser process is not started until the first
// Lease call.
func New(cfg Config, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTabs <= 0 {
		cfg.MaxTabs = 4
	}
	if cfg.Discover == nil {
		cfg.Discover = Discover
	}
	return &Pool{
		cfg:    cfg,
		logger: logger,
		sem:    semaphore.NewWeighted(cfg.MaxTabs),
		start:  func(ctx context.Context) error { return chromedp.Run(ctx) },
	}
}

// Tab is a leased browser tab. Context drives chromedp actions; Release
// closes the tab and returns the concurrency slot. Release is safe to
// call more than once and must be called on every exit path.
type Tab struct {
	ctx     context.Context
	cancel  context.CancelFunc
	pool    *Pool
	release sync.Once
}

// Context returns the chromedp context for this tab.
func (t *Tab) Context() context.Context {
	return t.ctx
}

// Release closes the tab and frees its slot.
func (t *Tab) Release() {
	t.release.Do(func() {
		t.cancel()
		t.pool.sem.Release(1)
	})
}

// Lease acquires a tab slot, starting or restarting the browser process
// if needed, and opens a fresh tab. Callers must Release the tab on all
// paths. Lease blocks while all slots are taken; ctx cancellation while
// waiting returns ctx.Err().
func (p *Pool) Lease(ctx context.Context) (*Tab, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	browserCtx, err := p.browser(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	return &Tab{ctx: tabCtx, cancel: tabCancel, pool: p}, nil
}

// browser returns a live browser context, launching or relaunching the
// process as needed.
func (p *Pool) browser(ctx context.Context) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browserCtx != nil && p.browserCtx.Err() == nil {
		return p.browserCtx, nil
	}
	if p.browserCtx != nil {
		p.logger.Warn("browser process died, relaunching")
		p.teardownLocked()
	}

	binary := p.cfg.ChromePath
	if binary == "" {
		var err error
		binary, err = p.cfg.Discover()
		if err != nil {
			return nil, fmt.Errorf("locating browser binary: %w", ErrUnavailable)
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(binary),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(defaultUserAgent),
		chromedp.Flag("accept-language", "en-US,en;q=0.9"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", ""),
	)
	if !p.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if p.cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(p.cfg.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := p.start(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launching browser %s: %v: %w", binary, err, ErrUnavailable)
	}

	p.logger.Info("browser launched", zap.String("binary", binary))
	p.allocCancel = allocCancel
	p.browserCtx = browserCtx
	p.browserCancel = browserCancel
	return browserCtx, nil
}

func (p *Pool) teardownLocked() {
	if p.browserCancel != nil {
		p.browserCancel()
		p.browserCancel = nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	p.browserCtx = nil
}

// Shutdown stops the browser process. Outstanding leases become invalid
// but their Release calls still return slots. Shutdown is idempotent;
// the pool relaunches on a later Lease.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browserCtx != nil {
		p.logger.Debug("browser pool shut down")
	}
	p.teardownLocked()
}

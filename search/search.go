package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"a3s/pkg/proxypool"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout is the default per-query deadline.
const DefaultTimeout = 10 * time.Second

// Search orchestrates a query across the registered engines and merges
// their replies.
//
// The registry is append-only: engines are added before the first Search
// call and are immutable afterwards. Adding engines concurrently with
// searches is not supported.
type Search struct {
	logger     *zap.Logger
	engines    []Engine
	byShortcut map[string]Engine
	timeout    time.Duration
	proxies    *proxypool.Pool
	aggregator Aggregator
}

// New creates an empty orchestrator. A nil logger disables logging.
func New(logger *zap.Logger) *Search {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Search{
		logger:     logger,
		byShortcut: make(map[string]Engine),
		timeout:    DefaultTimeout,
	}
}

// AddEngine appends an engine to the registry. Registering a duplicate
// shortcut, an empty name or shortcut, or a non-positive weight is caller
// error and returns a ConfigError.
func (s *Search) AddEngine(engine Engine) error {
	cfg := engine.Config()
	if cfg.Name == "" || cfg.Shortcut == "" {
		return &ConfigError{Reason: "engine name and shortcut must be non-empty"}
	}
	if cfg.Weight <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("engine %q: weight must be positive, got %v", cfg.Name, cfg.Weight)}
	}
	if _, exists := s.byShortcut[cfg.Shortcut]; exists {
		return &ConfigError{Reason: fmt.Sprintf("duplicate engine shortcut %q", cfg.Shortcut)}
	}
	s.byShortcut[cfg.Shortcut] = engine
	s.engines = append(s.engines, engine)
	return nil
}

// SetTimeout sets the default per-query deadline. Each engine runs under
// min(engine timeout, this deadline).
func (s *Search) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// SetProxyPool installs a shared proxy pool handle.
func (s *Search) SetProxyPool(pool *proxypool.Pool) {
	s.proxies = pool
}

// ProxyPool returns the installed proxy pool, or nil.
func (s *Search) ProxyPool() *proxypool.Pool {
	return s.proxies
}

// EngineConfigs returns the configs of all registered engines in
// registration order.
func (s *Search) EngineConfigs() []EngineConfig {
	configs := make([]EngineConfig, 0, len(s.engines))
	for _, e := range s.engines {
		configs = append(configs, e.Config())
	}
	return configs
}

type engineOutcome struct {
	engine  string
	weight  float64
	results []Result
	err     *EngineError
}

type engineReply struct {
	results []Result
	err     error
}

// Search fans the query out to the active engines in parallel, waits for
// every engine to finish or hit its deadline, and aggregates whatever
// succeeded.
//
// Per-engine failures never fail the call: a response with zero results
// and a populated error list is still a valid response. The only call
// level failure is an InvalidQueryError.
func (s *Search) Search(ctx context.Context, q *Query) (*Response, error) {
	if q == nil || strings.TrimSpace(q.Text) == "" {
		return nil, &InvalidQueryError{Reason: "query text is empty"}
	}
	if q.Page < 1 {
		return nil, &InvalidQueryError{Reason: fmt.Sprintf("page must be >= 1, got %d", q.Page)}
	}

	active, err := s.selectEngines(q)
	if err != nil {
		return nil, err
	}

	searchID := uuid.NewString()
	logger := s.logger.With(zap.String("search_id", searchID))
	logger.Debug("starting search",
		zap.String("query", q.Text),
		zap.Int("engines", len(active)))

	start := time.Now()
	outcomes := make(chan engineOutcome, len(active))

	for _, engine := range active {
		go func(engine Engine) {
			outcomes <- s.runEngine(ctx, engine, q, logger)
		}(engine)
	}

	var (
		successes   []EngineResults
		failures    []EngineError
		suggestions []string
		answers     []string
	)
	for range active {
		out := <-outcomes
		if out.err != nil {
			failures = append(failures, *out.err)
			continue
		}
		// Suggestions and answers ride alongside web results but are not
		// ranked; split them off before aggregation.
		ranked := out.results[:0:0]
		for _, r := range out.results {
			switch r.Type {
			case TypeSuggestion:
				suggestions = append(suggestions, r.Title)
			case TypeAnswer:
				answers = append(answers, r.Content)
			default:
				ranked = append(ranked, r)
			}
		}
		successes = append(successes, EngineResults{
			Engine:  out.engine,
			Weight:  out.weight,
			Results: ranked,
		})
	}

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Engine < failures[j].Engine
	})

	results := s.aggregator.Aggregate(successes)
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	sort.Strings(suggestions)
	sort.Strings(answers)

	resp := &Response{
		Results:     results,
		Count:       len(results),
		DurationMS:  time.Since(start).Milliseconds(),
		Errors:      failures,
		Suggestions: dedupeSorted(suggestions),
		Answers:     dedupeSorted(answers),
	}

	logger.Info("search finished",
		zap.Int("results", resp.Count),
		zap.Int("failed_engines", len(failures)),
		zap.Int64("duration_ms", resp.DurationMS))

	return resp, nil
}

// runEngine executes one engine under min(engine timeout, default
// deadline). A reply arriving after the deadline is dropped: the inner
// goroutine writes into a buffered channel nobody reads anymore.
func (s *Search) runEngine(ctx context.Context, engine Engine, q *Query, logger *zap.Logger) engineOutcome {
	cfg := engine.Config()

	budget := s.timeout
	if cfg.Timeout > 0 && cfg.Timeout < budget {
		budget = cfg.Timeout
	}
	ectx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	reply := make(chan engineReply, 1)
	go func() {
		results, err := engine.Search(ectx, q)
		reply <- engineReply{results: results, err: err}
	}()

	out := engineOutcome{engine: cfg.Name, weight: cfg.Weight}

	select {
	case r := <-reply:
		if r.err != nil {
			out.err = classifyEngineError(cfg.Name, r.err)
			logger.Warn("engine failed",
				zap.String("engine", cfg.Name),
				zap.String("kind", string(out.err.Kind)),
				zap.String("message", out.err.Message))
			return out
		}
		out.results = r.results
		logger.Debug("engine returned",
			zap.String("engine", cfg.Name),
			zap.Int("results", len(r.results)))
	case <-ectx.Done():
		out.err = &EngineError{
			Engine:  cfg.Name,
			Kind:    ErrTimeout,
			Message: fmt.Sprintf("no reply within %s", budget),
		}
		logger.Warn("engine timed out",
			zap.String("engine", cfg.Name),
			zap.Duration("budget", budget))
	}
	return out
}

// selectEngines resolves the active engine set for a query. An explicit
// shortcut list is intersected with the registry; an empty intersection is
// an InvalidQueryError. Without an explicit list, all enabled engines
// whose categories overlap the query's categories participate.
func (s *Search) selectEngines(q *Query) ([]Engine, error) {
	if len(q.Engines) > 0 {
		requested := make(map[string]bool, len(q.Engines))
		for _, shortcut := range q.Engines {
			requested[shortcut] = true
		}
		var active []Engine
		for _, engine := range s.engines {
			if requested[engine.Config().Shortcut] {
				active = append(active, engine)
			}
		}
		if len(active) == 0 {
			return nil, &InvalidQueryError{
				Reason: fmt.Sprintf("no registered engine matches %v", q.Engines),
			}
		}
		return active, nil
	}

	var active []Engine
	for _, engine := range s.engines {
		cfg := engine.Config()
		if !cfg.Enabled {
			continue
		}
		if len(q.Categories) > 0 && !hasAnyCategory(cfg, q.Categories) {
			continue
		}
		active = append(active, engine)
	}
	return active, nil
}

func dedupeSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func hasAnyCategory(cfg EngineConfig, categories []Category) bool {
	for _, cat := range categories {
		if cfg.HasCategory(cat) {
			return true
		}
	}
	return false
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"a3s/config"
	"a3s/engines"
	"a3s/fetcher"
	"a3s/pkg/browserpool"
	"a3s/pkg/proxypool"
	"a3s/search"

	"go.uber.org/zap"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML settings file")
		engineList  = flag.String("engines", "", "comma-separated engine shortcuts (default: all enabled)")
		limit       = flag.Int("limit", 10, "maximum number of results")
		timeout     = flag.Duration("timeout", 10*time.Second, "per-query deadline")
		page        = flag.Int("page", 1, "result page (1-based)")
		language    = flag.String("lang", "", "language tag, e.g. en-US")
		proxyURL    = flag.String("proxy", "", "proxy url, e.g. socks5://127.0.0.1:1080")
		jsonOut     = flag.Bool("json", false, "print the response as JSON")
		listEngines = flag.Bool("list-engines", false, "list registered engines and exit")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	// =========
	// Logging
	// =========
	logger, err := newLogger(*verbose)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// =========
	// Config
	// =========
	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}
	settings.FromEnv()

	// =========
	// Proxy pool
	// =========
	pool := proxypool.WithProxies(settings.Proxies, logger)
	if *proxyURL != "" {
		desc, err := proxypool.ParseURL(*proxyURL)
		if err != nil {
			log.Fatalf("invalid -proxy: %v", err)
		}
		pool = proxypool.WithProxies([]proxypool.Descriptor{desc}, logger)
	}

	// =========
	// Fetchers
	// =========
	httpFetcher := fetcher.NewHTTPFetcher(pool, logger)

	browserCfg := browserpool.DefaultConfig()
	browserCfg.ChromePath = settings.Browser.ChromePath
	if settings.Browser.MaxTabs > 0 {
		browserCfg.MaxTabs = settings.Browser.MaxTabs
	}
	if *proxyURL != "" {
		browserCfg.ProxyURL = *proxyURL
	}
	browsers := browserpool.New(browserCfg, logger)
	defer browsers.Shutdown()
	browserFetcher := fetcher.NewBrowserFetcher(browsers, logger)

	// =========
	// Search
	// =========
	s := search.New(logger)
	s.SetTimeout(*timeout)
	if settings.Timeout() > 0 {
		s.SetTimeout(settings.Timeout())
	}
	s.SetProxyPool(pool)

	registered := []search.Engine{
		applySettings(engines.NewDuckDuckGo(httpFetcher, logger), settings),
		applySettings(engines.NewWikipedia(httpFetcher, logger), settings),
		applySettings(engines.NewBrave(browserFetcher, logger), settings),
	}
	for _, e := range registered {
		if err := s.AddEngine(e); err != nil {
			log.Fatalf("failed to register engine: %v", err)
		}
	}

	if *listEngines {
		printEngines(s.EngineConfigs())
		return
	}

	queryText := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(queryText) == "" {
		fmt.Fprintln(os.Stderr, "usage: a3s [flags] <query>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	query := search.NewQuery(queryText).
		WithPage(*page).
		WithLimit(*limit)
	if *language != "" {
		query = query.WithLanguage(*language)
	}
	if *engineList != "" {
		query = query.WithEngines(strings.Split(*engineList, ",")...)
	}

	resp, err := s.Search(context.Background(), query)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}

	if *jsonOut {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			log.Fatalf("failed to encode response: %v", err)
		}
		fmt.Println(string(out))
		return
	}
	printResponse(resp)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// applySettings folds per-engine YAML overrides into an adapter's config.
func applySettings[E interface {
	search.Engine
	WithConfig(search.EngineConfig) E
}](engine E, settings *config.Settings) E {
	override, ok := settings.Engines[engine.Config().Shortcut]
	if !ok {
		return engine
	}
	cfg := engine.Config()
	if override.Weight > 0 {
		cfg.Weight = override.Weight
	}
	if override.Timeout > 0 {
		cfg.Timeout = time.Duration(override.Timeout) * time.Second
	}
	if override.Enabled != nil {
		cfg.Enabled = *override.Enabled
	}
	return engine.WithConfig(cfg)
}

func printEngines(configs []search.EngineConfig) {
	fmt.Printf("%-12s %-8s %-8s %-9s %s\n", "NAME", "SHORTCUT", "WEIGHT", "TIMEOUT", "ENABLED")
	for _, cfg := range configs {
		fmt.Printf("%-12s %-8s %-8.1f %-9s %v\n",
			cfg.Name, cfg.Shortcut, cfg.Weight, cfg.Timeout, cfg.Enabled)
	}
}

func printResponse(resp *search.Response) {
	for i, r := range resp.Results {
		fmt.Printf("%2d. %s\n    %s\n", i+1, r.Title, r.URL)
		if r.Content != "" {
			fmt.Printf("    %s\n", r.Content)
		}
		fmt.Printf("    score=%.2f engines=%s\n", r.Score, strings.Join(r.Engines, ","))
	}
	if len(resp.Errors) > 0 {
		fmt.Fprintln(os.Stderr)
		for _, e := range resp.Errors {
			fmt.Fprintf(os.Stderr, "engine %s failed: %s: %s\n", e.Engine, e.Kind, e.Message)
		}
	}
	fmt.Printf("\n%d results in %dms\n", resp.Count, resp.DurationMS)
}

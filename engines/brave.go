package engines

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"a3s/fetcher"
	"a3s/search"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	braveEndpoint     = "https://search.brave.com/search"
	braveResultsReady = "div#results"
)

// Brave scrapes Brave Search. The result page is JavaScript-rendered, so
// this adapter needs a browser-backed fetcher; pair it with
// fetcher.NewBrowserFetcher.
type Brave struct {
	cfg     search.EngineConfig
	fetcher fetcher.Fetcher
	logger  *zap.Logger
}

// NewBrave creates the adapter over the given fetcher.
func NewBrave(f fetcher.Fetcher, logger *zap.Logger) *Brave {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := search.DefaultEngineConfig("Brave", "brave")
	cfg.Timeout = 15 * time.Second
	cfg.Paging = true
	cfg.SafeSearch = true
	return &Brave{cfg: cfg, fetcher: f, logger: logger}
}

// WithConfig replaces the engine config.
func (e *Brave) WithConfig(cfg search.EngineConfig) *Brave {
	e.cfg = cfg
	return e
}

func (e *Brave) Config() search.EngineConfig {
	return e.cfg
}

func (e *Brave) Search(ctx context.Context, q *search.Query) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.Page > 1 {
		params.Set("offset", strconv.Itoa(q.Page-1))
	}
	switch q.SafeSearch {
	case search.SafeSearchStrict:
		params.Set("safesearch", "strict")
	case search.SafeSearchModerate:
		params.Set("safesearch", "moderate")
	default:
		params.Set("safesearch", "off")
	}

	opts := fetcher.Options{
		Wait: fetcher.WaitForSelector(braveResultsReady, 5*time.Second),
	}
	body, err := e.fetcher.Fetch(ctx, braveEndpoint+"?"+params.Encode(), opts)
	if err != nil {
		return nil, err
	}
	return e.parse(body)
}

func (e *Brave) parse(body []byte) ([]search.Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &search.EngineError{
			Kind:    search.ErrParse,
			Message: fmt.Sprintf("parsing result page: %v", err),
		}
	}

	var results []search.Result
	doc.Find(`div.snippet[data-type="web"]`).Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".search-snippet-title").First().Text())
		if title == "" {
			title = strings.TrimSpace(sel.Find(".title").First().Text())
		}
		href, _ := sel.Find(`a[href^="http"]`).First().Attr("href")
		content := strings.TrimSpace(sel.Find(".snippet-description").First().Text())

		if href == "" || title == "" || !strings.HasPrefix(href, "http") {
			return
		}

		results = append(results, search.Result{
			URL:      href,
			Title:    title,
			Content:  content,
			Type:     search.TypeWeb,
			Position: len(results) + 1,
		})
	})

	e.logger.Debug("brave parsed", zap.Int("results", len(results)))
	return results, nil
}

// Package engines contains the reference search engine adapters. Each
// adapter owns its config and talks to its backend through an injected
// fetcher, returning raw ranked results with 1-based positions.
package engines

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"a3s/fetcher"
	"a3s/search"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const ddgEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML-only DuckDuckGo endpoint, which serves
// server-rendered results and needs no browser.
type DuckDuckGo struct {
	cfg     search.EngineConfig
	fetcher fetcher.Fetcher
	logger  *zap.Logger
}

// NewDuckDuckGo creates the adapter over the given fetcher.
func NewDuckDuckGo(f fetcher.Fetcher, logger *zap.Logger) *DuckDuckGo {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := search.DefaultEngineConfig("DuckDuckGo", "ddg")
	cfg.Paging = true
	cfg.SafeSearch = true
	return &DuckDuckGo{cfg: cfg, fetcher: f, logger: logger}
}

// WithConfig replaces the engine config.
func (e *DuckDuckGo) WithConfig(cfg search.EngineConfig) *DuckDuckGo {
	e.cfg = cfg
	return e
}

func (e *DuckDuckGo) Config() search.EngineConfig {
	return e.cfg
}

func (e *DuckDuckGo) Search(ctx context.Context, q *search.Query) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.Page > 1 {
		params.Set("s", strconv.Itoa((q.Page-1)*30))
	}
	switch q.SafeSearch {
	case search.SafeSearchStrict:
		params.Set("kp", "1")
	case search.SafeSearchModerate:
		params.Set("kp", "-1")
	default:
		params.Set("kp", "-2")
	}
	switch q.TimeRange {
	case search.TimeRangeDay:
		params.Set("df", "d")
	case search.TimeRangeWeek:
		params.Set("df", "w")
	case search.TimeRangeMonth:
		params.Set("df", "m")
	case search.TimeRangeYear:
		params.Set("df", "y")
	}
	if q.Language != "" {
		params.Set("kl", strings.ToLower(q.Language))
	}

	body, err := e.fetcher.Fetch(ctx, ddgEndpoint+"?"+params.Encode(), fetcher.Options{})
	if err != nil {
		return nil, err
	}
	return e.parse(body)
}

func (e *DuckDuckGo) parse(body []byte) ([]search.Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &search.EngineError{
			Kind:    search.ErrParse,
			Message: fmt.Sprintf("parsing result page: %v", err),
		}
	}

	var results []search.Result
	doc.Find(".result").Each(func(i int, sel *goquery.Selection) {
		titleLink := sel.Find(".result__title a").First()
		href, _ := titleLink.Attr("href")
		title := strings.TrimSpace(titleLink.Text())
		content := strings.TrimSpace(sel.Find(".result__snippet").First().Text())

		href = resolveDDGRedirect(href)
		if href == "" || title == "" {
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

	e.logger.Debug("duckduckgo parsed", zap.Int("results", len(results)))
	return results, nil
}

// resolveDDGRedirect unwraps DuckDuckGo's /l/?uddg= redirect links into
// the target URL.
func resolveDDGRedirect(href string) string {
	const prefix = "//duckduckgo.com/l/"
	if !strings.HasPrefix(href, prefix) && !strings.HasPrefix(href, "https:"+prefix) {
		return href
	}
	idx := strings.Index(href, "uddg=")
	if idx < 0 {
		return href
	}
	target := href[idx+len("uddg="):]
	if amp := strings.IndexByte(target, '&'); amp >= 0 {
		target = target[:amp]
	}
	decoded, err := url.QueryUnescape(target)
	if err != nil {
		return href
	}
	return decoded
}

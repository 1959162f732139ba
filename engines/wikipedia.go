package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"a3s/fetcher"
	"a3s/search"

	"go.uber.org/zap"
)

// Wikipedia queries the MediaWiki search API. Being a JSON API it is the
// most reliable of the reference adapters and carries a slightly higher
// weight.
type Wikipedia struct {
	cfg     search.EngineConfig
	fetcher fetcher.Fetcher
	logger  *zap.Logger
}

// NewWikipedia creates the adapter over the given fetcher.
func NewWikipedia(f fetcher.Fetcher, logger *zap.Logger) *Wikipedia {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := search.DefaultEngineConfig("Wikipedia", "wiki")
	cfg.Weight = 1.2
	return &Wikipedia{cfg: cfg, fetcher: f, logger: logger}
}

// WithConfig replaces the engine config.
func (e *Wikipedia) WithConfig(cfg search.EngineConfig) *Wikipedia {
	e.cfg = cfg
	return e
}

func (e *Wikipedia) Config() search.EngineConfig {
	return e.cfg
}

type wikiResponse struct {
	Query *struct {
		Search []struct {
			Title     string `json:"title"`
			Snippet   string `json:"snippet"`
			Timestamp string `json:"timestamp"`
		} `json:"search"`
	} `json:"query"`
}

func (e *Wikipedia) Search(ctx context.Context, q *search.Query) ([]search.Result, error) {
	lang := language(q.Language)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", q.Text)
	params.Set("format", "json")
	params.Set("srlimit", "10")

	endpoint := fmt.Sprintf("https://%s.wikipedia.org/w/api.php?%s", lang, params.Encode())
	body, err := e.fetcher.Fetch(ctx, endpoint, fetcher.Options{})
	if err != nil {
		return nil, err
	}

	var resp wikiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &search.EngineError{
			Kind:    search.ErrParse,
			Message: fmt.Sprintf("decoding api response: %v", err),
		}
	}
	if resp.Query == nil {
		return nil, nil
	}

	results := make([]search.Result, 0, len(resp.Query.Search))
	for i, item := range resp.Query.Search {
		results = append(results, search.Result{
			URL:           fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", lang, strings.ReplaceAll(item.Title, " ", "_")),
			Title:         item.Title,
			Content:       stripTags(item.Snippet),
			Type:          search.TypeWeb,
			Position:      i + 1,
			PublishedDate: item.Timestamp,
		})
	}

	e.logger.Debug("wikipedia parsed", zap.Int("results", len(results)))
	return results, nil
}

// language reduces a locale tag like "en-US" to the wiki subdomain.
func language(tag string) string {
	if tag == "" {
		return "en"
	}
	if idx := strings.IndexAny(tag, "-_"); idx > 0 {
		tag = tag[:idx]
	}
	return strings.ToLower(tag)
}

// stripTags removes the highlight markup the API embeds in snippets.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

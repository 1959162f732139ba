package search

// ResultType tags what kind of result an engine produced.
type ResultType string

const (
	TypeWeb        ResultType = "web"
	TypeImage      ResultType = "image"
	TypeVideo      ResultType = "video"
	TypeNews       ResultType = "news"
	TypeMap        ResultType = "map"
	TypeFile       ResultType = "file"
	TypeAnswer     ResultType = "answer"
	TypeInfobox    ResultType = "infobox"
	TypeSuggestion ResultType = "suggestion"
)

// Result is a single raw result as returned by one engine, before
// aggregation. Position is the 1-based rank within that engine's list.
type Result struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Type          ResultType `json:"result_type"`
	Position      int        `json:"position"`
	Thumbnail     string     `json:"thumbnail,omitempty"`
	PublishedDate string     `json:"published_date,omitempty"`
}

// MergedResult is a deduplicated result after aggregation. URL holds the
// normalized form used as the deduplication key. Engines lists every engine
// that produced the result and Positions holds the rank in each, in the
// same order.
type MergedResult struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Type          ResultType `json:"result_type"`
	Engines       []string   `json:"engines"`
	Positions     []int      `json:"positions"`
	Score         float64    `json:"score"`
	Thumbnail     string     `json:"thumbnail,omitempty"`
	PublishedDate string     `json:"published_date,omitempty"`
}

// Response is the outcome of one search call: the ranked merged results
// plus per-engine diagnostics for engines that failed.
type Response struct {
	Results     []MergedResult `json:"results"`
	Count       int            `json:"count"`
	DurationMS  int64          `json:"duration_ms"`
	Errors      []EngineError  `json:"errors,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Answers     []string       `json:"answers,omitempty"`
}

package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranked(urls ...string) []Result {
	results := make([]Result, 0, len(urls))
	for i, u := range urls {
		results = append(results, Result{
			URL:      u,
			Title:    "title " + u,
			Content:  "content " + u,
			Position: i + 1,
		})
	}
	return results
}

func TestAggregateConsensusBoost(t *testing.T) {
	var agg Aggregator
	results := agg.Aggregate([]EngineResults{
		{Engine: "A", Weight: 1.0, Results: ranked("https://u1.example/", "https://u2.example/")},
		{Engine: "B", Weight: 1.0, Results: ranked("https://u1.example/", "https://u3.example/")},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "https://u1.example/", results[0].URL)
	assert.Equal(t, "https://u2.example/", results[1].URL)
	assert.Equal(t, "https://u3.example/", results[2].URL)

	// u1 = (1/1 + 1/1) * 2, u2 = u3 = (1/2) * 1
	assert.InDelta(t, 4.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.5, results[1].Score, 1e-9)
	assert.InDelta(t, 0.5, results[2].Score, 1e-9)
}

func TestAggregateWeightDominatesConsensus(t *testing.T) {
	var agg Aggregator
	results := agg.Aggregate([]EngineResults{
		{Engine: "A", Weight: 3.0, Results: ranked("https://u1.example/")},
		{Engine: "B", Weight: 1.0, Results: ranked("https://u2.example/", "https://u1.example/")},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "https://u1.example/", results[0].URL)
	assert.InDelta(t, 7.0, results[0].Score, 1e-9) // (3/1 + 1/2) * 2
	assert.Equal(t, "https://u2.example/", results[1].URL)
	assert.InDelta(t, 1.0, results[1].Score, 1e-9)
}

func TestAggregateNormalizationMerges(t *testing.T) {
	var agg Aggregator
	results := agg.Aggregate([]EngineResults{
		{Engine: "A", Weight: 1.0, Results: []Result{
			{URL: "https://Example.COM/a/?utm_source=x#frag", Title: "From A", Content: "a", Position: 1},
		}},
		{Engine: "B", Weight: 1.0, Results: []Result{
			{URL: "https://example.com/a", Title: "From B", Content: "b", Position: 1},
		}},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/a", results[0].URL)
	assert.ElementsMatch(t, []string{"A", "B"}, results[0].Engines)
	assert.Equal(t, []int{1, 1}, results[0].Positions)
	// First engine in name order wins title and content.
	assert.Equal(t, "From A", results[0].Title)
}

func TestAggregateDeduplicationComplete(t *testing.T) {
	var agg Aggregator
	inputs := []EngineResults{
		{Engine: "A", Weight: 1.0, Results: ranked(
			"https://a.example/x", "https://b.example/y/", "https://c.example/z?utm_source=a")},
		{Engine: "B", Weight: 1.0, Results: ranked(
			"https://b.example/y", "https://c.example/z", "https://a.example/x#frag")},
		{Engine: "C", Weight: 2.0, Results: ranked(
			"https://A.EXAMPLE/x", "https://d.example/w")},
	}
	results := agg.Aggregate(inputs)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.URL], "duplicate normalized URL %q in output", r.URL)
		seen[r.URL] = true
		assert.NotEmpty(t, r.Engines)
		assert.Len(t, r.Positions, len(r.Engines))
		assert.Greater(t, r.Score, 0.0)
	}
	assert.Len(t, results, 4)
}

func TestAggregateConsensusMonotonic(t *testing.T) {
	var agg Aggregator
	base := []EngineResults{
		{Engine: "A", Weight: 1.0, Results: ranked("https://u.example/")},
	}
	without := agg.Aggregate(base)

	for pos := 1; pos <= 5; pos++ {
		extra := make([]Result, pos)
		for i := 0; i < pos-1; i++ {
			extra[i] = Result{URL: fmt.Sprintf("https://filler%d.example/", i), Position: i + 1}
		}
		extra[pos-1] = Result{URL: "https://u.example/", Position: pos}

		with := agg.Aggregate(append(base, EngineResults{Engine: "B", Weight: 1.0, Results: extra}))
		target := findMerged(t, with, "https://u.example/")
		assert.Greater(t, target.Score, without[0].Score,
			"adding engine B at position %d must increase the score", pos)
	}
}

func TestAggregatePositionMonotonic(t *testing.T) {
	var agg Aggregator
	scoreAt := func(pos int) float64 {
		list := make([]Result, pos)
		for i := 0; i < pos-1; i++ {
			list[i] = Result{URL: fmt.Sprintf("https://filler%d.example/", i), Position: i + 1}
		}
		list[pos-1] = Result{URL: "https://u.example/", Position: pos}
		results := agg.Aggregate([]EngineResults{{Engine: "A", Weight: 1.0, Results: list}})
		return findMerged(t, results, "https://u.example/").Score
	}

	prev := scoreAt(1)
	for pos := 2; pos <= 6; pos++ {
		cur := scoreAt(pos)
		assert.Less(t, cur, prev, "score must strictly decrease as position grows (pos %d)", pos)
		prev = cur
	}
}

func TestAggregateDeterministicOrdering(t *testing.T) {
	inputs := []EngineResults{
		{Engine: "B", Weight: 1.0, Results: ranked("https://x.example/", "https://y.example/")},
		{Engine: "A", Weight: 1.5, Results: ranked("https://y.example/", "https://z.example/")},
		{Engine: "C", Weight: 0.5, Results: ranked("https://z.example/", "https://x.example/")},
	}
	var agg Aggregator
	first := agg.Aggregate(inputs)

	// Same data, different input order: output must be identical.
	shuffled := []EngineResults{inputs[2], inputs[0], inputs[1]}
	for i := 0; i < 10; i++ {
		again := agg.Aggregate(shuffled)
		require.Equal(t, first, again)
	}
}

func TestAggregateSameEngineDuplicateKeepsFirst(t *testing.T) {
	var agg Aggregator
	results := agg.Aggregate([]EngineResults{
		{Engine: "A", Weight: 1.0, Results: []Result{
			{URL: "https://u.example/", Title: "first", Position: 1},
			{URL: "https://other.example/", Title: "other", Position: 2},
			{URL: "https://u.example/#dup", Title: "second", Position: 3},
		}},
	})

	target := findMerged(t, results, "https://u.example/")
	assert.Equal(t, []string{"A"}, target.Engines)
	assert.Equal(t, []int{1}, target.Positions)
	assert.Equal(t, "first", target.Title)
}

func TestAggregateTieBreaks(t *testing.T) {
	var agg Aggregator

	// Equal scores, equal engine counts, equal positions: lexicographic URL.
	results := agg.Aggregate([]EngineResults{
		{Engine: "A", Weight: 1.0, Results: []Result{
			{URL: "https://bbb.example/", Position: 2},
		}},
		{Engine: "B", Weight: 1.0, Results: []Result{
			{URL: "https://aaa.example/", Position: 2},
		}},
	})
	require.Len(t, results, 2)
	assert.Equal(t, "https://aaa.example/", results[0].URL)
	assert.Equal(t, "https://bbb.example/", results[1].URL)
}

func TestAggregateMergesThumbnailAndDate(t *testing.T) {
	var agg Aggregator
	results := agg.Aggregate([]EngineResults{
		{Engine: "A", Weight: 1.0, Results: []Result{
			{URL: "https://u.example/", Title: "t", Position: 1},
		}},
		{Engine: "B", Weight: 1.0, Results: []Result{
			{URL: "https://u.example/", Title: "t", Position: 1,
				Thumbnail: "https://u.example/thumb.jpg", PublishedDate: "2025-06-01"},
		}},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "https://u.example/thumb.jpg", results[0].Thumbnail)
	assert.Equal(t, "2025-06-01", results[0].PublishedDate)
}

func TestAggregateEmptyInput(t *testing.T) {
	var agg Aggregator
	assert.Empty(t, agg.Aggregate(nil))
	assert.Empty(t, agg.Aggregate([]EngineResults{{Engine: "A", Weight: 1.0}}))
}

func findMerged(t *testing.T, results []MergedResult, url string) MergedResult {
	t.Helper()
	for _, r := range results {
		if r.URL == url {
			return r
		}
	}
	t.Fatalf("url %q not found in merged results", url)
	return MergedResult{}
}

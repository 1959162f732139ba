package search

import (
	"sort"
)

// EngineResults is one engine's ranked reply, paired with its weight.
type EngineResults struct {
	Engine  string
	Weight  float64
	Results []Result
}

// Aggregator merges per-engine result lists into a single deduplicated,
// consensus-ranked list. It is stateless; Aggregate is a pure function of
// its input.
type Aggregator struct{}

// Aggregate deduplicates results by normalized URL, merges duplicates and
// returns the merged list sorted by descending score.
//
// Engines are processed in name order so that merge decisions (which title
// survives, the order of the engines set) do not depend on reply arrival.
// Within a single engine, repeated normalized URLs keep only the first,
// lowest-position occurrence.
//
// The score of a merged result found by engines E at positions p_e is
//
//	score = (sum over e of w_e / p_e) * |E|
//
// where the trailing factor rewards consensus across engines. Ties are
// broken by larger engine count, then smaller positional mean, then
// lexicographic URL.
func (a *Aggregator) Aggregate(engineResults []EngineResults) []MergedResult {
	inputs := make([]EngineResults, len(engineResults))
	copy(inputs, engineResults)
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].Engine < inputs[j].Engine
	})

	weights := make(map[string]float64, len(inputs))
	for _, in := range inputs {
		w := in.Weight
		if w <= 0 {
			w = 1.0
		}
		weights[in.Engine] = w
	}

	merged := make(map[string]*MergedResult)
	var order []string

	for _, in := range inputs {
		seen := make(map[string]bool, len(in.Results))
		for i, r := range in.Results {
			normalized, err := NormalizeURL(r.URL)
			if err != nil || normalized == "" {
				continue
			}
			if seen[normalized] {
				continue
			}
			seen[normalized] = true

			position := r.Position
			if position < 1 {
				position = i + 1
			}

			existing, ok := merged[normalized]
			if !ok {
				typ := r.Type
				if typ == "" {
					typ = TypeWeb
				}
				merged[normalized] = &MergedResult{
					URL:           normalized,
					Title:         r.Title,
					Content:       r.Content,
					Type:          typ,
					Engines:       []string{in.Engine},
					Positions:     []int{position},
					Thumbnail:     r.Thumbnail,
					PublishedDate: r.PublishedDate,
				}
				order = append(order, normalized)
				continue
			}

			existing.Engines = append(existing.Engines, in.Engine)
			existing.Positions = append(existing.Positions, position)
			if existing.Thumbnail == "" && r.Thumbnail != "" {
				existing.Thumbnail = r.Thumbnail
			}
			if existing.PublishedDate == "" && r.PublishedDate != "" {
				existing.PublishedDate = r.PublishedDate
			}
		}
	}

	results := make([]MergedResult, 0, len(order))
	for _, key := range order {
		m := merged[key]
		m.Score = score(m, weights)
		results = append(results, *m)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return lessMerged(&results[i], &results[j])
	})

	return results
}

func score(m *MergedResult, weights map[string]float64) float64 {
	var sum float64
	for i, engine := range m.Engines {
		w, ok := weights[engine]
		if !ok {
			w = 1.0
		}
		sum += w / float64(m.Positions[i])
	}
	return sum * float64(len(m.Engines))
}

// lessMerged is the total order on merged results: score descending, then
// engine count descending, then positional mean ascending, then URL.
func lessMerged(a, b *MergedResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if len(a.Engines) != len(b.Engines) {
		return len(a.Engines) > len(b.Engines)
	}
	am, bm := positionMean(a.Positions), positionMean(b.Positions)
	if am != bm {
		return am < bm
	}
	return a.URL < b.URL
}

func positionMean(positions []int) float64 {
	if len(positions) == 0 {
		return 0
	}
	var sum int
	for _, p := range positions {
		sum += p
	}
	return float64(sum) / float64(len(positions))
}

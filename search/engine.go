package search

import (
	"context"
	"slices"
	"time"
)

// EngineConfig describes a registered engine.
type EngineConfig struct {
	// Name is the display name, e.g. "DuckDuckGo".
	Name string
	// Shortcut is the short identifier used in Query.Engines, e.g. "ddg".
	Shortcut string
	// Categories this engine serves.
	Categories []Category
	// Weight scales this engine's contribution to result scores. Must be
	// positive; 1.0 is neutral.
	Weight float64
	// Timeout bounds a single search on this engine. The orchestrator
	// enforces min(Timeout, default per-query deadline).
	Timeout time.Duration
	// Enabled engines participate when the query names no explicit set.
	Enabled bool
	// Paging reports whether the engine honors Query.Page.
	Paging bool
	// SafeSearch reports whether the engine honors Query.SafeSearch.
	SafeSearch bool
}

// DefaultEngineConfig returns a config with neutral weight, a 5 second
// timeout and the general category, matching what most adapters want.
func DefaultEngineConfig(name, shortcut string) EngineConfig {
	return EngineConfig{
		Name:       name,
		Shortcut:   shortcut,
		Categories: []Category{CategoryGeneral},
		Weight:     1.0,
		Timeout:    5 * time.Second,
		Enabled:    true,
	}
}

// HasCategory reports whether the engine serves the given category.
func (c EngineConfig) HasCategory(cat Category) bool {
	return slices.Contains(c.Categories, cat)
}

// Engine is the contract every search engine adapter implements.
//
// Search returns the engine's own ranking with 1-based positions. Adapters
// must not deduplicate across calls, must respect ctx cancellation, and
// must return structured errors (EngineError or fetcher errors) rather
// than panicking.
type Engine interface {
	Config() EngineConfig
	Search(ctx context.Context, q *Query) ([]Result, error)
}

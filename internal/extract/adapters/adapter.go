// Package adapters holds the directory extraction strategies and the pure
// selector that maps a classified page to one of them.
package adapters

import (
	"context"

	"github.com/ppiankov/parishscope/internal/browser"
	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/llm"
	"github.com/ppiankov/parishscope/internal/model"
	"go.uber.org/zap"
)

// GenericConfidence is the fixed low confidence of the last-resort strategy
const GenericConfidence = 30

// Strategy extracts parish records from one directory page
type Strategy interface {
	// Name returns the strategy name
	Name() model.StrategyName

	// Extract returns the records found on env.Page. Errors become an
	// empty result at the dispatcher boundary.
	Extract(ctx context.Context, env *Env) ([]model.ParishRecord, error)
}

// Env is everything a strategy may use
type Env struct {
	Page *extract.Page

	// Session is nil in HTTP-only mode; strategies fall back to static DOM reads
	Session browser.Session

	// Fetcher loads detail pages, iframe sources and pagination
	Fetcher model.PageFetcher

	// Classifier is optional
	Classifier    llm.Classifier
	MinConfidence float64

	Limits model.ExtractionConfig
	Logger *zap.Logger

	// Confidence is the base confidence chosen by Select
	Confidence int

	dispatcher *Dispatcher
	hops       int
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) fetch(ctx context.Context, rawURL string) (*extract.Page, error) {
	if e.Fetcher == nil {
		return nil, model.ErrNoSession
	}
	raw, err := e.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return extract.NewPage(raw)
}

// baseConfidence is intrinsic to each strategy
var baseConfidence = map[model.StrategyName]int{
	model.StrategyStaticTable:       90,
	model.StrategyCardLayout:        85,
	model.StrategyInteractiveSearch: 80,
	model.StrategyInteractiveMap:    75,
	model.StrategyIframeEmbedded:    70,
	model.StrategyHoverNavigation:   65,
	model.StrategyGeneric:           GenericConfidence,
}

var patternStrategies = map[model.ListingPattern]model.StrategyName{
	model.PatternIframeEmbedded:    model.StrategyIframeEmbedded,
	model.PatternCardLayout:        model.StrategyCardLayout,
	model.PatternHoverNavigation:   model.StrategyHoverNavigation,
	model.PatternInteractiveSearch: model.StrategyInteractiveSearch,
	model.PatternStaticTable:       model.StrategyStaticTable,
	model.PatternInteractiveMap:    model.StrategyInteractiveMap,
}

// hintOverrides pick the vendor's dedicated strategy regardless of the detected pattern
var hintOverrides = map[model.PlatformHint]model.StrategyName{
	model.HintECatholic:      model.StrategyCardLayout,
	model.HintWordPressMap:   model.StrategyInteractiveMap,
	model.HintParishesOnline: model.StrategyIframeEmbedded,
	model.HintDiocesanFinder: model.StrategyInteractiveSearch,
}

// Select maps a listing pattern and platform hint to exactly one strategy
// and its base confidence. Unknown always selects generic.
func Select(pattern model.ListingPattern, hint model.PlatformHint) (model.StrategyName, int) {
	if pattern == model.PatternUnknown {
		return model.StrategyGeneric, GenericConfidence
	}

	name, ok := hintOverrides[hint]
	if !ok {
		name, ok = patternStrategies[pattern]
	}
	if !ok {
		name = model.StrategyGeneric
	}
	return name, baseConfidence[name]
}

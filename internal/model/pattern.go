package model

// ListingPattern is the presentational shape of a directory page
type ListingPattern int

const (
	PatternUnknown ListingPattern = iota
	PatternIframeEmbedded
	PatternCardLayout
	PatternHoverNavigation
	PatternInteractiveSearch
	PatternStaticTable
	PatternInteractiveMap
)

// AllPatterns lists every pattern, Unknown included
var AllPatterns = []ListingPattern{
	PatternIframeEmbedded,
	PatternCardLayout,
	PatternHoverNavigation,
	PatternInteractiveSearch,
	PatternStaticTable,
	PatternInteractiveMap,
	PatternUnknown,
}

func (p ListingPattern) String() string {
	switch p {
	case PatternIframeEmbedded:
		return "iframe_embedded"
	case PatternCardLayout:
		return "card_layout"
	case PatternHoverNavigation:
		return "hover_navigation"
	case PatternInteractiveSearch:
		return "interactive_search"
	case PatternStaticTable:
		return "static_table"
	case PatternInteractiveMap:
		return "interactive_map"
	default:
		return "unknown"
	}
}

// PlatformHint is a known site-builder signature. Empty means no hint.
type PlatformHint string

const (
	HintNone           PlatformHint = ""
	HintECatholic      PlatformHint = "ecatholic"
	HintWordPressMap   PlatformHint = "wordpress_map"
	HintParishesOnline PlatformHint = "parishes_online"
	HintDiocesanFinder PlatformHint = "diocesan_finder"
	HintSquarespace    PlatformHint = "squarespace"
	HintWix            PlatformHint = "wix"
)

// AllHints lists every known hint, HintNone included
var AllHints = []PlatformHint{
	HintNone,
	HintECatholic,
	HintWordPressMap,
	HintParishesOnline,
	HintDiocesanFinder,
	HintSquarespace,
	HintWix,
}

// StrategyName identifies an extraction strategy
type StrategyName string

const (
	StrategyCardLayout        StrategyName = "card_layout"
	StrategyInteractiveSearch StrategyName = "interactive_search"
	StrategyStaticTable       StrategyName = "static_table"
	StrategyInteractiveMap    StrategyName = "interactive_map"
	StrategyIframeEmbedded    StrategyName = "iframe_embedded"
	StrategyHoverNavigation   StrategyName = "hover_navigation"
	StrategyGeneric           StrategyName = "generic"
)

package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/parishscope/internal/model"
)

// Classification is the listing pattern detected on a directory page
type Classification struct {
	Pattern model.ListingPattern
	Hint    model.PlatformHint
	// Signals explain the decision, for debug logging
	Signals []string
}

// DirectoryTerms mark links and labels that lead to a parish listing
var DirectoryTerms = []string{
	"parishes", "parish directory", "find a parish", "parish finder", "parish locator",
	"directory", "churches", "find a church", "locations", "our parishes",
}

var (
	widgetTerms     = []string{"directory", "parish", "church", "finder", "locator", "listing", "parishesonline"}
	nonWidgetFrames = []string{"youtube.com", "vimeo.com", "google.com/maps", "maps.google", "facebook.com", "twitter.com", "recaptcha", "doubleclick", "googletagmanager"}

	markerJSONPattern = regexp.MustCompile(`(?i)["']?(?:lat|latitude)["']?\s*:\s*["']?-?\d+\.\d+["']?\s*,\s*["']?(?:lng|lon|long|longitude)["']?\s*:\s*["']?-?\d+\.\d+`)
)

// Classifier maps a directory page to a ListingPattern. First match wins.
type Classifier struct{}

// NewClassifier creates a new pattern classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify inspects the page and returns its listing pattern and platform hint
func (c *Classifier) Classify(p *Page) Classification {
	out := Classification{Pattern: model.PatternUnknown, Hint: Fingerprint(p)}
	if out.Hint != model.HintNone {
		out.Signals = append(out.Signals, "platform:"+string(out.Hint))
	}

	if _, src := p.DirectoryIframe(); src != "" {
		out.Pattern = model.PatternIframeEmbedded
		out.Signals = append(out.Signals, "iframe:"+src)
		return out
	}

	cards := p.FindCardGroup()
	table := p.FindParishTable()

	if cards == nil && table == nil {
		if item := p.HoverMenuItem(); item != nil {
			out.Pattern = model.PatternHoverNavigation
			out.Signals = append(out.Signals, "hover:"+CleanText(item.Children().First().Text()))
			return out
		}
	}

	if cards != nil {
		out.Pattern = model.PatternCardLayout
		out.Signals = append(out.Signals, fmt.Sprintf("cards:%d", cards.Length()))
		return out
	}

	if p.hasSearchWidget() {
		out.Pattern = model.PatternInteractiveSearch
		out.Signals = append(out.Signals, "search-widget")
		return out
	}

	if table != nil {
		out.Pattern = model.PatternStaticTable
		out.Signals = append(out.Signals, fmt.Sprintf("table:%d-columns", len(table.Columns)))
		return out
	}

	if p.hasMap() {
		out.Pattern = model.PatternInteractiveMap
		out.Signals = append(out.Signals, "map")
		return out
	}

	out.Signals = append(out.Signals, model.ErrClassificationAmbiguous.Error())
	return out
}

// DirectoryIframe returns the cross-origin iframe that looks like a
// third-party directory widget and its resolved src, or nil and "".
func (p *Page) DirectoryIframe() (*goquery.Selection, string) {
	var frame *goquery.Selection
	var found string
	p.Doc.Find("iframe").EachWithBreak(func(_ int, f *goquery.Selection) bool {
		src := p.Resolve(f.AttrOr("src", f.AttrOr("data-src", "")))
		if src == "" || p.SameHost(src) {
			return true
		}
		lowerSrc := strings.ToLower(src)
		if containsAny(lowerSrc, nonWidgetFrames) {
			return true
		}
		label := strings.ToLower(src + " " + f.AttrOr("title", "") + " " + f.AttrOr("id", "") + " " + f.AttrOr("class", "") + " " + f.AttrOr("name", ""))
		if containsAny(label, widgetTerms) {
			frame, found = f, src
			return false
		}
		return true
	})
	return frame, found
}

// HoverMenuItem returns the navigation <li> whose label carries directory
// vocabulary and which owns a nested submenu, or nil.
func (p *Page) HoverMenuItem() *goquery.Selection {
	var found *goquery.Selection
	p.Doc.Find("nav li, header li, [class*=menu] li, [class*=nav] li, [role=menubar] li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		label := li.ChildrenFiltered("a, span, button").First()
		if label.Length() == 0 {
			return true
		}
		text := strings.ToLower(CleanText(label.Text()))
		if text == "" || !containsAny(text, DirectoryTerms) {
			return true
		}
		if li.ChildrenFiltered("ul, div, [class*=dropdown], [class*=sub-menu], [class*=submenu]").Find("a[href]").Length() == 0 {
			return true
		}
		found = li
		return false
	})
	return found
}

// SearchInput returns the first search-shaped text input that sits inside a
// form or a search/finder widget, or nil.
func (p *Page) SearchInput() *goquery.Selection {
	var found *goquery.Selection
	p.Doc.Find(`input[type=search], input[name*=search], input[name=q], input[name*=keyword], input[name*=parish], input[id*=search], input[placeholder*=earch]`).
		EachWithBreak(func(_ int, in *goquery.Selection) bool {
			if in.Closest("form, [class*=search], [class*=finder], [id*=search], [id*=finder]").Length() > 0 {
				found = in
				return false
			}
			return true
		})
	return found
}

func (p *Page) hasSearchWidget() bool {
	if p.SearchInput() == nil {
		return false
	}

	pagination := p.Doc.Find(`.pagination, [class*=pagination], [class*=pager], a[rel=next], nav[aria-label*=agination]`).Length() > 0
	results := p.Doc.Find(`[id*=result], [class*=result], [data-results], [aria-live]`).Length() > 0
	return pagination || results
}

func (p *Page) hasMap() bool {
	container := p.Doc.Find(`.leaflet-container, .gm-style, #map, .map, [id*=map], [class*=wpgmza], [class*=store-locator], [class*=wpsl], [data-map]`).Length() > 0
	if !container {
		return false
	}
	if p.Doc.Find(`[data-lat], [data-latitude], .leaflet-marker-icon, [class*=marker]`).Length() > 0 {
		return true
	}
	script := false
	p.Doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := strings.ToLower(s.AttrOr("src", ""))
		if strings.Contains(src, "maps.googleapis.com") || strings.Contains(src, "leaflet") || strings.Contains(src, "mapbox") {
			script = true
			return false
		}
		if markerJSONPattern.MatchString(s.Text()) {
			script = true
			return false
		}
		return true
	})
	return script
}

// platformSignatures are matched against generator meta, asset URLs and class names
var platformSignatures = []struct {
	hint  model.PlatformHint
	terms []string
}{
	{model.HintParishesOnline, []string{"parishesonline.com"}},
	{model.HintECatholic, []string{"ecatholic", "ecatholiccdn"}},
	{model.HintDiocesanFinder, []string{"diocesan.com", "parish-finder", "parishfinder", "diocesefinder"}},
	{model.HintWordPressMap, []string{"wpgmza", "wp-google-maps", "wpsl", "store-locator", "wp-store-locator"}},
	{model.HintSquarespace, []string{"squarespace"}},
	{model.HintWix, []string{"wix.com", "wixstatic", "wix-"}},
}

// Fingerprint identifies the site builder or directory vendor behind a page
func Fingerprint(p *Page) model.PlatformHint {
	var b strings.Builder
	p.Doc.Find(`meta[name=generator]`).Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.AttrOr("content", ""))
		b.WriteByte(' ')
	})
	p.Doc.Find("script[src], link[href], iframe[src], img[src]").Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.AttrOr("src", s.AttrOr("href", "")))
		b.WriteByte(' ')
	})
	p.Doc.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.AttrOr("class", ""))
		b.WriteByte(' ')
		b.WriteString(s.AttrOr("id", ""))
		b.WriteByte(' ')
	})
	haystack := strings.ToLower(b.String())

	for _, sig := range platformSignatures {
		if containsAny(haystack, sig.terms) {
			if sig.hint == model.HintWordPressMap && !strings.Contains(haystack, "wp-content") && !strings.Contains(haystack, "wordpress") {
				continue
			}
			return sig.hint
		}
	}
	return model.HintNone
}

// MapMarker is a marker position with its popup text when embedded statically
type MapMarker struct {
	Lat, Lng float64
	Text     string
}

// StaticMarkers returns markers declared in data attributes or inline JSON
func (p *Page) StaticMarkers() []MapMarker {
	var markers []MapMarker

	p.Doc.Find("[data-lat], [data-latitude]").Each(func(_ int, s *goquery.Selection) {
		lat, okLat := parseFloat(s.AttrOr("data-lat", s.AttrOr("data-latitude", "")))
		lng, okLng := parseFloat(s.AttrOr("data-lng", s.AttrOr("data-lon", s.AttrOr("data-longitude", ""))))
		if !okLat || !okLng {
			return
		}
		text := VisibleText(s)
		if text == "" {
			text = CleanText(s.AttrOr("data-title", s.AttrOr("title", "")) + "\n" + s.AttrOr("data-address", ""))
		}
		markers = append(markers, MapMarker{Lat: lat, Lng: lng, Text: text})
	})

	p.Doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		markers = append(markers, markersFromScript(s.Text())...)
	})

	return markers
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[\s*\{.*?\}\s*\]`)

// markersFromScript decodes JSON arrays of objects that carry lat/lng keys
func markersFromScript(src string) []MapMarker {
	if !markerJSONPattern.MatchString(src) {
		return nil
	}

	var markers []MapMarker
	for _, raw := range jsonArrayPattern.FindAllString(src, -1) {
		var items []map[string]any
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			continue
		}
		for _, item := range items {
			lat, okLat := numberField(item, "lat", "latitude")
			lng, okLng := numberField(item, "lng", "lon", "long", "longitude")
			if !okLat || !okLng {
				continue
			}
			var parts []string
			for _, key := range []string{"name", "title", "address", "street", "city", "phone", "url", "website"} {
				if v, ok := item[key].(string); ok && strings.TrimSpace(v) != "" {
					parts = append(parts, strings.TrimSpace(v))
				}
			}
			if desc, ok := item["description"].(string); ok {
				if doc, err := goquery.NewDocumentFromReader(strings.NewReader(desc)); err == nil {
					parts = append(parts, Lines(VisibleText(doc.Selection))...)
				}
			}
			markers = append(markers, MapMarker{Lat: lat, Lng: lng, Text: strings.Join(parts, "\n")})
		}
	}
	return markers
}

func numberField(item map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := item[k].(type) {
		case float64:
			return v, true
		case string:
			if f, ok := parseFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

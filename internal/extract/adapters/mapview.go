package adapters

import (
	"context"
	"errors"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
	"go.uber.org/zap"
)

const defaultMaxMapMarkers = 500

const markerSelectors = ".leaflet-marker-icon, [class*=map-marker], [class*=wpgmza-marker], gmp-advanced-marker, div[role=button][title], area[title]"

const popupSelectors = ".leaflet-popup-content, .gm-style-iw, .gm-style-iw-d, [class*=infowindow], [class*=info-window], [class*=popup-content], .mapboxgl-popup-content"

// MapStrategy reads parish popups from a JavaScript map widget
type MapStrategy struct{}

// Name returns the strategy name
func (s *MapStrategy) Name() model.StrategyName {
	return model.StrategyInteractiveMap
}

// Extract reads statically declared markers first; when none carry text
// and a browser is available it clicks each marker and parses its popup.
func (s *MapStrategy) Extract(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	limit := env.Limits.MaxMapMarkers
	if limit <= 0 {
		limit = defaultMaxMapMarkers
	}

	var records []model.ParishRecord
	for _, m := range env.Page.StaticMarkers() {
		if len(records) >= limit {
			break
		}
		r, ok := recordFromLines(extract.Lines(m.Text))
		if !ok {
			continue
		}
		lat, lng := m.Lat, m.Lng
		r.Latitude, r.Longitude = &lat, &lng
		records = append(records, scored(r, env.Confidence))
	}

	if len(records) > 0 {
		return records, nil
	}
	if env.Session == nil {
		return nil, errors.New("no readable markers without a browser session")
	}

	return s.clickMarkers(ctx, env, limit)
}

func (s *MapStrategy) clickMarkers(ctx context.Context, env *Env, limit int) ([]model.ParishRecord, error) {
	markers := env.Page.Doc.Find(markerSelectors)
	if markers.Length() == 0 {
		return nil, errors.New("no map markers on page")
	}

	var records []model.ParishRecord
	var lastErr error
	failures := 0
	markers.EachWithBreak(func(i int, marker *goquery.Selection) bool {
		if i >= limit || ctx.Err() != nil {
			return false
		}

		r, err := s.popup(ctx, env, marker)
		if err != nil {
			failures++
			lastErr = err
			env.logger().Debug("marker popup failed", zap.Int("marker", i), zap.Error(err))
			return true
		}
		if r.Name != "" {
			records = append(records, scored(r, env.Confidence))
		}
		return true
	})

	if len(records) == 0 && failures > 0 {
		return nil, &model.ExtractionPolicyError{Strategy: s.Name(), URL: env.Page.URL(), Step: "open marker popups", Err: lastErr}
	}
	return records, nil
}

func (s *MapStrategy) popup(ctx context.Context, env *Env, marker *goquery.Selection) (model.ParishRecord, error) {
	if err := env.Session.Click(ctx, extract.Selector(marker)); err != nil {
		return model.ParishRecord{}, err
	}
	html, err := env.Session.HTML(ctx)
	if err != nil {
		return model.ParishRecord{}, err
	}
	page, err := extract.ParseHTML(env.Page.URL(), html)
	if err != nil {
		return model.ParishRecord{}, err
	}

	popup := page.Doc.Find(popupSelectors).Last()
	r, ok := recordFromLines(extract.Lines(extract.VisibleText(popup)))
	if !ok {
		return model.ParishRecord{}, nil
	}

	if lat, err := strconv.ParseFloat(marker.AttrOr("data-lat", ""), 64); err == nil {
		if lng, err := strconv.ParseFloat(marker.AttrOr("data-lng", ""), 64); err == nil {
			r.Latitude, r.Longitude = &lat, &lng
		}
	}
	if r.WebsiteURL == "" {
		for _, link := range page.LinksIn(popup) {
			if !link.SameHost && !extract.IsSocialOrMapURL(link.URL) {
				r.WebsiteURL = link.URL
				break
			}
		}
	}
	return r, nil
}

package adapters

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
	"go.uber.org/zap"
)

// CardStrategy reads a grid of repeated parish cards
type CardStrategy struct{}

// Name returns the strategy name
func (s *CardStrategy) Name() model.StrategyName {
	return model.StrategyCardLayout
}

// Extract reads each card and, when allowed, follows its detail link to
// fill fields the card leaves empty.
func (s *CardStrategy) Extract(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	cards := env.Page.FindCardGroup()
	if cards == nil {
		return nil, errors.New("no card group on page")
	}

	var records []model.ParishRecord
	followed := 0
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}

		f := env.Page.CardFields(card)
		r := recordFromCard(f)

		if env.Limits.FollowDetailPages && env.Fetcher != nil && f.DetailURL != "" &&
			incomplete(r) && followed < env.Limits.MaxDetailPages {
			followed++
			if detail, ok := s.detail(ctx, env, f.DetailURL); ok {
				r = mergeMissing(r, detail)
			}
		}

		records = append(records, scored(r, env.Confidence))
		return true
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// detail reads address, phone and website from a parish detail page
func (s *CardStrategy) detail(ctx context.Context, env *Env, rawURL string) (model.ParishRecord, bool) {
	page, err := env.fetch(ctx, rawURL)
	if err != nil {
		env.logger().Debug("detail page skipped", zap.String("url", rawURL), zap.Error(err))
		return model.ParishRecord{}, false
	}

	lines := extract.Lines(page.Text())
	addr, _ := extract.AddressFromLines(lines)
	r := model.ParishRecord{
		StreetAddress: addr.Street,
		City:          addr.City,
		State:         addr.State,
		PostalCode:    addr.PostalCode,
		Phone:         extract.FindPhone(page.Text()),
	}
	for _, link := range page.Links() {
		text := strings.ToLower(link.Text)
		if !link.SameHost && !extract.IsSocialOrMapURL(link.URL) &&
			(strings.Contains(text, "website") || strings.Contains(text, "visit")) {
			r.WebsiteURL = link.URL
			break
		}
	}
	return r, true
}

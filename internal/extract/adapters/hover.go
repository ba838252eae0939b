package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
	"go.uber.org/zap"
)

// ambiguityPenalty is taken when tied links could not be disambiguated
const ambiguityPenalty = 5

const linkQuestion = "Does this link lead to a page listing the parishes of a diocese?"

const submenuSelectors = "ul, div, [class*=dropdown], [class*=sub-menu], [class*=submenu]"

// HoverStrategy opens a hover-only navigation menu, follows the most
// relevant directory link and extracts whatever listing it finds there.
type HoverStrategy struct{}

// Name returns the strategy name
func (s *HoverStrategy) Name() model.StrategyName {
	return model.StrategyHoverNavigation
}

// Extract follows the best revealed link, re-classifies the target page
// and dispatches once. Records carry the inner strategy at reduced confidence.
func (s *HoverStrategy) Extract(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	if env.hops > 0 {
		return nil, errors.New("nested hover navigation")
	}
	if env.dispatcher == nil {
		return nil, errors.New("hover navigation needs a dispatcher")
	}

	item := env.Page.HoverMenuItem()
	if item == nil {
		return nil, errors.New("no hover menu with directory vocabulary")
	}

	links := s.revealedLinks(ctx, env, item)
	best, ambiguous := s.pick(ctx, env, links)
	if best == "" {
		return nil, errors.New("hover menu revealed no directory link")
	}

	inner, err := s.open(ctx, env, best)
	if err != nil {
		return nil, &model.ExtractionPolicyError{Strategy: s.Name(), URL: env.Page.URL(), Step: "follow " + best, Err: err}
	}

	c := env.dispatcher.classifier.Classify(inner)
	name, conf := Select(c.Pattern, c.Hint)
	if name == model.StrategyHoverNavigation {
		name, conf = model.StrategyGeneric, GenericConfidence
	}
	conf -= env.Limits.HoverPenalty
	if ambiguous {
		conf -= ambiguityPenalty
	}

	env.logger().Debug("hover navigation followed",
		zap.String("from", env.Page.URL()),
		zap.String("to", inner.URL()),
		zap.String("inner_strategy", string(name)),
		zap.Bool("ambiguous", ambiguous),
	)

	innerEnv := *env
	innerEnv.Page = inner
	innerEnv.hops++

	records, err := env.dispatcher.extract(ctx, name, conf, &innerEnv)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].SourceURL == "" {
			records[i].SourceURL = inner.URL()
		}
	}
	return records, nil
}

// revealedLinks hovers the menu label in a live session; statically the
// dropdown is already in the DOM, just hidden.
func (s *HoverStrategy) revealedLinks(ctx context.Context, env *Env, item *goquery.Selection) []extract.Link {
	static := env.Page.LinksIn(item.ChildrenFiltered(submenuSelectors))
	if env.Session == nil {
		return static
	}

	label := item.ChildrenFiltered("a, span, button").First()
	if err := env.Session.Hover(ctx, extract.Selector(label)); err != nil {
		env.logger().Debug("hover failed, using static menu", zap.Error(err))
		return static
	}
	html, err := env.Session.HTML(ctx)
	if err != nil {
		return static
	}
	page, err := extract.ParseHTML(env.Page.URL(), html)
	if err != nil {
		return static
	}
	live := page.Doc.Find(extract.Selector(item))
	if links := page.LinksIn(live.ChildrenFiltered(submenuSelectors)); len(links) > 0 {
		return links
	}
	return static
}

// pick ranks links by directory vocabulary. Ties go to the classifier
// when configured, otherwise to document order and are flagged ambiguous.
func (s *HoverStrategy) pick(ctx context.Context, env *Env, links []extract.Link) (string, bool) {
	bestScore := 0
	var tied []extract.Link
	for _, link := range links {
		score := linkScore(link)
		switch {
		case score > bestScore:
			bestScore = score
			tied = []extract.Link{link}
		case score == bestScore && score > 0:
			tied = append(tied, link)
		}
	}

	switch len(tied) {
	case 0:
		return "", false
	case 1:
		return tied[0].URL, false
	}

	if env.Classifier != nil {
		bestConf := -1.0
		choice := ""
		for _, link := range tied {
			label, err := env.Classifier.Classify(ctx, fmt.Sprintf("%s (%s)", link.Text, link.URL), linkQuestion)
			if err != nil {
				env.logger().Debug("classifier failed", zap.String("url", link.URL), zap.Error(err))
				continue
			}
			if label.Yes(env.MinConfidence) && label.Confidence > bestConf {
				bestConf, choice = label.Confidence, link.URL
			}
		}
		if choice != "" {
			return choice, false
		}
	}

	return tied[0].URL, true
}

// linkScore counts directory terms in anchor text (double weight) and URL path
func linkScore(link extract.Link) int {
	text := strings.ToLower(link.Text)
	path := strings.ToLower(link.URL)
	if u, err := url.Parse(link.URL); err == nil {
		path = strings.ToLower(u.Path)
	}
	path = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(path)

	score := 0
	for _, term := range extract.DirectoryTerms {
		if strings.Contains(text, term) {
			score += 2
		}
		if strings.Contains(path, term) {
			score++
		}
	}
	return score
}

func (s *HoverStrategy) open(ctx context.Context, env *Env, rawURL string) (*extract.Page, error) {
	if env.Session == nil {
		return env.fetch(ctx, rawURL)
	}
	if err := env.Session.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}
	html, err := env.Session.HTML(ctx)
	if err != nil {
		return nil, err
	}
	pageURL := env.Session.URL()
	if pageURL == "" {
		pageURL = rawURL
	}
	return extract.NewPage(&model.RenderedPage{RequestURL: rawURL, FinalURL: pageURL, HTML: html, StatusCode: 200, Rendered: true})
}

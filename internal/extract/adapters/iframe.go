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

// IframeStrategy reads a third-party directory embedded in an iframe. The
// widget exposes no per-parish nodes, so the text is taken wholesale via
// select-all and split heuristically.
type IframeStrategy struct{}

// Name returns the strategy name
func (s *IframeStrategy) Name() model.StrategyName {
	return model.StrategyIframeEmbedded
}

// Extract enters the iframe, copies its selection buffer and splits it
// into entries. Without a session the iframe source is fetched instead.
func (s *IframeStrategy) Extract(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	frame, src := env.Page.DirectoryIframe()
	if frame == nil {
		frame, src = anyCrossOriginFrame(env.Page)
	}
	if frame == nil {
		return nil, errors.New("no embedded directory iframe")
	}

	text := ""
	if env.Session != nil {
		var err error
		text, err = s.selectAll(ctx, env, frame)
		if err != nil {
			env.logger().Debug("iframe select-all failed, fetching source", zap.String("src", src), zap.Error(err))
		}
	}

	if strings.TrimSpace(text) == "" {
		page, err := env.fetch(ctx, src)
		if err != nil {
			return nil, &model.ExtractionPolicyError{Strategy: s.Name(), URL: env.Page.URL(), Step: "load iframe", Err: err}
		}
		text = page.Text()
	}

	var records []model.ParishRecord
	for _, e := range SplitDirectoryText(text) {
		records = append(records, scored(e.Record(), env.Confidence))
	}
	return records, nil
}

func (s *IframeStrategy) selectAll(ctx context.Context, env *Env, frame *goquery.Selection) (string, error) {
	fs, err := env.Session.Frame(ctx, extract.Selector(frame))
	if err != nil {
		return "", err
	}
	defer func() { _ = fs.Close() }()

	return fs.SelectAllText(ctx)
}

// anyCrossOriginFrame is used when a platform hint chose this strategy but
// the frame carries no directory vocabulary
func anyCrossOriginFrame(page *extract.Page) (*goquery.Selection, string) {
	var frame *goquery.Selection
	var src string
	page.Doc.Find("iframe").EachWithBreak(func(_ int, f *goquery.Selection) bool {
		resolved := page.Resolve(f.AttrOr("src", f.AttrOr("data-src", "")))
		if resolved == "" || page.SameHost(resolved) || extract.IsSocialOrMapURL(resolved) {
			return true
		}
		frame, src = f, resolved
		return false
	})
	return frame, src
}

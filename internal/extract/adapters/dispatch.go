package adapters

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
	"go.uber.org/zap"
)

// Result is the outcome of running one directory page through a strategy
type Result struct {
	Classification extract.Classification
	Strategy       model.StrategyName
	Records        []model.ParishRecord
	Rejected       int
	// Err is an *model.ExtractionPolicyError when the strategy failed
	Err error
}

// Dispatcher owns the closed set of strategies
type Dispatcher struct {
	strategies map[model.StrategyName]Strategy
	classifier *extract.Classifier
	now        func() time.Time
}

// NewDispatcher registers the seven built-in strategies
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		strategies: make(map[model.StrategyName]Strategy),
		classifier: extract.NewClassifier(),
		now:        time.Now,
	}
	for _, s := range []Strategy{
		&CardStrategy{},
		&SearchStrategy{},
		&TableStrategy{},
		&MapStrategy{},
		&IframeStrategy{},
		&HoverStrategy{},
		&GenericStrategy{},
	} {
		d.strategies[s.Name()] = s
	}
	return d
}

// Strategy returns the registered strategy for name
func (d *Dispatcher) Strategy(name model.StrategyName) (Strategy, bool) {
	s, ok := d.strategies[name]
	return s, ok
}

// Run classifies env.Page, selects a strategy and returns validated records
func (d *Dispatcher) Run(ctx context.Context, env *Env) Result {
	c := d.classifier.Classify(env.Page)
	name, conf := Select(c.Pattern, c.Hint)

	env.logger().Debug("classified directory page",
		zap.String("url", env.Page.URL()),
		zap.String("pattern", c.Pattern.String()),
		zap.String("hint", string(c.Hint)),
		zap.String("strategy", string(name)),
		zap.Strings("signals", c.Signals),
	)

	res := d.Execute(ctx, name, conf, env)
	res.Classification = c
	return res
}

// Execute runs one named strategy at the given base confidence
func (d *Dispatcher) Execute(ctx context.Context, name model.StrategyName, conf int, env *Env) Result {
	records, err := d.extract(ctx, name, conf, env)
	res := Result{Strategy: name, Err: err}
	if err != nil {
		env.logger().Warn("extraction policy error", zap.Error(err))
	}
	res.Records, res.Rejected = d.finalize(records, env)
	return res
}

// extract runs a strategy with panic recovery and returns raw records.
// Any failure yields no records and an ExtractionPolicyError.
func (d *Dispatcher) extract(ctx context.Context, name model.StrategyName, conf int, env *Env) (records []model.ParishRecord, err error) {
	s, ok := d.strategies[name]
	if !ok {
		s = d.strategies[model.StrategyGeneric]
		name = model.StrategyGeneric
	}

	inner := *env
	inner.Confidence = conf
	inner.dispatcher = d

	defer func() {
		if r := recover(); r != nil {
			env.logger().Debug("strategy panic", zap.String("stack", string(debug.Stack())))
			records = nil
			err = &model.ExtractionPolicyError{
				Strategy: name,
				URL:      env.Page.URL(),
				Step:     "panic",
				Err:      fmt.Errorf("%v", r),
			}
		}
	}()

	records, err = s.Extract(ctx, &inner)
	if err != nil {
		var pe *model.ExtractionPolicyError
		if !errors.As(err, &pe) {
			err = &model.ExtractionPolicyError{Strategy: name, URL: env.Page.URL(), Step: "extract", Err: err}
		}
		return nil, err
	}

	for i := range records {
		if records[i].Strategy == "" {
			records[i].Strategy = name
		}
		if records[i].Confidence == 0 {
			records[i].Confidence = conf
		}
	}
	return records, nil
}

// finalize enforces the record invariants: cleaned name, placeholder names
// rejected, confidence clamped (generic capped), stable IDs, no duplicates.
func (d *Dispatcher) finalize(records []model.ParishRecord, env *Env) ([]model.ParishRecord, int) {
	now := d.now().UTC()
	out := make([]model.ParishRecord, 0, len(records))
	seen := make(map[string]bool)
	rejected := 0

	for _, r := range records {
		r.Name = cleanName(r.Name)
		r.StreetAddress = extract.CleanText(r.StreetAddress)
		r.City = extract.CleanText(r.City)
		r.State = strings.ToUpper(extract.CleanText(r.State))
		if r.SourceURL == "" {
			r.SourceURL = env.Page.URL()
		}

		r.Confidence = model.ClampConfidence(r.Confidence)
		if r.Strategy == model.StrategyGeneric && r.Confidence > GenericConfidence {
			r.Confidence = GenericConfidence
		}

		if err := r.Validate(); err != nil {
			rejected++
			env.logger().Debug("record rejected", zap.String("name", r.Name), zap.Error(err))
			continue
		}

		r.ID = model.ParishID(r.SourceURL, r.Name)
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		if r.ExtractedAt.IsZero() {
			r.ExtractedAt = now
		}
		out = append(out, r)
	}

	return out, rejected
}

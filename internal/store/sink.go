// Package store persists extracted parish and fact records.
package store

import (
	"context"

	"github.com/ppiankov/parishscope/internal/model"
)

// Sink receives extracted records. Callers treat it as fire-and-forget:
// a failed write is reported but never rolls back extraction.
type Sink interface {
	PersistParish(ctx context.Context, r model.ParishRecord) error
	PersistFact(ctx context.Context, f model.FactRecord) error
}

// Discard is a Sink that keeps nothing
var Discard Sink = discard{}

type discard struct{}

func (discard) PersistParish(context.Context, model.ParishRecord) error { return nil }
func (discard) PersistFact(context.Context, model.FactRecord) error     { return nil }

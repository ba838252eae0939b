package adapters

import (
	"context"
	"strings"

	"github.com/ppiankov/parishscope/internal/model"
	"go.uber.org/zap"
)

const nameQuestion = "Is this the name of a Catholic parish, church or mission?"

// churchTerms make a name line credible without asking the classifier
var churchTerms = []string{
	"saint", "st.", "st ", "ss.", "sts.", "our lady", "holy", "parish", "church", "cathedral",
	"basilica", "chapel", "mission", "sacred", "blessed", "immaculate", "christ", "shrine",
	"san ", "santa", "santo", "nuestra", "notre", "mother of", "assumption", "resurrection",
	"nativity", "annunciation", "visitation", "trinity", "queen of", "ascension", "epiphany",
}

// GenericStrategy is the last resort: a visible-text scan for name lines
// followed by address-shaped lines, at capped low confidence.
type GenericStrategy struct{}

// Name returns the strategy name
func (s *GenericStrategy) Name() model.StrategyName {
	return model.StrategyGeneric
}

// Extract splits the page text into entries. Names without church
// vocabulary are kept at a penalty; a configured classifier can veto them.
func (s *GenericStrategy) Extract(ctx context.Context, env *Env) ([]model.ParishRecord, error) {
	var records []model.ParishRecord
	for _, e := range SplitDirectoryText(env.Page.Text()) {
		conf := env.Confidence
		if conf <= 0 || conf > GenericConfidence {
			conf = GenericConfidence
		}

		if !hasChurchTerm(e.Name) {
			if env.Classifier != nil {
				label, err := env.Classifier.Classify(ctx, e.Name+"\n"+e.Address.Street, nameQuestion)
				switch {
				case err != nil:
					// unanswered, treat as unclassified
					env.logger().Debug("classifier failed", zap.String("name", e.Name), zap.Error(err))
				case !label.Yes(env.MinConfidence):
					continue
				}
			}
			conf -= ambiguityPenalty
		}

		records = append(records, scored(e.Record(), conf))
	}
	return records, nil
}

func hasChurchTerm(name string) bool {
	lower := strings.ToLower(name) + " "
	for _, term := range churchTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

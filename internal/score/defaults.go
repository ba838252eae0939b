package score

import "github.com/ppiankov/parishscope/internal/model"

func rule(kw string, c model.FactCategory, w int) model.RelevanceRule {
	return model.RelevanceRule{Keyword: kw, Category: c, Weight: w, Active: true}
}

// DefaultRules is the built-in lexicon
func DefaultRules() []model.RelevanceRule {
	return []model.RelevanceRule{
		rule("mass", model.CategoryMass, 8),
		rule("mass times", model.CategoryMass, 4),
		rule("liturgy", model.CategoryMass, 4),
		rule("vigil", model.CategoryMass, 3),
		rule("sunday", model.CategoryMass, 2),
		rule("weekday", model.CategoryMass, 2),
		rule("misa", model.CategoryMass, 5),
		rule("mass intentions", model.CategoryMass, -6),

		rule("confession", model.CategoryReconciliation, 8),
		rule("reconciliation", model.CategoryReconciliation, 8),
		rule("penance", model.CategoryReconciliation, 5),
		rule("confesiones", model.CategoryReconciliation, 6),

		rule("adoration", model.CategoryAdoration, 8),
		rule("holy hour", model.CategoryAdoration, 6),
		rule("exposition", model.CategoryAdoration, 5),
		rule("blessed sacrament", model.CategoryAdoration, 4),
		rule("benediction", model.CategoryAdoration, 3),

		rule("office hours", model.CategoryOfficeHours, 8),
		rule("parish office", model.CategoryOfficeHours, 5),
		rule("office", model.CategoryOfficeHours, 2),

		rule("schedule", model.CategoryAll, 3),
		rule("times", model.CategoryAll, 2),
		rule("hours", model.CategoryAll, 2),
		rule("sacraments", model.CategoryAll, 2),
		rule("worship", model.CategoryAll, 2),
		rule("donate", model.CategoryAll, -5),
		rule("giving", model.CategoryAll, -4),
		rule("bulletin", model.CategoryAll, -5),
		rule("newsletter", model.CategoryAll, -4),
		rule("school", model.CategoryAll, -3),
		rule("cemetery", model.CategoryAll, -3),
		rule("history", model.CategoryAll, -2),
		rule("login", model.CategoryAll, -6),
	}
}

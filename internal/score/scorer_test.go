package score

import (
	"strings"
	"testing"

	"github.com/ppiankov/parishscope/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorePage_ConfessionSchedule(t *testing.T) {
	lex := MustDefault()
	scores := lex.ScorePage("Our Schedule\nConfessions: Saturdays 3-4pm\nParking is behind the church.")

	require.NotEmpty(t, scores)
	var rec *PageScore
	for i := range scores {
		if scores[i].Category == model.CategoryReconciliation {
			rec = &scores[i]
		}
	}
	require.NotNil(t, rec)
	assert.Equal(t, "Confessions: Saturdays 3-4pm", rec.Snippet)
	assert.GreaterOrEqual(t, rec.Score, 10.0)
	assert.Contains(t, rec.Matches, "confession")
}

func TestScorePage_AllRulesAloneProduceNothing(t *testing.T) {
	lex := MustDefault()
	scores := lex.ScorePage("See the schedule in this week's bulletin.")
	assert.Empty(t, scores)
}

func TestScorePage_CategoryNegativesReduce(t *testing.T) {
	lex, err := NewLexicon([]model.RelevanceRule{
		{Keyword: "mass", Category: model.CategoryMass, Weight: 8, Active: true},
		{Keyword: "donate", Category: model.CategoryMass, Weight: -5, Active: true},
		{Keyword: "donate", Category: model.CategoryAll, Weight: -5, Active: true},
	})
	require.NoError(t, err)

	scores := lex.ScorePage("Mass at 9am. Donate here.")
	require.Len(t, scores, 1)
	// the category rule applies, the "all" rule does not
	assert.Equal(t, float64(8-5+timeBonus), scores[0].Score)
}

func TestScorePage_GlobalNegativesIgnored(t *testing.T) {
	lex := MustDefault()
	plain := lex.ScorePage("Adoration every Friday 9am")
	noisy := lex.ScorePage("Adoration every Friday 9am. Donate online. Read the bulletin. School login.")

	require.Len(t, plain, 1)
	require.Len(t, noisy, 1)
	assert.Equal(t, plain[0].Score, noisy[0].Score)
}

func TestScorePage_MatchCountCapped(t *testing.T) {
	lex, err := NewLexicon([]model.RelevanceRule{
		{Keyword: "mass", Category: model.CategoryMass, Weight: 8, Active: true},
	})
	require.NoError(t, err)

	scores := lex.ScorePage("mass mass mass mass mass mass")
	require.Len(t, scores, 1)
	assert.Equal(t, float64(8*maxCountedMatches), scores[0].Score)
}

func TestScorePage_Empty(t *testing.T) {
	assert.Nil(t, MustDefault().ScorePage("   "))
}

func TestSplitSegments_LongLines(t *testing.T) {
	long := strings.Repeat("The parish office is open weekdays from nine until five. ", 8) +
		"Confessions are heard on Saturdays at 3pm."
	segs := splitSegments(long)
	assert.Len(t, segs, 9)
	assert.Equal(t, "Confessions are heard on Saturdays at 3pm.", segs[8])
}

func TestHasTime(t *testing.T) {
	assert.True(t, HasTime("Sunday 10:30"))
	assert.True(t, HasTime("Saturdays 3-4pm"))
	assert.True(t, HasTime("at noon"))
	assert.False(t, HasTime("every Sunday"))
}

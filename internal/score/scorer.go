package score

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/parishscope/internal/model"
)

const (
	// maxCountedMatches caps how often one rule can contribute to a page score
	maxCountedMatches = 3
	// timeBonus rewards snippets that carry a clock time
	timeBonus = 2
	// dayBonus rewards snippets that name a weekday
	dayBonus      = 1
	maxSnippetLen = 300
)

var (
	timePattern = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm|a\.m\.|p\.m\.|noon)|\b\d{1,2}:\d{2}\b|\bnoon\b`)
	dayPattern  = regexp.MustCompile(`(?i)\b(sun|mon|tues?|wed(nes)?|thu(rs)?|fri|sat(ur)?)(day)?s?\b`)
)

// PageScore is the transparent score of one page for one category
type PageScore struct {
	Category model.FactCategory
	Score    float64
	Snippet  string
	Matches  []string // matched keywords, for logging
}

// ScorePage scores page text for every lexicon category. Categories with no
// positive category-specific match are omitted: "all" rules alone never
// produce a candidate. Negative "all" rules (donate, bulletin, ...) only
// steer link priority; nearly every page mentions them.
func (l *Lexicon) ScorePage(text string) []PageScore {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	segments := splitSegments(text)

	var scores []PageScore
	for _, c := range l.categories {
		ps, ok := l.scoreCategory(tokens, segments, c)
		if ok {
			scores = append(scores, ps)
		}
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}

func (l *Lexicon) scoreCategory(tokens []string, segments []string, c model.FactCategory) (PageScore, bool) {
	ps := PageScore{Category: c}
	specific := 0
	total := 0

	for _, cr := range l.rules {
		if !cr.applies(c) || (cr.rule.Category == model.CategoryAll && cr.rule.Weight < 0) {
			continue
		}
		n := countMatches(tokens, cr.tokens)
		if n == 0 {
			continue
		}
		if n > maxCountedMatches {
			n = maxCountedMatches
		}
		total += cr.rule.Weight * n
		if cr.rule.Category == c && cr.rule.Weight > 0 {
			specific += cr.rule.Weight
		}
		ps.Matches = append(ps.Matches, cr.rule.Keyword)
	}

	if specific == 0 {
		return ps, false
	}

	snippet, bonus := l.bestSnippet(segments, c)
	ps.Snippet = snippet
	ps.Score = float64(total + bonus)
	return ps, true
}

// bestSnippet picks the segment with the strongest category evidence. The
// returned bonus is the schedule-shape bonus of that segment.
func (l *Lexicon) bestSnippet(segments []string, c model.FactCategory) (string, int) {
	best := ""
	bestScore := 0
	bestBonus := 0

	for _, seg := range segments {
		tokens := Tokenize(seg)
		s := 0
		for _, cr := range l.rules {
			if cr.rule.Active && cr.rule.Category == c && cr.rule.Weight > 0 && countMatches(tokens, cr.tokens) > 0 {
				s += cr.rule.Weight
			}
		}
		if s == 0 {
			continue
		}
		bonus := scheduleBonus(seg)
		if s+bonus > bestScore {
			best, bestScore, bestBonus = seg, s+bonus, bonus
		}
	}

	return truncate(best, maxSnippetLen), bestBonus
}

func scheduleBonus(seg string) int {
	bonus := 0
	if timePattern.MatchString(seg) {
		bonus += timeBonus
	}
	if dayPattern.MatchString(seg) {
		bonus += dayBonus
	}
	return bonus
}

// HasTime reports whether text contains a clock time
func HasTime(text string) bool {
	return timePattern.MatchString(text)
}

// splitSegments splits text into lines, then long lines into sentences
func splitSegments(text string) []string {
	var segments []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if len(line) <= maxSnippetLen {
			segments = append(segments, line)
			continue
		}
		segments = append(segments, splitSentences(line)...)
	}
	return segments
}

// splitSentences splits on sentence terminators followed by a space
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == ';' {
			if i+1 < len(text) && text[i+1] == ' ' {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

package score

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/parishscope/internal/model"
	"gopkg.in/yaml.v3"
)

// Lexicon is an immutable set of weighted keyword rules. It is built once
// per run and shared read-only by every crawl.
type Lexicon struct {
	rules      []compiledRule
	categories []model.FactCategory
}

type compiledRule struct {
	rule   model.RelevanceRule
	tokens []string
}

// NewLexicon validates and compiles rules. Inactive rules are kept for
// display but never match.
func NewLexicon(rules []model.RelevanceRule) (*Lexicon, error) {
	lex := &Lexicon{rules: make([]compiledRule, 0, len(rules))}
	seen := make(map[model.FactCategory]bool)

	for i, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			return nil, fmt.Errorf("rule %d: empty keyword", i)
		}
		if r.Category == "" {
			return nil, fmt.Errorf("rule %d (%s): empty category", i, kw)
		}
		r.Keyword = kw
		tokens := Tokenize(kw)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("rule %d: keyword %q has no word characters", i, kw)
		}
		lex.rules = append(lex.rules, compiledRule{rule: r, tokens: tokens})

		if r.Active && r.Category != model.CategoryAll && !seen[r.Category] {
			seen[r.Category] = true
			lex.categories = append(lex.categories, r.Category)
		}
	}

	sort.Slice(lex.categories, func(i, j int) bool { return lex.categories[i] < lex.categories[j] })
	return lex, nil
}

// MustDefault returns the built-in lexicon
func MustDefault() *Lexicon {
	lex, err := NewLexicon(DefaultRules())
	if err != nil {
		panic(err)
	}
	return lex
}

// Categories returns the fact categories with at least one active rule
func (l *Lexicon) Categories() []model.FactCategory {
	out := make([]model.FactCategory, len(l.categories))
	copy(out, l.categories)
	return out
}

// Rules returns a copy of all rules
func (l *Lexicon) Rules() []model.RelevanceRule {
	out := make([]model.RelevanceRule, len(l.rules))
	for i, cr := range l.rules {
		out[i] = cr.rule
	}
	return out
}

// ScoreLink scores a link for one category from its URL path/query and
// anchor text. Category rules and "all" rules both contribute, each rule
// at most once.
func (l *Lexicon) ScoreLink(rawURL, anchor string, category model.FactCategory) float64 {
	tokens := linkTokens(rawURL, anchor)
	if len(tokens) == 0 {
		return 0
	}

	total := 0
	for _, cr := range l.rules {
		if !cr.applies(category) {
			continue
		}
		if countMatches(tokens, cr.tokens) > 0 {
			total += cr.rule.Weight
		}
	}
	return float64(total)
}

// LinkPriority is the frontier priority of a link: the best category score
func (l *Lexicon) LinkPriority(rawURL, anchor string) float64 {
	if len(l.categories) == 0 {
		return l.ScoreLink(rawURL, anchor, model.CategoryAll)
	}

	best := 0.0
	for i, c := range l.categories {
		s := l.ScoreLink(rawURL, anchor, c)
		if i == 0 || s > best {
			best = s
		}
	}
	return best
}

func (cr compiledRule) applies(category model.FactCategory) bool {
	if !cr.rule.Active {
		return false
	}
	return cr.rule.Category == category || cr.rule.Category == model.CategoryAll
}

// linkTokens tokenizes the path and query of a URL plus the anchor text.
// The host is left out so parish names in domains do not skew scores.
func linkTokens(rawURL, anchor string) []string {
	var b strings.Builder
	if parsed, err := url.Parse(rawURL); err == nil {
		b.WriteString(parsed.Path)
		b.WriteString(" ")
		b.WriteString(parsed.RawQuery)
	} else {
		b.WriteString(rawURL)
	}
	b.WriteString(" ")
	b.WriteString(anchor)
	return Tokenize(b.String())
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// countMatches counts occurrences of the keyword token sequence in tokens
func countMatches(tokens, keyword []string) int {
	if len(keyword) == 0 || len(tokens) < len(keyword) {
		return 0
	}

	count := 0
	for i := 0; i+len(keyword) <= len(tokens); i++ {
		ok := true
		for j, kw := range keyword {
			if !tokenMatches(tokens[i+j], kw) {
				ok = false
				break
			}
		}
		if ok {
			count++
		}
	}
	return count
}

// tokenMatches accepts exact matches and short inflections ("confession" ~ "confessions")
func tokenMatches(tok, kw string) bool {
	if tok == kw {
		return true
	}
	return len(kw) >= 4 && strings.HasPrefix(tok, kw) && len(tok)-len(kw) <= 2
}

type rulesFile struct {
	Rules []struct {
		Keyword  string `yaml:"keyword"`
		Category string `yaml:"category"`
		Weight   int    `yaml:"weight"`
		Active   *bool  `yaml:"active"`
	} `yaml:"rules"`
}

// LoadRules reads rules from a YAML file. Rules without an active flag are active.
func LoadRules(path string) ([]model.RelevanceRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rules
func ParseRules(data []byte) ([]model.RelevanceRule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]model.RelevanceRule, 0, len(f.Rules))
	for _, r := range f.Rules {
		active := true
		if r.Active != nil {
			active = *r.Active
		}
		rules = append(rules, model.RelevanceRule{
			Keyword:  r.Keyword,
			Category: model.FactCategory(strings.ToLower(strings.TrimSpace(r.Category))),
			Weight:   r.Weight,
			Active:   active,
		})
	}
	return rules, nil
}

// Load builds the lexicon from a rules file, or the defaults when path is empty
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return NewLexicon(DefaultRules())
	}
	rules, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return NewLexicon(rules)
}

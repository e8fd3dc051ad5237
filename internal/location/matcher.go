package location

import (
	"strings"
	"unicode/utf8"

	"horse.fit/newsalert/internal/news"
)

// DefaultMinSubstringLength is the rune count a location must exceed before
// the substring fallback applies.
const DefaultMinSubstringLength = 3

// Rule names the check that decided a relevance result.
type Rule string

const (
	RuleEmpty         Rule = "empty"
	RuleUnknown       Rule = "unknown"
	RuleExact         Rule = "exact"
	RuleNationalScope Rule = "national_scope"
	RuleAdjacency     Rule = "adjacency"
	RuleSubstring     Rule = "substring"
	RuleNone          Rule = "none"
)

// Relevant reports whether the rule represents a match.
func (r Rule) Relevant() bool {
	switch r {
	case RuleExact, RuleNationalScope, RuleAdjacency, RuleSubstring:
		return true
	default:
		return false
	}
}

type MatcherOptions struct {
	// MinSubstringLength is the rune count the contained location must
	// exceed. Values <= 0 use DefaultMinSubstringLength.
	MinSubstringLength int

	// Bidirectional also accepts a user location that contains the alert
	// location. By default only alert-contains-user is accepted.
	Bidirectional bool
}

// Matcher decides whether an alert location concerns a user location.
// It is safe for concurrent use.
type Matcher struct {
	normalizer *Normalizer
	unknown    string
	national   []string
	adjacency  map[string][]string
	minLength  int
	bidi       bool
}

var defaultMatcher = NewMatcher(DefaultTables(), MatcherOptions{})

// IsRelevant applies the default tables and options.
func IsRelevant(alertLocation, userLocation string) bool {
	return defaultMatcher.IsRelevant(alertLocation, userLocation)
}

func NewMatcher(tables Tables, opts MatcherOptions) *Matcher {
	normalizer := NewNormalizer(tables)

	national := make([]string, 0, len(tables.NationalScope))
	for _, term := range tables.NationalScope {
		if normalized := normalizer.Normalize(term); normalized != "" {
			national = append(national, normalized)
		}
	}

	adjacency := make(map[string][]string, len(tables.Adjacency))
	for _, anchor := range sortedKeys(tables.Adjacency) {
		key := normalizer.Normalize(anchor)
		if key == "" {
			continue
		}
		for _, place := range tables.Adjacency[anchor] {
			if normalized := normalizer.Normalize(place); normalized != "" {
				adjacency[key] = append(adjacency[key], normalized)
			}
		}
	}

	minLength := opts.MinSubstringLength
	if minLength <= 0 {
		minLength = DefaultMinSubstringLength
	}

	return &Matcher{
		normalizer: normalizer,
		unknown:    normalizer.Normalize(news.LocationUnknown),
		national:   national,
		adjacency:  adjacency,
		minLength:  minLength,
		bidi:       opts.Bidirectional,
	}
}

// Normalizer exposes the normalizer built from the matcher's tables.
func (m *Matcher) Normalizer() *Normalizer {
	return m.normalizer
}

func (m *Matcher) IsRelevant(alertLocation, userLocation string) bool {
	return m.Explain(alertLocation, userLocation).Relevant()
}

// Explain returns the first rule that decided the pair. Rules are checked in
// order: empty, unknown, exact, national scope, adjacency, substring.
func (m *Matcher) Explain(alertLocation, userLocation string) Rule {
	alert := m.normalizer.Normalize(alertLocation)
	user := m.normalizer.Normalize(userLocation)
	if alert == "" || user == "" {
		return RuleEmpty
	}
	if alert == m.unknown {
		return RuleUnknown
	}
	if alert == user {
		return RuleExact
	}

	for _, term := range m.national {
		if strings.Contains(alert, term) {
			return RuleNationalScope
		}
	}

	// Adjacency is keyed by the user's anchor city only.
	for _, nearby := range m.adjacency[user] {
		if strings.Contains(alert, nearby) {
			return RuleAdjacency
		}
	}

	if utf8.RuneCountInString(user) > m.minLength && strings.Contains(alert, user) {
		return RuleSubstring
	}
	if m.bidi && utf8.RuneCountInString(alert) > m.minLength && strings.Contains(user, alert) {
		return RuleSubstring
	}
	return RuleNone
}

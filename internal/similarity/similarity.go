package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scope selects the token length filter applied before scoring.
type Scope int

const (
	// Title keeps tokens longer than one rune.
	Title Scope = iota
	// Content keeps tokens longer than two runes.
	Content
)

func (s Scope) minTokenRunes() int {
	if s == Content {
		return 3
	}
	return 2
}

// Normalize lowercases and trims text, drops every rune that is not a letter,
// digit, underscore or space, and collapses whitespace.
func Normalize(text string) string {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Document is a normalized text with its filtered token set, prepared once
// so it can be compared many times.
type Document struct {
	Normalized string
	tokens     map[string]struct{}
}

func NewDocument(text string, scope Scope) Document {
	return documentFromNormalized(Normalize(text), scope)
}

func documentFromNormalized(normalized string, scope Scope) Document {
	doc := Document{Normalized: normalized}
	if normalized == "" {
		return doc
	}

	minRunes := scope.minTokenRunes()
	for _, token := range strings.Fields(normalized) {
		if utf8.RuneCountInString(token) < minRunes {
			continue
		}
		if doc.tokens == nil {
			doc.tokens = make(map[string]struct{})
		}
		doc.tokens[token] = struct{}{}
	}
	return doc
}

// Empty reports whether the document normalized to nothing.
func (d Document) Empty() bool {
	return d.Normalized == ""
}

// Compare scores two prepared documents in [0, 1].
func Compare(a, b Document) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	if a.Normalized == b.Normalized {
		return 1
	}
	return jaccard(a.tokens, b.tokens)
}

// Score normalizes both texts and returns their token Jaccard similarity.
func Score(a, b string, scope Scope) float64 {
	return Compare(NewDocument(a, scope), NewDocument(b, scope))
}

// TitleSimilarity scores two headlines.
func TitleSimilarity(a, b string) float64 {
	return Score(a, b, Title)
}

// ContentSimilarity scores two longer bodies of text.
func ContentSimilarity(a, b string) float64 {
	return Score(a, b, Content)
}

func jaccard(left, right map[string]struct{}) float64 {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	if len(left) > len(right) {
		left, right = right, left
	}

	intersection := 0
	for token := range left {
		if _, ok := right[token]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(left) + len(right) - intersection
	return float64(intersection) / float64(union)
}

package classify

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"

	"horse.fit/newsalert/internal/langdetect"
	"horse.fit/newsalert/internal/location"
	"horse.fit/newsalert/internal/news"
)

// hebrewPrefixes are single-letter prefixes (and, the, in, to, from, that,
// as) that may attach to a keyword without breaking its word boundary.
const hebrewPrefixes = "והבלמשכ"

// DefaultSecurityKeywords returns the built-in keyword list.
func DefaultSecurityKeywords() []string {
	return []string{
		"ירי", "רקטה", "רקטות", "טיל", "טילים", "שיגור", "שיגורים",
		"אזעקה", "אזעקות", "צבע אדום", "פיקוד העורף", "יירוט", "יורטו", "נפילה", "נפילות",
		"פיגוע", "מחבל", "מחבלים", "דקירה", "פיצוץ", "מטען", "חדירה", "חדירת",
		"כטב\"ם", "כטב״ם", "כלי טיס עוין", "רחפן", "פצמ\"ר", "פצמ״ר", "אירוע ביטחוני",
		"rocket", "rockets", "missile", "missiles", "siren", "sirens", "red alert",
		"terror", "terrorist", "terrorists", "attack", "attacks", "explosion", "explosions",
		"shooting", "stabbing", "infiltration", "drone", "drones", "interception",
	}
}

type phraseIndex struct {
	phrases []string
	matcher *ahocorasick.Matcher
}

func newPhraseIndex(raw []string) phraseIndex {
	seen := make(map[string]struct{}, len(raw))
	phrases := make([]string, 0, len(raw))
	for _, p := range raw {
		p = location.Clean(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}
	if len(phrases) == 0 {
		return phraseIndex{}
	}
	return phraseIndex{phrases: phrases, matcher: ahocorasick.NewStringMatcher(phrases)}
}

type phraseHit struct {
	phrase string
	offset int
}

// find returns every phrase that occurs as a whole word, ordered by first
// offset and then by length (longest first).
func (x phraseIndex) find(text string) []phraseHit {
	cleaned := location.Clean(text)
	if x.matcher == nil || cleaned == "" {
		return nil
	}

	var hits []phraseHit
	for _, idx := range x.matcher.MatchThreadSafe([]byte(cleaned)) {
		phrase := x.phrases[idx]
		if offset, ok := firstWholeWord(cleaned, phrase); ok {
			hits = append(hits, phraseHit{phrase: phrase, offset: offset})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].offset != hits[j].offset {
			return hits[i].offset < hits[j].offset
		}
		return len(hits[i].phrase) > len(hits[j].phrase)
	})
	return hits
}

func firstWholeWord(text, phrase string) (int, bool) {
	from := 0
	for from <= len(text) {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return 0, false
		}
		at := from + i
		if atWordStart(text, at) && atWordEnd(text, at+len(phrase)) {
			return at, true
		}
		_, size := utf8.DecodeRuneInString(text[at:])
		from = at + size
	}
	return 0, false
}

func atWordStart(text string, at int) bool {
	if at == 0 {
		return true
	}
	prev, size := utf8.DecodeLastRuneInString(text[:at])
	if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
		return true
	}
	if !strings.ContainsRune(hebrewPrefixes, prev) {
		return false
	}
	// One prefix letter must itself start a word.
	before := at - size
	if before == 0 {
		return true
	}
	prev2, _ := utf8.DecodeLastRuneInString(text[:before])
	return !unicode.IsLetter(prev2) && !unicode.IsDigit(prev2)
}

func atWordEnd(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[end:])
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}

// KeywordClassifier flags security events by phrase lookup and spots the
// first known place named in the text. It never fails.
type KeywordClassifier struct {
	keywords   phraseIndex
	places     phraseIndex
	normalizer *location.Normalizer
}

func NewKeywordClassifier(keywords []string, tables location.Tables) *KeywordClassifier {
	return &KeywordClassifier{
		keywords:   newPhraseIndex(keywords),
		places:     newPhraseIndex(tables.Places()),
		normalizer: location.NewNormalizer(tables),
	}
}

func (k *KeywordClassifier) Name() string {
	return "keyword"
}

func (k *KeywordClassifier) Classify(_ context.Context, item news.FeedItem) (Classification, error) {
	text := item.Title + " " + item.Description
	return Classification{
		IsSecurityEvent: len(k.MatchedKeywords(text)) > 0,
		Location:        k.SpotLocation(text),
		Title:           item.Title,
		Description:     item.Description,
		Language:        langdetect.DetectISO6391(text),
		Method:          MethodKeyword,
	}, nil
}

// MatchedKeywords lists keywords found in text, in order of appearance.
func (k *KeywordClassifier) MatchedKeywords(text string) []string {
	hits := k.keywords.find(text)
	out := make([]string, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.phrase)
	}
	return out
}

// SpotLocation returns the normalized form of the earliest known place in
// text, or news.LocationUnknown.
func (k *KeywordClassifier) SpotLocation(text string) string {
	hits := k.places.find(text)
	if len(hits) == 0 {
		return news.LocationUnknown
	}
	return k.normalizer.Normalize(hits[0].phrase)
}

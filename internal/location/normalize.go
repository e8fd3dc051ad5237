package location

import (
	"sort"
	"strings"
)

var dashReplacer = strings.NewReplacer(
	"\u2010", "-", // hyphen
	"\u2011", "-", // non-breaking hyphen
	"\u2012", "-", // figure dash
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
	"\u2015", "-", // horizontal bar
	"\u2212", "-", // minus sign
	"\u05be", "-", // hebrew maqaf
	"\ufe58", "-", // small em dash
	"\ufe63", "-", // small hyphen-minus
	"\uff0d", "-", // fullwidth hyphen-minus
)

var defaultNormalizer = NewNormalizer(DefaultTables())

// Normalize canonicalizes a location using the default tables.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

type foldedAlias struct {
	canonical string
	variants  []string
}

// Normalizer turns free-text locations into a comparable canonical form.
// It is safe for concurrent use.
type Normalizer struct {
	aliases []foldedAlias
}

func NewNormalizer(tables Tables) *Normalizer {
	aliases := make([]foldedAlias, 0, len(tables.Aliases))
	for _, group := range tables.Aliases {
		canonical := normalizeBase(group.Canonical)
		if canonical == "" {
			continue
		}
		folded := foldedAlias{canonical: canonical}
		for _, variant := range group.Variants {
			if v := normalizeBase(variant); v != "" {
				folded.variants = append(folded.variants, v)
			}
		}
		aliases = append(aliases, folded)
	}
	return &Normalizer{aliases: aliases}
}

// Normalize lowercases, unifies dashes and whitespace, and folds known alias
// spellings into their canonical name. The first alias group whose variant
// appears anywhere in the input replaces the whole result.
func (n *Normalizer) Normalize(raw string) string {
	normalized := normalizeBase(raw)
	if normalized == "" || n == nil {
		return normalized
	}

	for _, alias := range n.aliases {
		if normalized == alias.canonical {
			return alias.canonical
		}
		for _, variant := range alias.variants {
			if strings.Contains(normalized, variant) {
				return alias.canonical
			}
		}
	}
	return normalized
}

func normalizeBase(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	return strings.Join(strings.Fields(dashReplacer.Replace(trimmed)), " ")
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clean applies the lowercase, dash and whitespace steps of Normalize
// without alias folding. Free text can be scanned for place names with it.
func Clean(raw string) string {
	return normalizeBase(raw)
}

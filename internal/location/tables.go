package location

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasGroup folds every variant spelling of one place into a canonical name.
type AliasGroup struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// Tables holds the static lookup data used by the normalizer and the matcher.
// Values are treated as immutable once handed to NewNormalizer or NewMatcher.
type Tables struct {
	Aliases       []AliasGroup        `yaml:"aliases"`
	NationalScope []string            `yaml:"national_scope"`
	Adjacency     map[string][]string `yaml:"adjacency"`
}

// DefaultTables returns the built-in tables for Israeli alert locations.
func DefaultTables() Tables {
	return Tables{
		Aliases: []AliasGroup{
			{
				Canonical: "תל אביב-יפו",
				Variants:  []string{"תל אביב", "תל-אביב", `ת"א`, "ת״א", "tel aviv", "tel-aviv"},
			},
		},
		NationalScope: []string{
			"ישראל",
			"כל הארץ",
			"צפון",
			"דרום",
			"מרכז",
			"גוש דן",
			"israel",
			"nationwide",
		},
		Adjacency: map[string][]string{
			"תל אביב-יפו": {
				"רמת גן", "גבעתיים", "בני ברק", "חולון", "בת ים",
				"הרצליה", "רמת השרון", "פתח תקווה", "ראשון לציון", "אור יהודה",
			},
			"ירושלים": {
				"מבשרת ציון", "בית שמש", "מעלה אדומים", "גוש עציון", "אבו גוש", "מוצא",
			},
			"חיפה": {
				"קריית אתא", "קריית ביאליק", "קריית מוצקין", "קריית ים", "נשר", "טירת כרמל", "עכו",
			},
			"באר שבע": {
				"אופקים", "נתיבות", "דימונה", "ירוחם", "עומר", "להבים", "רהט",
			},
		},
	}
}

// LoadTables reads tables from a YAML file. An empty path yields DefaultTables.
func LoadTables(path string) (Tables, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTables(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read location tables %q: %w", path, err)
	}

	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return Tables{}, fmt.Errorf("parse location tables %q: %w", path, err)
	}
	if err := tables.Validate(); err != nil {
		return Tables{}, fmt.Errorf("location tables %q: %w", path, err)
	}
	return tables, nil
}

func (t Tables) Validate() error {
	for i, group := range t.Aliases {
		if normalizeBase(group.Canonical) == "" {
			return fmt.Errorf("aliases[%d]: canonical is required", i)
		}
		if len(group.Variants) == 0 {
			return fmt.Errorf("aliases[%d]: at least one variant is required", i)
		}
		for j, variant := range group.Variants {
			if normalizeBase(variant) == "" {
				return fmt.Errorf("aliases[%d].variants[%d] must not be empty", i, j)
			}
		}
	}
	// Groups are folded in order, so a canonical that contains an earlier
	// group's variant would normalize to that group on a second pass.
	for i, group := range t.Aliases {
		canonical := normalizeBase(group.Canonical)
		for j := 0; j < i; j++ {
			if normalizeBase(t.Aliases[j].Canonical) == canonical {
				continue
			}
			for _, variant := range t.Aliases[j].Variants {
				if strings.Contains(canonical, normalizeBase(variant)) {
					return fmt.Errorf("aliases[%d]: canonical %q is folded by aliases[%d] variant %q", i, group.Canonical, j, variant)
				}
			}
		}
	}
	for i, term := range t.NationalScope {
		if normalizeBase(term) == "" {
			return fmt.Errorf("national_scope[%d] must not be empty", i)
		}
	}
	for anchor, nearby := range t.Adjacency {
		if normalizeBase(anchor) == "" {
			return fmt.Errorf("adjacency: anchor name must not be empty")
		}
		for i, place := range nearby {
			if normalizeBase(place) == "" {
				return fmt.Errorf("adjacency[%q][%d] must not be empty", anchor, i)
			}
		}
	}
	return nil
}

// Places lists every concrete place name the tables know about: alias
// canonicals and variants, adjacency anchors and their nearby places.
// National-scope terms are not included.
func (t Tables) Places() []string {
	seen := make(map[string]struct{})
	places := make([]string, 0, 64)
	add := func(name string) {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return
		}
		if _, ok := seen[trimmed]; ok {
			return
		}
		seen[trimmed] = struct{}{}
		places = append(places, trimmed)
	}

	for _, group := range t.Aliases {
		add(group.Canonical)
		for _, variant := range group.Variants {
			add(variant)
		}
	}
	for _, anchor := range sortedKeys(t.Adjacency) {
		add(anchor)
		for _, place := range t.Adjacency[anchor] {
			add(place)
		}
	}
	return places
}

package classify

import (
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/location"
)

// Settings selects and configures the classifier stack.
type Settings struct {
	Provider string
	Hosted   ProviderSettings
	Keywords []string
}

// Build returns the keyword classifier alone for the keyword provider, or
// the hosted model with keyword fallback otherwise.
func Build(settings Settings, tables location.Tables, logger zerolog.Logger) (*Chain, error) {
	keywords := settings.Keywords
	if len(keywords) == 0 {
		keywords = DefaultSecurityKeywords()
	}
	fallback := NewKeywordClassifier(keywords, tables)

	name := normalizeProviderName(settings.Provider)
	if name == "" || name == KeywordProviderName {
		return NewChain(nil, fallback, logger), nil
	}

	provider, err := NewRegistryFromSettings(name, settings.Hosted).Provider("")
	if err != nil {
		return nil, fmt.Errorf("resolve classifier provider: %w", err)
	}
	return NewChain(NewAIClassifier(provider), fallback, logger), nil
}

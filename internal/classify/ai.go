package classify

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/newsalert/internal/langdetect"
	"horse.fit/newsalert/internal/news"
	"horse.fit/newsalert/internal/schema"
)

const systemPromptTemplate = `You classify news flashes for a civilian safety alert service in Israel.
Reply with one JSON object and nothing else:
{"is_security_event": boolean, "location": string, "title": string, "summary": string}
is_security_event is true only for rocket or missile fire, sirens, hostile aircraft or drone infiltration,
terror attacks, shootings, stabbings, explosions, or military incidents that affect civilians.
location is the most specific city, town or region the item names, written in %s. Use "" when none is named.
title is a short headline in the item's language. summary is at most two sentences in the item's language.`

// AIClassifier asks a hosted model for a verdict and validates the reply
// against the classification schema.
type AIClassifier struct {
	provider Provider
}

func NewAIClassifier(provider Provider) *AIClassifier {
	return &AIClassifier{provider: provider}
}

func (c *AIClassifier) Name() string {
	if c == nil || c.provider == nil {
		return "ai"
	}
	return "ai:" + c.provider.Name()
}

func (c *AIClassifier) Classify(ctx context.Context, item news.FeedItem) (Classification, error) {
	if c == nil || c.provider == nil {
		return failed(item), ErrNoProvider
	}

	language := langdetect.DetectISO6391(item.Title + " " + item.Description)
	reply, err := c.provider.Complete(ctx, CompletionRequest{
		System: buildSystemPrompt(language),
		User:   buildUserPrompt(item),
	})
	if err != nil {
		return failed(item), fmt.Errorf("%s: %w", c.provider.Name(), err)
	}

	verdict, err := schema.ValidateClassification([]byte(extractJSONObject(reply)))
	if err != nil {
		return failed(item), fmt.Errorf("%s reply: %w", c.provider.Name(), err)
	}

	return Classification{
		IsSecurityEvent: verdict.IsSecurityEvent,
		Location:        locationOrUnknown(verdict.Location),
		Title:           firstNonEmpty(verdict.Title, item.Title),
		Description:     firstNonEmpty(verdict.Summary, item.Description),
		Language:        language,
		Method:          MethodAI,
	}, nil
}

func buildSystemPrompt(language string) string {
	name := langdetect.DisplayName(language)
	if name == "" {
		name = "Hebrew"
	}
	return fmt.Sprintf(systemPromptTemplate, name)
}

func buildUserPrompt(item news.FeedItem) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(strings.TrimSpace(item.Title))
	if desc := strings.TrimSpace(item.Description); desc != "" && desc != news.NoDetailsDescription {
		b.WriteString("\nDescription: ")
		b.WriteString(desc)
	}
	if src := strings.TrimSpace(item.Source); src != "" {
		b.WriteString("\nSource: ")
		b.WriteString(src)
	}
	return b.String()
}

// extractJSONObject drops markdown fences and any prose around the first
// top-level object in a model reply.
func extractJSONObject(reply string) string {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(text)
	}
	return text[start : end+1]
}

package classify

import (
	"context"
	"net/url"
	"strings"
	"time"
)

const defaultProviderTimeout = 30 * time.Second

// Provider sends one prompt to a hosted model and returns its text reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	System string
	User   string
}

// ProviderSettings configures a hosted model. Empty fields use the
// provider's defaults.
type ProviderSettings struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

func (s ProviderSettings) timeout() time.Duration {
	if s.Timeout <= 0 {
		return defaultProviderTimeout
	}
	return s.Timeout
}

// normalizeBaseURL adds a scheme when missing and trims trailing slashes.
// Unparseable input yields fallback.
func normalizeBaseURL(raw, fallback string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return fallback
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return fallback
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String()
}

// joinAPIPath appends an API route unless the base already ends with it.
// A base without a version segment gets "/v1".
func joinAPIPath(base, route string) string {
	parsed, err := url.Parse(base)
	if err != nil {
		return base + "/v1" + route
	}

	path := strings.TrimRight(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, route):
		parsed.Path = path
	case strings.HasSuffix(path, "/v1"):
		parsed.Path = path + route
	default:
		parsed.Path = path + "/v1" + route
	}
	return parsed.String()
}

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultAnthropicEndpoint = "https://api.anthropic.com"
	DefaultAnthropicModel    = "claude-3-5-haiku-latest"
	anthropicVersion         = "2023-06-01"
	anthropicMaxTokens       = 512
)

// AnthropicProvider calls the Anthropic messages API.
type AnthropicProvider struct {
	endpointURL string
	model       string
	apiKey      string
	client      *http.Client
}

func NewAnthropicProvider(settings ProviderSettings) *AnthropicProvider {
	model := strings.TrimSpace(settings.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	base := normalizeBaseURL(settings.Endpoint, DefaultAnthropicEndpoint)
	return &AnthropicProvider{
		endpointURL: joinAPIPath(base, "/messages"),
		model:       model,
		apiKey:      strings.TrimSpace(settings.APIKey),
		client:      &http.Client{Timeout: settings.timeout()},
	}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) ModelName() string {
	if p == nil {
		return ""
	}
	return p.model
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if p == nil {
		return "", fmt.Errorf("anthropic provider is nil")
	}

	body, err := json.Marshal(messagesRequest{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		System:    strings.TrimSpace(req.System),
		Messages:  []chatMessage{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal messages request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if p.apiKey != "" {
		httpReq.Header.Set("x-api-key", p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send messages request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read messages response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload messagesErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return "", fmt.Errorf("messages endpoint status %d (%s): %s", resp.StatusCode, errPayload.Error.Type, msg)
			}
		}
		return "", fmt.Errorf("messages endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode messages response: %w", err)
	}

	var b strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type messagesErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

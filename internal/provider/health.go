package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Default public API roots used when no base URL override is configured.
const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
)

// HealthCheck probes the selected backend with a request that consumes no
// tokens: a model listing where the API offers one. Backends without such an
// endpoint (ark, gemini) are only checked for complete configuration.
func (c *Config) HealthCheck(ctx context.Context, client *http.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if client == nil {
		client = http.DefaultClient
	}

	var (
		target string
		header = http.Header{}
	)
	switch c.Backend {
	case BackendOllama:
		target = strings.TrimRight(c.Ollama.Host, "/") + "/api/tags"
	case BackendOpenAI:
		base := c.OpenAI.BaseURL
		if base == "" {
			base = defaultOpenAIBaseURL
		}
		target = strings.TrimRight(base, "/") + "/models"
		header.Set("Authorization", "Bearer "+c.OpenAI.APIKey)
	case BackendAzure:
		target = strings.TrimRight(c.AzureOpenAI.Endpoint, "/") + "/openai/models?api-version=" +
			url.QueryEscape(c.AzureOpenAI.APIVersion)
		header.Set("api-key", c.AzureOpenAI.APIKey)
	case BackendAnthropic:
		base := c.Anthropic.BaseURL
		if base == "" {
			base = defaultAnthropicBaseURL
		}
		target = strings.TrimRight(base, "/") + "/v1/models"
		header.Set("x-api-key", c.Anthropic.APIKey)
		header.Set("anthropic-version", "2023-06-01")
	default:
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("provider: health request: %w", err)
	}
	req.Header = header

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: %s unreachable: %w", c.Backend, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider: %s health check returned %d", c.Backend, resp.StatusCode)
	}
	return nil
}

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "openai/valid",
			cfg:  Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o-mini"}},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o-mini"}},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "openai/missing model",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "sk-test"}},
			wantErr: "OPENAI_MODEL",
		},
		{
			name: "azure/valid",
			cfg: Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{
				APIKey: "key", Endpoint: "https://my.openai.azure.com", Deployment: "gpt-4o", APIVersion: "2024-02-01",
			}},
		},
		{
			name:    "azure/missing everything lists every var",
			cfg:     Config{Backend: BackendAzure},
			wantErr: "AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{
				APIKey: "key", Endpoint: "https://my.openai.azure.com",
			}},
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},
		{
			name: "ollama/valid",
			cfg:  Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434", Model: "llama3"}},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}},
			wantErr: "OLLAMA_MODEL",
		},
		{
			name: "ark/valid",
			cfg:  Config{Backend: BackendArk, Ark: ProviderArk{APIKey: "ak", Model: "doubao-pro"}},
		},
		{
			name:    "ark/missing model",
			cfg:     Config{Backend: BackendArk, Ark: ProviderArk{APIKey: "ak"}},
			wantErr: "ARK_MODEL",
		},
		{
			name: "gemini/valid",
			cfg:  Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "AIza-test", Model: "gemini-1.5-flash"}},
		},
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-1.5-flash"}},
			wantErr: "GOOGLE_API_KEY",
		},
		{
			name: "anthropic/valid",
			cfg:  Config{Backend: BackendAnthropic, Anthropic: ProviderAnthropic{APIKey: "sk-ant", Model: "claude-3-5-haiku-latest"}},
		},
		{
			name:    "anthropic/missing api key",
			cfg:     Config{Backend: BackendAnthropic, Anthropic: ProviderAnthropic{Model: "claude-3-5-haiku-latest"}},
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "bedrock"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
			if wantNotConfigured := tc.cfg.Backend != "bedrock"; errors.Is(err, ErrNotConfigured) != wantNotConfigured {
				t.Errorf("errors.Is(err, ErrNotConfigured) = %v, want %v", !wantNotConfigured, wantNotConfigured)
			}
		})
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODEL_PROVIDER", "OPENAI_API_KEY", "OPENAI_MODEL", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE"} {
		t.Setenv(k, "")
	}

	cfg := ConfigFromEnv()

	if cfg.Backend != BackendOpenAI {
		t.Errorf("Backend = %q, want openai", cfg.Backend)
	}
	if cfg.ModelName() != "gpt-4o-mini" {
		t.Errorf("ModelName() = %q", cfg.ModelName())
	}
	if cfg.Tuning.MaxTokens != 1000 || cfg.Tuning.Temperature != 0.7 {
		t.Errorf("Tuning = %+v", cfg.Tuning)
	}

	m, err := New(context.Background(), cfg)
	if !errors.Is(err, ErrNotConfigured) || m != nil {
		t.Errorf("New() = %v, %v; want nil, ErrNotConfigured", m, err)
	}
}

func TestIsAzureReasoningModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		deployment string
		want       bool
	}{
		{"o1", true},
		{"o1-preview", true},
		{"o3-mini", true},
		{"o4-mini", true},
		{"O3-Mini", true},
		{"codex-mini", true},
		{"gpt-5.2-codex", false},
		{"gpt-4o", false},
		{"gpt-4.1", false},
		{"gpt-35-turbo", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.deployment, func(t *testing.T) {
			t.Parallel()
			if got := isAzureReasoningModel(tc.deployment); got != tc.want {
				t.Errorf("isAzureReasoningModel(%q) = %v, want %v", tc.deployment, got, tc.want)
			}
		})
	}
}

func TestAnthropicModel_Generate(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",` +
			`"content":[{"type":"text","text":"Bonjour"},{"type":"text","text":" !"}],` +
			`"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":2}}`))
	}))
	t.Cleanup(srv.Close)

	m, err := New(context.Background(), &Config{
		Backend:   BackendAnthropic,
		Anthropic: ProviderAnthropic{APIKey: "sk-ant", Model: "claude-test", BaseURL: srv.URL},
		Tuning:    SharedTuning{MaxTokens: 100, Temperature: 0.5},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	resp, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be brief"),
		schema.UserMessage("hello"),
	}, model.WithMaxTokens(42))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if resp.Content != "Bonjour !" {
		t.Errorf("Content = %q", resp.Content)
	}
	if got["max_tokens"] != float64(42) {
		t.Errorf("max_tokens = %v, want 42", got["max_tokens"])
	}
	if got["model"] != "claude-test" {
		t.Errorf("model = %v", got["model"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 1 {
		t.Errorf("messages = %v, want only the user turn", got["messages"])
	}
	if _, ok := got["system"]; !ok {
		t.Error("system prompt not sent")
	}
}

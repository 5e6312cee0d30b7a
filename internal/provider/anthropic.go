package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// anthropicDefaultMaxTokens is used when neither the call nor the config sets
// a limit; the Messages API requires one.
const anthropicDefaultMaxTokens = 1024

// anthropicModel adapts the Anthropic Messages API to model.BaseChatModel.
type anthropicModel struct {
	client *anthropic.Client
	model  string
	tuning SharedTuning
}

var _ model.BaseChatModel = (*anthropicModel)(nil)

func newAnthropic(cfg *Config) *anthropicModel {
	var opts []anthropic.ClientOption
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimRight(cfg.Anthropic.BaseURL, "/")))
	}
	return &anthropicModel{
		client: anthropic.NewClient(cfg.Anthropic.APIKey, opts...),
		model:  cfg.Anthropic.Model,
		tuning: cfg.Tuning,
	}
}

// Generate sends one Messages request and returns the concatenated text.
func (m *anthropicModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	resp, err := m.client.CreateMessages(ctx, m.request(input, opts))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	return schema.AssistantMessage(sb.String(), nil), nil
}

// Stream sends a streaming Messages request and forwards text deltas as
// assistant message chunks.
func (m *anthropicModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](8)
	req := anthropic.MessagesStreamRequest{MessagesRequest: m.request(input, opts)}
	req.OnContentBlockDelta = func(delta anthropic.MessagesEventContentBlockDeltaData) {
		if delta.Delta.Text != nil && *delta.Delta.Text != "" {
			sw.Send(schema.AssistantMessage(*delta.Delta.Text, nil), nil)
		}
	}

	go func() {
		defer sw.Close()
		if _, err := m.client.CreateMessagesStream(ctx, req); err != nil {
			sw.Send(nil, fmt.Errorf("anthropic: %w", err))
		}
	}()
	return sr, nil
}

// request converts eino messages into a Messages API request. System
// messages become system parts; tool messages are not used by this service.
func (m *anthropicModel) request(input []*schema.Message, opts []model.Option) anthropic.MessagesRequest {
	maxTokens := m.tuning.MaxTokens
	defaults := &model.Options{MaxTokens: &maxTokens}
	if m.tuning.Temperature != 0 {
		temp := m.tuning.Temperature
		defaults.Temperature = &temp
	}
	o := model.GetCommonOptions(defaults, opts...)
	if o.MaxTokens != nil {
		maxTokens = *o.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(m.model),
		MaxTokens: maxTokens,
	}
	if o.Temperature != nil {
		t := *o.Temperature
		req.Temperature = &t
	}
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			req.MultiSystem = append(req.MultiSystem, anthropic.MessageSystemPart{Type: "text", Text: msg.Content})
		case schema.User:
			req.Messages = append(req.Messages, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		case schema.Assistant:
			if msg.Content == "" {
				continue
			}
			req.Messages = append(req.Messages, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		}
	}
	return req
}

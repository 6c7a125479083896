package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const anthropicMaxTokens = 4096

// AnthropicClient provides access to the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates a client for the Anthropic API.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
		logger: logger.Named("llm-anthropic"),
	}, nil
}

// Complete performs a single chat completion round.
func (c *AnthropicClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	messages, err := c.buildMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    req.SystemPrompt,
		Messages:  messages,
		MaxTokens: anthropicMaxTokens,
		Tools:     c.buildTools(req.Tools),
	})
	if err != nil {
		c.logger.Error("messages request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("create messages: %w", err)
	}

	out := &Response{}
	for _, block := range resp.Content {
		switch {
		case block.Type == anthropic.MessagesContentTypeText && block.Text != nil:
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += *block.Text
		case block.Type == anthropic.MessagesContentTypeToolUse && block.MessageContentToolUse != nil:
			use := block.MessageContentToolUse
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID: use.ID,
				Function: ToolCallFunc{
					Name:      use.Name,
					Arguments: string(use.Input),
				},
			})
		}
	}

	c.logger.Debug("messages request done",
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Duration("elapsed", time.Since(start)))

	return out, nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// buildMessages converts the neutral transcript to the Messages API
// shape: tool calls become tool_use blocks on the assistant turn, and
// consecutive tool results collapse into a single user turn.
func (c *AnthropicClient) buildMessages(messages []Message) ([]anthropic.Message, error) {
	var result []anthropic.Message

	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case RoleUser:
			result = append(result, anthropic.NewUserTextMessage(msg.Content))

		case RoleAssistant:
			var content []anthropic.MessageContent
			if msg.Content != "" {
				text := msg.Content
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeText,
					Text: &text,
				})
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Function.Name,
						Input: json.RawMessage(tc.Function.Arguments),
					},
				})
			}
			result = append(result, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: content,
			})

		case RoleTool:
			var content []anthropic.MessageContent
			for ; i < len(messages) && messages[i].Role == RoleTool; i++ {
				content = append(content,
					anthropic.NewToolResultMessageContent(messages[i].ToolCallID, messages[i].Content, false))
			}
			i--
			result = append(result, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: content,
			})

		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	return result, nil
}

func (c *AnthropicClient) buildTools(tools []ToolDefinition) []anthropic.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolDefinition, len(tools))
	for i, def := range tools {
		result[i] = anthropic.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		}
	}
	return result
}

// Ensure AnthropicClient implements Client at compile time.
var _ Client = (*AnthropicClient)(nil)

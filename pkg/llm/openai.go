package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient provides access to OpenAI-compatible chat endpoints.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// An empty endpoint uses the public API.
func NewOpenAIClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.Named("llm-openai"),
	}, nil
}

// Complete performs a single chat completion round.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	messages := c.buildMessages(req.Messages, req.SystemPrompt)
	tools := c.buildTools(req.Tools)

	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = 0.3
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: temperature,
	})
	if err != nil {
		c.logger.Error("chat completion failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	out := &Response{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID: tc.ID,
			Function: ToolCallFunc{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	c.logger.Debug("chat completion done",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Duration("elapsed", time.Since(start)))

	return out, nil
}

// GetModel returns the configured model name.
func (c *OpenAIClient) GetModel() string {
	return c.model
}

func (c *OpenAIClient) buildMessages(messages []Message, systemPrompt string) []openai.ChatCompletionMessage {
	var result []openai.ChatCompletionMessage

	if systemPrompt != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}

		result = append(result, oaiMsg)
	}

	return result
}

func (c *OpenAIClient) buildTools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openai.Tool, len(tools))
	for i, def := range tools {
		paramsJSON, _ := json.Marshal(def.Parameters)
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(paramsJSON),
			},
		}
	}

	return result
}

// Ensure OpenAIClient implements Client at compile time.
var _ Client = (*OpenAIClient)(nil)

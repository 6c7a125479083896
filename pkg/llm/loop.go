package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Runner drives the tool-call conversation loop over any Client.
type Runner struct {
	client    Client
	maxRounds int
	logger    *zap.Logger
}

// NewRunner creates a conversation runner. maxRounds bounds how many
// completion rounds one Generate call may spend on tool use.
func NewRunner(client Client, maxRounds int, logger *zap.Logger) *Runner {
	if maxRounds <= 0 {
		maxRounds = 8
	}
	return &Runner{
		client:    client,
		maxRounds: maxRounds,
		logger:    logger.Named("llm-runner"),
	}
}

// Generate performs chat completion with tool support, executing tool
// calls through the executor until the model produces a final text
// answer. Tool execution errors are fed back to the model rather than
// aborting the conversation.
func (r *Runner) Generate(ctx context.Context, req *Request, executor ToolExecutor) (string, error) {
	messages := make([]Message, len(req.Messages))
	copy(messages, req.Messages)

	for round := 0; round < r.maxRounds; round++ {
		r.logger.Debug("completion round",
			zap.Int("round", round),
			zap.Int("message_count", len(messages)))

		resp, err := r.client.Complete(ctx, &Request{
			SystemPrompt: req.SystemPrompt,
			Messages:     messages,
			Tools:        req.Tools,
			Temperature:  req.Temperature,
		})
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result, execErr := executor.ExecuteTool(ctx, tc.Function.Name, tc.Function.Arguments)
			if execErr != nil {
				result = fmt.Sprintf("Error executing tool: %s", execErr.Error())
			}
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", fmt.Errorf("exceeded maximum tool rounds (%d)", r.maxRounds)
}

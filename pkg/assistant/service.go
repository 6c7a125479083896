package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/llm"
	"github.com/growthbox/databot/pkg/sheets"
	"github.com/growthbox/databot/pkg/wiki"
)

// Turn is one prior exchange in a conversation thread.
type Turn struct {
	Role    string // llm.RoleUser or llm.RoleAssistant
	Content string
}

// Service answers natural-language data questions over the warehouse.
type Service interface {
	// Answer runs one conversation turn: the user's prompt plus the
	// thread's prior turns, through the model and its tools, down to a
	// final text answer.
	Answer(ctx context.Context, history []Turn, prompt string) (string, error)
}

type service struct {
	runner     *llm.Runner
	gateway    Gateway
	pageWriter wiki.PageWriter
	exporter   sheets.Exporter
	warehouse  string // dialect name, for the system prompt
	logger     *zap.Logger
}

// NewService creates the assistant service.
func NewService(runner *llm.Runner, gw Gateway, pages wiki.PageWriter, exporter sheets.Exporter, warehouseType string, logger *zap.Logger) Service {
	return &service{
		runner:     runner,
		gateway:    gw,
		pageWriter: pages,
		exporter:   exporter,
		warehouse:  warehouseType,
		logger:     logger.Named("assistant"),
	}
}

func (s *service) Answer(ctx context.Context, history []Turn, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is required")
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})

	executor := NewToolExecutor(s.gateway, s.pageWriter, s.exporter, prompt, s.logger)

	answer, err := s.runner.Generate(ctx, &llm.Request{
		SystemPrompt: s.systemPrompt(),
		Messages:     messages,
		Tools:        llm.GetAssistantTools(),
	}, executor)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	return answer, nil
}

func (s *service) systemPrompt() string {
	return fmt.Sprintf(`You are the team's data assistant. You answer questions about subscriptions, boxes, orders and churn by querying the analytics warehouse.

Rules:
- Use the execute_sql tool with a single read-only %s SELECT statement.
- Write date filters as explicit 'YYYY-MM-DD' literals so results are reproducible.
- Answer in the user's language, keep numbers exact, and include the enrichment blocks (breakdowns, period comparisons) from the tool output when present.
- Use save_to_wiki or export_to_sheet only when the user asks for it.`, s.warehouse)
}

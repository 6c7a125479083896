package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/apperrors"
	"github.com/growthbox/databot/pkg/llm"
	"github.com/growthbox/databot/pkg/sheets"
	sqlcheck "github.com/growthbox/databot/pkg/sql"
	"github.com/growthbox/databot/pkg/warehouse"
	"github.com/growthbox/databot/pkg/wiki"
)

// toolExecutor implements llm.ToolExecutor over the gateway and the
// result delivery services. One executor serves one conversation turn:
// it remembers the last query result so save_to_wiki and
// export_to_sheet can refer to "the previous query".
type toolExecutor struct {
	gateway    Gateway
	pageWriter wiki.PageWriter
	exporter   sheets.Exporter
	prompt     string
	lastResult *warehouse.QueryResult
	logger     *zap.Logger
}

// NewToolExecutor creates the tool executor for one conversation turn.
// prompt is the user's message, used by the enrichment engine for
// context detection.
func NewToolExecutor(gw Gateway, pages wiki.PageWriter, exporter sheets.Exporter, prompt string, logger *zap.Logger) llm.ToolExecutor {
	return &toolExecutor{
		gateway:    gw,
		pageWriter: pages,
		exporter:   exporter,
		prompt:     prompt,
		logger:     logger.Named("tool-executor"),
	}
}

// ExecuteTool dispatches to the appropriate tool handler based on name.
func (e *toolExecutor) ExecuteTool(ctx context.Context, name string, arguments string) (string, error) {
	e.logger.Debug("Executing tool",
		zap.String("tool", name))

	switch name {
	case "execute_sql":
		return e.executeSQL(ctx, arguments)
	case "save_to_wiki":
		return e.saveToWiki(ctx, arguments)
	case "export_to_sheet":
		return e.exportToSheet(ctx, arguments)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

type executeSQLArgs struct {
	SQL string `json:"sql"`
}

func (e *toolExecutor) executeSQL(ctx context.Context, arguments string) (string, error) {
	var args executeSQLArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.SQL == "" {
		return "", fmt.Errorf("sql is required")
	}

	res, err := e.gateway.Execute(ctx, e.prompt, args.SQL)
	if err != nil {
		// Tool failures are content for the model, not a loop abort.
		return fmt.Sprintf("Query error: %s", err.Error()), nil
	}

	e.lastResult = res.Result
	return FormatResultText(res), nil
}

type saveToWikiArgs struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func (e *toolExecutor) saveToWiki(ctx context.Context, arguments string) (string, error) {
	var args saveToWikiArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Title == "" {
		return "", fmt.Errorf("title is required")
	}
	if e.lastResult == nil {
		return "No query result available yet. Run execute_sql first.", nil
	}
	if check := sqlcheck.CheckForInjection("wiki_title", args.Title); check != nil {
		return "", fmt.Errorf("title rejected: %w", apperrors.ErrInjectionDetected)
	}

	page, err := e.pageWriter.PublishResult(ctx, args.Title, args.Summary, e.lastResult)
	if err != nil {
		return fmt.Sprintf("Wiki publish failed: %s", err.Error()), nil
	}

	return fmt.Sprintf("Saved to wiki: %s (%s)", page.Title, page.URL), nil
}

type exportToSheetArgs struct {
	Filename  string `json:"filename"`
	SheetName string `json:"sheet_name"`
}

func (e *toolExecutor) exportToSheet(_ context.Context, arguments string) (string, error) {
	var args exportToSheetArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	if e.lastResult == nil {
		return "No query result available yet. Run execute_sql first.", nil
	}

	path, err := e.exporter.ExportResult(args.Filename, args.SheetName, e.lastResult)
	if err != nil {
		return fmt.Sprintf("Export failed: %s", err.Error()), nil
	}

	return fmt.Sprintf("Exported to %s", path), nil
}

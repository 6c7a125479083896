package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/assistant"
	"github.com/growthbox/databot/pkg/logging"
)

// QueryToolDeps holds the dependencies the analytics query tools need.
type QueryToolDeps struct {
	Gateway assistant.Gateway
	Logger  *zap.Logger
}

// RegisterQueryTools registers the warehouse query tools on the MCP server.
func RegisterQueryTools(s *server.MCPServer, deps *QueryToolDeps) {
	registerRunAnalyticsQueryTool(s, deps)
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return val
}

func registerRunAnalyticsQueryTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"run_analytics_query",
		mcp.WithDescription(
			"Run a read-only SELECT against the analytics warehouse. "+
				"Queries are validated, row-limited, and may be enriched with an "+
				"automatic breakdown and period comparison when the question context allows it.",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("The SELECT statement to execute"),
		),
		mcp.WithString(
			"prompt",
			mcp.Description("The original question behind the query, used to pick dimensions for enrichment"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlQuery, err := req.RequireString("sql")
		if err != nil {
			return nil, err
		}
		prompt := getOptionalString(req, "prompt")

		execResult, err := deps.Gateway.Execute(ctx, prompt, sqlQuery)
		if err != nil {
			deps.Logger.Warn("analytics query failed",
				zap.String("query", logging.SanitizeQuery(sqlQuery)),
				zap.String("error", logging.SanitizeError(err)))
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %s", logging.SanitizeError(err))), nil
		}

		return mcp.NewToolResultText(assistant.FormatResultText(execResult)), nil
	})
}

// Package assistant orchestrates the conversational data assistant: the
// query execution gateway, the LLM tool loop and the result delivery
// tools built on top of it.
package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/analysis"
	"github.com/growthbox/databot/pkg/apperrors"
	"github.com/growthbox/databot/pkg/logging"
	sqlcheck "github.com/growthbox/databot/pkg/sql"
	"github.com/growthbox/databot/pkg/warehouse"
)

// ExecutionResult is the outcome of one gateway execution.
type ExecutionResult struct {
	Result *warehouse.QueryResult
	// Truncated is set when the warehouse returned more rows than the
	// configured maximum and the overflow was cut off.
	Truncated bool
	// Enrichment holds the optional analysis block: dimensional
	// breakdowns and period comparisons. Empty when nothing fired.
	Enrichment string
}

// Gateway is the single entry point for running SQL against the
// warehouse on behalf of a conversation. Every query goes through
// validation, the row limit, and result enrichment.
type Gateway interface {
	// Execute validates and runs a query produced by the model.
	Execute(ctx context.Context, prompt, sqlQuery string) (*ExecutionResult, error)

	// ExecuteDirect runs a query typed verbatim by a user. On top of
	// the usual pipeline it screens the raw text for SQL injection.
	ExecuteDirect(ctx context.Context, sqlQuery string) (*ExecutionResult, error)
}

// GatewayConfig holds the gateway's execution policy.
type GatewayConfig struct {
	MaxRows      int
	QueryTimeout time.Duration
}

type gateway struct {
	client   warehouse.Client
	analyzer *analysis.Analyzer
	cfg      GatewayConfig
	logger   *zap.Logger
}

// NewGateway creates a query execution gateway.
func NewGateway(client warehouse.Client, analyzer *analysis.Analyzer, cfg GatewayConfig, logger *zap.Logger) Gateway {
	return &gateway{
		client:   client,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger.Named("gateway"),
	}
}

func (g *gateway) Execute(ctx context.Context, prompt, sqlQuery string) (*ExecutionResult, error) {
	validation := sqlcheck.ValidateAndNormalize(sqlQuery)
	if validation.Error != nil {
		return nil, fmt.Errorf("query rejected: %w", validation.Error)
	}
	normalized := validation.NormalizedSQL

	limited := warehouse.EnforceRowLimit(normalized, g.cfg.MaxRows)

	queryCtx, cancel := context.WithTimeout(ctx, g.cfg.QueryTimeout)
	defer cancel()

	result, err := g.client.Query(queryCtx, limited)
	if err != nil {
		g.logger.Error("query failed",
			zap.String("query", logging.SanitizeQuery(limited)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("query failed: %w", err)
	}

	truncated := false
	if g.cfg.MaxRows > 0 && result.RowCount > g.cfg.MaxRows {
		result.Rows = result.Rows[:g.cfg.MaxRows]
		result.RowCount = g.cfg.MaxRows
		truncated = true
	}

	g.logger.Info("query executed",
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", truncated))

	enrichment := ""
	if g.analyzer != nil {
		enrichment = g.analyzer.Enrich(ctx, prompt, normalized, result)
	}

	return &ExecutionResult{
		Result:     result,
		Truncated:  truncated,
		Enrichment: enrichment,
	}, nil
}

func (g *gateway) ExecuteDirect(ctx context.Context, sqlQuery string) (*ExecutionResult, error) {
	if check := sqlcheck.CheckQueryLiterals("direct-sql", sqlQuery); check != nil {
		g.logger.Warn("direct query blocked",
			zap.String("fingerprint", check.Fingerprint))
		return nil, fmt.Errorf("query rejected: %w in literal value", apperrors.ErrInjectionDetected)
	}
	return g.Execute(ctx, "", sqlQuery)
}

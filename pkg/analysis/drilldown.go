package analysis

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/logging"
	"github.com/growthbox/databot/pkg/warehouse"
)

// displayRowCap bounds how many rows of a drill-down are kept for display.
const displayRowCap = 10

// QueryRunner is the slice of the warehouse client the executors need.
type QueryRunner interface {
	Query(ctx context.Context, sqlQuery string) (*warehouse.QueryResult, error)
}

// ValidatedDimension is a dimension confirmed to exist in the source
// table's live schema.
type ValidatedDimension struct {
	Column string
	Label  string
}

// DrillDownResult holds the per-category breakdown for one dimension.
type DrillDownResult struct {
	Column  string
	Label   string
	Columns []string
	Rows    []map[string]any
}

var (
	selectKeywordPattern  = regexp.MustCompile(`(?i)\bSELECT\b`)
	groupByClausePattern  = regexp.MustCompile(`(?i)\bGROUP\s+BY\s+`)
	orderByClausePattern  = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	trailingLimitPattern  = regexp.MustCompile(`(?is)\s+LIMIT\s+\d+\s*$`)
	groupByEndClauseScope = regexp.MustCompile(`(?i)\b(HAVING|ORDER\s+BY|LIMIT)\b`)
)

// RewriteForDimension turns an aggregate query into a per-dimension
// breakdown by injecting the column into SELECT and GROUP BY. Returns
// false when the query's structure doesn't support the rewrite.
func RewriteForDimension(sqlText, column string) (string, bool) {
	selLoc := selectKeywordPattern.FindStringIndex(sqlText)
	if selLoc == nil {
		return "", false
	}

	if gbLoc := groupByClausePattern.FindStringIndex(sqlText); gbLoc != nil {
		rewritten := sqlText
		if !groupByListContains(sqlText, gbLoc[1], column) {
			rewritten = sqlText[:gbLoc[1]] + column + ", " + sqlText[gbLoc[1]:]
		}
		return prependToSelect(rewritten, column), true
	}

	rewritten := prependToSelect(sqlText, column)
	rewritten = trailingLimitPattern.ReplaceAllString(rewritten, "")

	if obLoc := orderByClausePattern.FindStringIndex(rewritten); obLoc != nil {
		before := strings.TrimRight(rewritten[:obLoc[0]], " \t\n\r")
		return before + " GROUP BY " + column + " " + rewritten[obLoc[0]:], true
	}
	return strings.TrimRight(rewritten, " \t\n\r") + " GROUP BY " + column, true
}

// prependToSelect inserts the column right after the first SELECT keyword.
func prependToSelect(sqlText, column string) string {
	loc := selectKeywordPattern.FindStringIndex(sqlText)
	return sqlText[:loc[1]] + " " + column + "," + sqlText[loc[1]:]
}

// groupByListContains checks whether the column already appears in the
// GROUP BY list starting at offset (case-insensitive substring check).
func groupByListContains(sqlText string, offset int, column string) bool {
	clause := sqlText[offset:]
	if end := groupByEndClauseScope.FindStringIndex(clause); end != nil {
		clause = clause[:end[0]]
	}
	return strings.Contains(strings.ToLower(clause), strings.ToLower(column))
}

// DrillDownExecutor validates candidate dimensions against the live
// schema and runs one breakdown query per validated dimension.
type DrillDownExecutor struct {
	runner   QueryRunner
	resolver *SchemaResolver
	matcher  *Matcher
	cap      int
	maxRows  int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDrillDownExecutor wires a drill-down executor.
func NewDrillDownExecutor(runner QueryRunner, resolver *SchemaResolver, matcher *Matcher, cap, maxRows int, timeout time.Duration, logger *zap.Logger) *DrillDownExecutor {
	return &DrillDownExecutor{
		runner:   runner,
		resolver: resolver,
		matcher:  matcher,
		cap:      cap,
		maxRows:  maxRows,
		timeout:  timeout,
		logger:   logger.Named("drilldown"),
	}
}

// ValidateDimensions resolves the query's table and keeps only the
// dimensions that map to a real column, preserving the context's
// priority order. Schema resolution failure yields an empty list.
func (e *DrillDownExecutor) ValidateDimensions(ctx context.Context, sqlText string, desired []Dimension) []ValidatedDimension {
	columns := e.resolver.Columns(ctx, sqlText)
	if len(columns) == 0 {
		return nil
	}

	var validated []ValidatedDimension
	for _, dim := range desired {
		col, ok := e.matcher.Match(dim.Name, columns)
		if !ok {
			e.logger.Debug("dimension has no matching column",
				zap.String("dimension", dim.Name))
			continue
		}
		validated = append(validated, ValidatedDimension{Column: col, Label: dim.Label})
	}
	return validated
}

// Execute runs up to cap drill-down queries sequentially, one per
// validated dimension. A failing dimension is logged and skipped; it
// never aborts the remaining ones. Returns nothing when no dimension
// validates (no queries are issued in that case).
func (e *DrillDownExecutor) Execute(ctx context.Context, sqlText string, desired []Dimension) []DrillDownResult {
	validated := e.ValidateDimensions(ctx, sqlText, desired)
	if len(validated) == 0 {
		return nil
	}
	if e.cap > 0 && len(validated) > e.cap {
		validated = validated[:e.cap]
	}

	var results []DrillDownResult
	for _, dim := range validated {
		rewritten, ok := RewriteForDimension(sqlText, dim.Column)
		if !ok {
			e.logger.Warn("query structure does not support drill-down",
				zap.String("column", dim.Column))
			continue
		}
		rewritten = warehouse.EnforceRowLimit(rewritten, e.maxRows)

		queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
		result, err := e.runner.Query(queryCtx, rewritten)
		cancel()
		if err != nil {
			e.logger.Warn("drill-down query failed",
				zap.String("column", dim.Column),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		if result.RowCount == 0 {
			continue
		}

		rows := result.Rows
		if len(rows) > displayRowCap {
			rows = rows[:displayRowCap]
		}

		colNames := make([]string, len(result.Columns))
		for i, c := range result.Columns {
			colNames[i] = c.Name
		}

		results = append(results, DrillDownResult{
			Column:  dim.Column,
			Label:   dim.Label,
			Columns: colNames,
			Rows:    rows,
		})
	}

	return results
}

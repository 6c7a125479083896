package analysis

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

// Aggregation markers that qualify a query for enrichment. A plain
// substring scan also catches rounded variants like ROUND(SUM(...)).
var aggregationMarkers = []string{"COUNT(", "SUM(", "AVG(", "MAX(", "MIN(", "COUNTIF("}

// HasAggregation reports whether the SQL contains an aggregation call.
func HasAggregation(sqlText string) bool {
	upper := strings.ToUpper(sqlText)
	for _, marker := range aggregationMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// enrichableRowRange: only small aggregated results are worth enriching.
const (
	minEnrichableRows = 1
	maxEnrichableRows = 5
)

// Options configures the analyzer.
type Options struct {
	ProactiveAnalysis bool
	AutoCompare       bool
	DrillDownCap      int
	MaxRows           int
	QueryTimeout      time.Duration
	DefaultProject    string
}

// Analyzer orchestrates context detection, drill-downs and period
// comparisons for one query-result event. It is stateless across
// calls; every invocation is a pure function of its inputs plus the
// live warehouse.
type Analyzer struct {
	opts       Options
	detector   *Detector
	drilldowns *DrillDownExecutor
	compares   *ComparisonExecutor
	logger     *zap.Logger
}

// New wires an analyzer over a warehouse client. The context and synonym
// tables are fixed at startup and never mutated.
func New(client warehouse.Client, opts Options, logger *zap.Logger) *Analyzer {
	resolver := NewSchemaResolver(client, opts.DefaultProject, logger)
	matcher := NewMatcher(DefaultSynonyms())

	return &Analyzer{
		opts:     opts,
		detector: NewDetector(DefaultContexts()),
		drilldowns: NewDrillDownExecutor(
			client, resolver, matcher,
			opts.DrillDownCap, opts.MaxRows, opts.QueryTimeout, logger,
		),
		compares: NewComparisonExecutor(client, opts.MaxRows, opts.QueryTimeout, logger),
		logger:   logger.Named("analysis"),
	}
}

// ShouldEnrich is the activation gate: the primary result must be small
// (1-5 rows) and the query must aggregate.
func (a *Analyzer) ShouldEnrich(sqlText string, primary *warehouse.QueryResult) bool {
	if primary == nil {
		return false
	}
	if primary.RowCount < minEnrichableRows || primary.RowCount > maxEnrichableRows {
		return false
	}
	return HasAggregation(sqlText)
}

// Enrich produces the optional enrichment text block for a query result:
// drill-down breakdowns and period comparisons, merged. Returns "" when
// nothing fires. Never returns an error; every failure inside degrades
// to an absent section.
func (a *Analyzer) Enrich(ctx context.Context, prompt, sqlText string, primary *warehouse.QueryResult) string {
	if !a.ShouldEnrich(sqlText, primary) {
		return ""
	}

	var sections []string

	if a.opts.ProactiveAnalysis {
		if detected := a.detector.Detect(prompt, sqlText); detected != nil {
			a.logger.Debug("context detected",
				zap.String("context", string(detected.Type)),
				zap.Int("score", detected.Score))

			results := a.drilldowns.Execute(ctx, sqlText, detected.Dimensions)
			if text := FormatDrillDowns(results); text != "" {
				sections = append(sections, text)
			}
		}
	}

	if a.opts.AutoCompare {
		if filter, ok := ExtractDateRange(sqlText); ok {
			periods := CalculatePreviousPeriods(filter.Start, filter.End)
			results := a.compares.Execute(ctx, sqlText, filter, periods)

			colNames := make([]string, len(primary.Columns))
			for i, c := range primary.Columns {
				colNames[i] = c.Name
			}
			if text := FormatComparisons(primary.Rows[0], colNames, results); text != "" {
				sections = append(sections, text)
			}
		}
	}

	return strings.Join(sections, "\n\n")
}

package analysis

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/logging"
	"github.com/growthbox/databot/pkg/warehouse"
)

const dateLayout = "2006-01-02"

// DateFilterShape records which filter form the query used, so the
// rewrite can mirror it exactly.
type DateFilterShape int

const (
	shapeBetween DateFilterShape = iota
	shapeBounds
	shapeEquality
)

// DateFilter is the date constraint detected in a query.
type DateFilter struct {
	Column string
	Start  time.Time
	End    time.Time
	Shape  DateFilterShape
}

var (
	betweenPattern = regexp.MustCompile(`(?i)([\w.]+)\s+BETWEEN\s+'(\d{4}-\d{2}-\d{2})'\s+AND\s+'(\d{4}-\d{2}-\d{2})'`)
	gtePattern     = regexp.MustCompile(`(?i)([\w.]+)\s*>=\s*'(\d{4}-\d{2}-\d{2})'`)
	ltePattern     = regexp.MustCompile(`(?i)([\w.]+)\s*<=\s*'(\d{4}-\d{2}-\d{2})'`)
	eqPattern      = regexp.MustCompile(`(?i)([\w.]+)\s*=\s*'(\d{4}-\d{2}-\d{2})'`)
)

// ExtractDateRange detects the date filter of a query. Tried in order:
// BETWEEN, a >=/<= pair on the same column, then a single equality
// (start == end). The first matching shape wins; no match disables
// comparison for that query.
func ExtractDateRange(sqlText string) (*DateFilter, bool) {
	if m := betweenPattern.FindStringSubmatch(sqlText); m != nil {
		start, err1 := time.Parse(dateLayout, m[2])
		end, err2 := time.Parse(dateLayout, m[3])
		if err1 == nil && err2 == nil {
			return &DateFilter{Column: m[1], Start: start, End: end, Shape: shapeBetween}, true
		}
	}

	if gte := gtePattern.FindStringSubmatch(sqlText); gte != nil {
		for _, lte := range ltePattern.FindAllStringSubmatch(sqlText, -1) {
			if lte[1] != gte[1] {
				continue
			}
			start, err1 := time.Parse(dateLayout, gte[2])
			end, err2 := time.Parse(dateLayout, lte[2])
			if err1 == nil && err2 == nil {
				return &DateFilter{Column: gte[1], Start: start, End: end, Shape: shapeBounds}, true
			}
		}
	}

	if m := eqPattern.FindStringSubmatch(sqlText); m != nil {
		day, err := time.Parse(dateLayout, m[2])
		if err == nil {
			return &DateFilter{Column: m[1], Start: day, End: day, Shape: shapeEquality}, true
		}
	}

	return nil, false
}

// ComparisonKind tags a comparison period.
type ComparisonKind string

const (
	CompareYoY  ComparisonKind = "YoY"
	CompareMoM  ComparisonKind = "MoM"
	CompareQoQ  ComparisonKind = "QoQ"
	ComparePrev ComparisonKind = "Prev"
)

// ComparisonPeriod is a prior period comparable to the one queried.
type ComparisonPeriod struct {
	Kind  ComparisonKind
	Label string
	Start time.Time
	End   time.Time
}

// CalculatePreviousPeriods computes the prior periods worth comparing
// against, YoY always first. The span buckets (0 days, 28-31 days,
// 89-92 days) are deliberate approximations of "a month" and "a
// quarter"; a 31-day custom range that isn't a calendar month will be
// classified as MoM. Anything outside the buckets falls back to the
// immediately preceding period of identical length.
func CalculatePreviousPeriods(start, end time.Time) []ComparisonPeriod {
	spanDays := int(end.Sub(start).Hours() / 24)

	periods := []ComparisonPeriod{{
		Kind:  CompareYoY,
		Label: "vs. same period last year",
		Start: start.AddDate(-1, 0, 0),
		End:   end.AddDate(-1, 0, 0),
	}}

	switch {
	case spanDays == 0 || (spanDays >= 28 && spanDays <= 31):
		periods = append(periods, ComparisonPeriod{
			Kind:  CompareMoM,
			Label: "vs. previous month",
			Start: start.AddDate(0, -1, 0),
			End:   end.AddDate(0, -1, 0),
		})
	case spanDays >= 89 && spanDays <= 92:
		periods = append(periods, ComparisonPeriod{
			Kind:  CompareQoQ,
			Label: "vs. previous quarter",
			Start: start.AddDate(0, -3, 0),
			End:   end.AddDate(0, -3, 0),
		})
	default:
		prevEnd := start.AddDate(0, 0, -1)
		periods = append(periods, ComparisonPeriod{
			Kind:  ComparePrev,
			Label: "vs. previous period",
			Start: prevEnd.AddDate(0, 0, -spanDays),
			End:   prevEnd,
		})
	}

	return periods
}

// RewriteForPeriod substitutes the date literals of the detected filter
// with the comparison period's, mirroring the original filter shape and
// leaving the rest of the query untouched.
func RewriteForPeriod(sqlText string, filter *DateFilter, newStart, newEnd time.Time) string {
	col := regexp.QuoteMeta(filter.Column)
	startStr := newStart.Format(dateLayout)
	endStr := newEnd.Format(dateLayout)

	switch filter.Shape {
	case shapeBetween:
		p := regexp.MustCompile(`(?i)(` + col + `)\s+BETWEEN\s+'\d{4}-\d{2}-\d{2}'\s+AND\s+'\d{4}-\d{2}-\d{2}'`)
		return p.ReplaceAllString(sqlText, fmt.Sprintf("${1} BETWEEN '%s' AND '%s'", startStr, endStr))
	case shapeBounds:
		pStart := regexp.MustCompile(`(?i)(` + col + `)\s*>=\s*'\d{4}-\d{2}-\d{2}'`)
		pEnd := regexp.MustCompile(`(?i)(` + col + `)\s*<=\s*'\d{4}-\d{2}-\d{2}'`)
		rewritten := pStart.ReplaceAllString(sqlText, fmt.Sprintf("${1} >= '%s'", startStr))
		return pEnd.ReplaceAllString(rewritten, fmt.Sprintf("${1} <= '%s'", endStr))
	default:
		p := regexp.MustCompile(`(?i)(` + col + `)\s*=\s*'\d{4}-\d{2}-\d{2}'`)
		return p.ReplaceAllString(sqlText, fmt.Sprintf("${1} = '%s'", startStr))
	}
}

// ComparisonResult is the first aggregate row of one comparison query.
type ComparisonResult struct {
	Kind   ComparisonKind
	Label  string
	Period ComparisonPeriod
	Row    map[string]any
}

// ComparisonExecutor rewrites and runs the comparison queries.
type ComparisonExecutor struct {
	runner  QueryRunner
	maxRows int
	timeout time.Duration
	logger  *zap.Logger
}

// NewComparisonExecutor wires a comparison executor.
func NewComparisonExecutor(runner QueryRunner, maxRows int, timeout time.Duration, logger *zap.Logger) *ComparisonExecutor {
	return &ComparisonExecutor{
		runner:  runner,
		maxRows: maxRows,
		timeout: timeout,
		logger:  logger.Named("compare"),
	}
}

// Execute runs one query per comparison period and keeps the first
// result row of each. A failing period is logged and dropped; the
// others still complete.
func (e *ComparisonExecutor) Execute(ctx context.Context, sqlText string, filter *DateFilter, periods []ComparisonPeriod) []ComparisonResult {
	var results []ComparisonResult
	for _, period := range periods {
		rewritten := RewriteForPeriod(sqlText, filter, period.Start, period.End)
		rewritten = warehouse.EnforceRowLimit(rewritten, e.maxRows)

		queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
		result, err := e.runner.Query(queryCtx, rewritten)
		cancel()
		if err != nil {
			e.logger.Warn("comparison query failed",
				zap.String("kind", string(period.Kind)),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		if result.RowCount == 0 {
			continue
		}

		results = append(results, ComparisonResult{
			Kind:   period.Kind,
			Label:  period.Label,
			Period: period,
			Row:    result.Rows[0],
		})
	}

	return results
}

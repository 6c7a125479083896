package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// displayLineCap bounds how many ranked lines a drill-down section shows.
const displayLineCap = 5

var medals = []string{"🥇", "🥈", "🥉"}

// toFloat converts the numeric types our warehouse adapters produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// formatNumber renders integers without decimals and everything else
// with two.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// numericMetrics returns the column names whose value in the sample row
// is numeric, excluding the dimension column, preserving column order.
func numericMetrics(columns []string, sample map[string]any, excludeColumn string) []string {
	var metrics []string
	for _, col := range columns {
		if strings.EqualFold(col, excludeColumn) {
			continue
		}
		if _, ok := toFloat(sample[col]); ok {
			metrics = append(metrics, col)
		}
	}
	return metrics
}

// FormatDrillDowns renders the drill-down breakdowns as ranked text
// blocks. Rows are sorted descending by the first numeric metric; the
// percentage-of-total annotation is attached to that metric only.
// Returns "" when there is nothing to render.
func FormatDrillDowns(results []DrillDownResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for _, res := range results {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "📊 Breakdown by %s:\n", res.Label)

		metrics := numericMetrics(res.Columns, res.Rows[0], res.Column)
		if len(metrics) == 0 {
			b.WriteString("   (no numeric metric to rank by)\n")
			continue
		}
		primary := metrics[0]

		rows := make([]map[string]any, len(res.Rows))
		copy(rows, res.Rows)
		sort.SliceStable(rows, func(i, j int) bool {
			vi, _ := toFloat(rows[i][primary])
			vj, _ := toFloat(rows[j][primary])
			return vi > vj
		})

		total := 0.0
		for _, row := range rows {
			v, _ := toFloat(row[primary])
			total += v
		}

		shown := rows
		if len(shown) > displayLineCap {
			shown = shown[:displayLineCap]
		}

		for i, row := range shown {
			marker := fmt.Sprintf("%d.", i+1)
			if i < len(medals) {
				marker = medals[i]
			}

			fmt.Fprintf(&b, "%s %v: ", marker, row[res.Column])
			for j, metric := range metrics {
				if j > 0 {
					b.WriteString("  ")
				}
				v, _ := toFloat(row[metric])
				fmt.Fprintf(&b, "%s=%s", metric, formatNumber(v))
				if j == 0 && total != 0 {
					fmt.Fprintf(&b, " (%.1f%%)", v/total*100)
				}
			}
			b.WriteString("\n")
		}

		if rest := len(rows) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "   … and %d more\n", rest)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// PercentChange computes the relative change from old to current,
// guarding division by zero: a zero baseline reports 100% when the
// current value is positive and 0% otherwise.
func PercentChange(current, old float64) float64 {
	if old == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return (current - old) / old * 100.0
}

// FormatComparisons renders the main period's numeric fields and, per
// comparison period, every shared numeric field as
// "old → ±delta (±pct%)". Returns "" when either input is empty.
func FormatComparisons(mainRow map[string]any, columns []string, results []ComparisonResult) string {
	if len(mainRow) == 0 || len(results) == 0 {
		return ""
	}

	metrics := numericMetrics(columns, mainRow, "")
	if len(metrics) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("📈 Period comparison:\n")
	b.WriteString("Current period: ")
	for i, metric := range metrics {
		if i > 0 {
			b.WriteString(", ")
		}
		v, _ := toFloat(mainRow[metric])
		fmt.Fprintf(&b, "%s=%s", metric, formatNumber(v))
	}
	b.WriteString("\n")

	for _, res := range results {
		fmt.Fprintf(&b, "%s (%s → %s): ",
			res.Label,
			res.Period.Start.Format(dateLayout),
			res.Period.End.Format(dateLayout))

		first := true
		for _, metric := range metrics {
			old, ok := toFloat(res.Row[metric])
			if !ok {
				continue
			}
			current, _ := toFloat(mainRow[metric])
			if !first {
				b.WriteString(", ")
			}
			first = false

			delta := current - old
			fmt.Fprintf(&b, "%s: %s → %+.2f (%+.1f%%)",
				metric, formatNumber(old), delta, PercentChange(current, old))
		}
		if first {
			b.WriteString("(no shared numeric fields)")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

package assistant

import (
	"fmt"
	"strings"
)

// FormatResultText renders an execution result as the plain-text block
// handed back to the model (and ultimately to the chat). Column order
// follows the query's select list; the enrichment block, when present,
// is appended after the rows.
func FormatResultText(res *ExecutionResult) string {
	if res == nil || res.Result == nil {
		return "(no result)"
	}
	result := res.Result

	var b strings.Builder

	if result.RowCount == 0 {
		b.WriteString("Query returned no rows.")
	} else {
		names := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			names[i] = col.Name
		}
		b.WriteString(strings.Join(names, " | "))
		b.WriteString("\n")

		for _, row := range result.Rows {
			cells := make([]string, len(names))
			for i, name := range names {
				cells[i] = formatValue(row[name])
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "(%d row", result.RowCount)
		if result.RowCount != 1 {
			b.WriteString("s")
		}
		b.WriteString(")")
	}

	if res.Truncated {
		b.WriteString("\n⚠️ Result truncated; refine the query to see more.")
	}

	if res.Enrichment != "" {
		b.WriteString("\n\n")
		b.WriteString(res.Enrichment)
	}

	return b.String()
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%.2f", n)
	case float32:
		return formatValue(float64(n))
	default:
		return fmt.Sprintf("%v", v)
	}
}

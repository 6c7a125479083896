package wiki

import (
	"fmt"
	"html"
	"strings"

	"github.com/growthbox/databot/pkg/warehouse"
)

// RenderStorageBody builds the storage-format page body: an optional
// summary paragraph followed by the result rendered as a table. Column
// order follows the query's select list.
func RenderStorageBody(summary string, result *warehouse.QueryResult) string {
	var b strings.Builder

	if summary != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(summary))
	}

	b.WriteString("<table><tbody><tr>")
	for _, col := range result.Columns {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(col.Name))
	}
	b.WriteString("</tr>")

	for _, row := range result.Rows {
		b.WriteString("<tr>")
		for _, col := range result.Columns {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(formatCell(row[col.Name])))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")

	return b.String()
}

func formatCell(v any) string {
	if v == nil {
		return ""
	}
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%.2f", n)
	default:
		return fmt.Sprintf("%v", v)
	}
}

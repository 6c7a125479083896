// Package warehouse defines the query client used to reach the
// analytical warehouse, plus the adapters implementing it.
package warehouse

import (
	"context"
	"fmt"
)

// TableRef identifies a table as project.dataset.table. Two-part
// references inherit the configured default project.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

func (r TableRef) String() string {
	if r.Project == "" {
		return fmt.Sprintf("%s.%s", r.Dataset, r.Table)
	}
	return fmt.Sprintf("%s.%s.%s", r.Project, r.Dataset, r.Table)
}

// ColumnInfo describes a result column with its database type name.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the rows returned by a warehouse query.
type QueryResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// Client executes SQL against the warehouse. All calls are blocking
// round-trips; the caller bounds them with a context deadline.
// Implementations own their connection and must be closed when done.
type Client interface {
	// Query runs a statement verbatim and returns all rows.
	// Row bounding is the caller's responsibility (see EnforceRowLimit).
	Query(ctx context.Context, sqlQuery string) (*QueryResult, error)

	// CatalogColumns returns the column names of a table from the
	// warehouse metadata catalog (INFORMATION_SCHEMA.COLUMNS or
	// equivalent), lowercased.
	CatalogColumns(ctx context.Context, ref TableRef) ([]string, error)

	// Close releases the underlying connection.
	Close() error
}

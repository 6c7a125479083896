// Package mssql implements the warehouse client on SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

// Client executes warehouse queries against SQL Server.
type Client struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClient opens a SQL Server connection.
func NewClient(ctx context.Context, connStr string, logger *zap.Logger) (*Client, error) {
	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}
	return &Client{db: db, logger: logger.Named("warehouse.mssql")}, nil
}

// trailingLimitPattern matches a LIMIT clause at the end of a statement.
var trailingLimitPattern = regexp.MustCompile(`(?is)\s+LIMIT\s+(\d+)\s*$`)

// translateLimit rewrites a trailing "LIMIT n" into T-SQL's TOP form.
// The row-limit enforcement layer speaks the LIMIT dialect; SQL Server
// does not.
func translateLimit(sqlQuery string) string {
	m := trailingLimitPattern.FindStringSubmatch(sqlQuery)
	if m == nil {
		return sqlQuery
	}
	inner := trailingLimitPattern.ReplaceAllString(sqlQuery, "")
	return fmt.Sprintf("SELECT TOP (%s) * FROM (%s) AS _limited", m[1], inner)
}

// Query runs a statement and collects all rows as name-keyed maps.
func (c *Client) Query(ctx context.Context, sqlQuery string) (*warehouse.QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, translateLimit(sqlQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]warehouse.ColumnInfo, len(columnNames))
	for i, name := range columnNames {
		columns[i] = warehouse.ColumnInfo{
			Name: name,
			Type: columnTypes[i].DatabaseTypeName(),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columnNames))
		scanTargets := make([]any, len(columnNames))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = normalizeValue(values[i])
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &warehouse.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// normalizeValue converts driver byte slices to strings for display.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// CatalogColumns reads column names from INFORMATION_SCHEMA.COLUMNS.
func (c *Client) CatalogColumns(ctx context.Context, ref warehouse.TableRef) ([]string, error) {
	const query = `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE LOWER(TABLE_SCHEMA) = LOWER(@p1)
		  AND LOWER(TABLE_NAME) = LOWER(@p2)
		ORDER BY ORDINAL_POSITION
	`

	rows, err := c.db.QueryContext(ctx, query, ref.Dataset, ref.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns = append(columns, strings.ToLower(name))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog rows: %w", err)
	}

	return columns, nil
}

// Close releases the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

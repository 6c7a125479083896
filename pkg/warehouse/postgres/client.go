// Package postgres implements the warehouse client on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

// Client executes warehouse queries against PostgreSQL.
type Client struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewClient connects a pgx pool to the warehouse.
func NewClient(ctx context.Context, connStr string, logger *zap.Logger) (*Client, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Client{pool: pool, logger: logger.Named("warehouse.postgres")}, nil
}

// Query runs a statement and collects all rows as name-keyed maps.
func (c *Client) Query(ctx context.Context, sqlQuery string) (*warehouse.QueryResult, error) {
	rows, err := c.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]warehouse.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = warehouse.ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = values[i]
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

// CatalogColumns reads column names from information_schema. The table
// reference's dataset maps to the schema; the project part names the
// database and is not filtered on.
func (c *Client) CatalogColumns(ctx context.Context, ref warehouse.TableRef) ([]string, error) {
	const query = `
		SELECT column_name
		FROM information_schema.columns
		WHERE lower(table_schema) = lower($1)
		  AND lower(table_name) = lower($2)
		ORDER BY ordinal_position
	`

	rows, err := c.pool.Query(ctx, query, ref.Dataset, ref.Table)
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

// Close releases the connection pool.
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

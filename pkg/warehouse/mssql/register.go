package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

func init() {
	warehouse.Register("mssql", func(ctx context.Context, connStr string, logger *zap.Logger) (warehouse.Client, error) {
		return NewClient(ctx, connStr, logger)
	})
}

package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

func init() {
	warehouse.Register("postgres", func(ctx context.Context, connStr string, logger *zap.Logger) (warehouse.Client, error) {
		return NewClient(ctx, connStr, logger)
	})
}

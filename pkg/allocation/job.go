// Package allocation runs the recurring allocation workflow: it
// invokes the stored analytical procedure and writes the resulting
// rows into a fixed region of a shared workbook.
package allocation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/logging"
	"github.com/growthbox/databot/pkg/retry"
	"github.com/growthbox/databot/pkg/warehouse"
)

// SheetWriter is the slice of the sheets writer the job needs.
type SheetWriter interface {
	WriteAt(workbook, sheetName, startCell string, rows [][]any) error
}

// Config holds the allocation job settings.
type Config struct {
	// Procedure is the fully qualified routine computing allocations.
	Procedure string
	// WarehouseType selects the invocation syntax: postgres or mssql.
	WarehouseType string
	Workbook      string
	Sheet         string
	StartCell     string
}

// Job computes and publishes the monthly allocations.
type Job struct {
	client warehouse.Client
	writer SheetWriter
	cfg    Config
	logger *zap.Logger
}

// NewJob creates the allocation job.
func NewJob(client warehouse.Client, writer SheetWriter, cfg Config, logger *zap.Logger) *Job {
	return &Job{
		client: client,
		writer: writer,
		cfg:    cfg,
		logger: logger.Named("allocation"),
	}
}

// Run executes one allocation cycle: invoke the procedure, collect its
// rows and write them at the configured start cell. The procedure call
// is retried on transient warehouse errors.
func (j *Job) Run(ctx context.Context) error {
	runID := uuid.NewString()
	j.logger.Info("allocation run started",
		zap.String("run_id", runID),
		zap.String("procedure", j.cfg.Procedure))

	invocation, err := j.invocationSQL()
	if err != nil {
		return err
	}

	result, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*warehouse.QueryResult, error) {
		return j.client.Query(ctx, invocation)
	})
	if err != nil {
		j.logger.Error("allocation procedure failed",
			zap.String("run_id", runID),
			zap.String("error", logging.SanitizeError(err)))
		return fmt.Errorf("invoke %s: %w", j.cfg.Procedure, err)
	}
	if result.RowCount == 0 {
		j.logger.Warn("allocation procedure returned no rows",
			zap.String("run_id", runID))
		return nil
	}

	rows := make([][]any, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]any, len(result.Columns))
		for jcol, col := range result.Columns {
			cells[jcol] = row[col.Name]
		}
		rows[i] = cells
	}

	if err := j.writer.WriteAt(j.cfg.Workbook, j.cfg.Sheet, j.cfg.StartCell, rows); err != nil {
		return fmt.Errorf("write allocations: %w", err)
	}

	j.logger.Info("allocation run finished",
		zap.String("run_id", runID),
		zap.Int("rows", len(rows)))
	return nil
}

// invocationSQL builds the dialect-specific call. The routine is
// set-returning so its output can flow straight into the sheet.
func (j *Job) invocationSQL() (string, error) {
	switch j.cfg.WarehouseType {
	case "postgres":
		return fmt.Sprintf("SELECT * FROM %s()", j.cfg.Procedure), nil
	case "mssql":
		return fmt.Sprintf("EXEC %s", j.cfg.Procedure), nil
	default:
		return "", fmt.Errorf("unsupported warehouse type: %q", j.cfg.WarehouseType)
	}
}

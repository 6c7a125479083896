package analysis

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/logging"
	"github.com/growthbox/databot/pkg/warehouse"
)

// ColumnCatalog is the slice of the warehouse client the resolver needs.
type ColumnCatalog interface {
	CatalogColumns(ctx context.Context, ref warehouse.TableRef) ([]string, error)
}

// Ordered by priority: a backtick-quoted three-part reference wins over
// an unquoted one, which wins over a two-part reference.
var tableRefPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?i)FROM\\s+`([\\w-]+)\\.([\\w$]+)\\.([\\w$]+)`"),
	regexp.MustCompile(`(?i)FROM\s+([\w-]+)\.([\w$]+)\.([\w$]+)`),
	regexp.MustCompile(`(?i)FROM\s+([\w$]+)\.([\w$]+)`),
}

// ExtractTableReference finds the primary source table of a query.
// The first matching pattern wins. Two-part references come back with an
// empty project for the caller to fill in.
func ExtractTableReference(sqlText string) (warehouse.TableRef, bool) {
	for i, pattern := range tableRefPatterns {
		m := pattern.FindStringSubmatch(sqlText)
		if m == nil {
			continue
		}
		if i < 2 {
			return warehouse.TableRef{Project: m[1], Dataset: m[2], Table: m[3]}, true
		}
		return warehouse.TableRef{Dataset: m[1], Table: m[2]}, true
	}
	return warehouse.TableRef{}, false
}

// SchemaResolver resolves the source table of a query and fetches its
// live column list from the warehouse catalog.
type SchemaResolver struct {
	catalog        ColumnCatalog
	defaultProject string
	logger         *zap.Logger
}

// NewSchemaResolver creates a resolver bound to a column catalog.
func NewSchemaResolver(catalog ColumnCatalog, defaultProject string, logger *zap.Logger) *SchemaResolver {
	return &SchemaResolver{
		catalog:        catalog,
		defaultProject: defaultProject,
		logger:         logger.Named("schema"),
	}
}

// Columns returns the lowercased column names of the query's source
// table. Any failure (unparsable reference, catalog error, unknown
// table) returns an empty slice: drill-down simply doesn't run for that
// query. Nothing propagates to the caller.
func (r *SchemaResolver) Columns(ctx context.Context, sqlText string) []string {
	ref, ok := ExtractTableReference(sqlText)
	if !ok {
		r.logger.Warn("no table reference found in query",
			zap.String("sql", logging.SanitizeQuery(sqlText)))
		return nil
	}
	if ref.Project == "" {
		ref.Project = r.defaultProject
	}

	columns, err := r.catalog.CatalogColumns(ctx, ref)
	if err != nil {
		r.logger.Warn("failed to fetch columns from catalog",
			zap.String("table", ref.String()),
			zap.String("error", logging.SanitizeError(err)))
		return nil
	}
	if len(columns) == 0 {
		r.logger.Warn("table not found in catalog", zap.String("table", ref.String()))
	}

	return columns
}

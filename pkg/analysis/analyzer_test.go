package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

type fakeWarehouse struct {
	fakeRunner
	catalog map[string][]string
}

func (f *fakeWarehouse) CatalogColumns(_ context.Context, ref warehouse.TableRef) ([]string, error) {
	return f.catalog[ref.String()], nil
}

func (f *fakeWarehouse) Close() error { return nil }

func singleRowResult(n int64) *warehouse.QueryResult {
	return &warehouse.QueryResult{
		Columns:  []warehouse.ColumnInfo{{Name: "n", Type: "INT8"}},
		Rows:     []map[string]any{{"n": n}},
		RowCount: 1,
	}
}

func TestHasAggregation(t *testing.T) {
	tests := []struct {
		sql      string
		expected bool
	}{
		{"SELECT COUNT(*) FROM t", true},
		{"select sum(total) from t", true},
		{"SELECT ROUND(AVG(price), 2) FROM t", true},
		{"SELECT countif(churned) FROM t", true},
		{"SELECT id, name FROM t", false},
		{"SELECT account FROM t", false},
	}
	for _, tt := range tests {
		if got := HasAggregation(tt.sql); got != tt.expected {
			t.Errorf("HasAggregation(%q) = %v, want %v", tt.sql, got, tt.expected)
		}
	}
}

func TestShouldEnrich(t *testing.T) {
	a := New(&fakeWarehouse{}, Options{}, zap.NewNop())

	manyRows := &warehouse.QueryResult{RowCount: 6}

	tests := []struct {
		name     string
		sql      string
		primary  *warehouse.QueryResult
		expected bool
	}{
		{"aggregate single row", "SELECT COUNT(*) FROM t", singleRowResult(1), true},
		{"nil result", "SELECT COUNT(*) FROM t", nil, false},
		{"empty result", "SELECT COUNT(*) FROM t", &warehouse.QueryResult{}, false},
		{"too many rows", "SELECT COUNT(*) FROM t", manyRows, false},
		{"no aggregation", "SELECT id FROM t", singleRowResult(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.ShouldEnrich(tt.sql, tt.primary); got != tt.expected {
				t.Errorf("ShouldEnrich = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEnrich_FullPipeline(t *testing.T) {
	wh := &fakeWarehouse{
		fakeRunner: fakeRunner{
			results: map[string]*warehouse.QueryResult{
				"dw_country_code": breakdownResult("dw_country_code", "FR", "DE"),
				"2024-09":         singleRowResult(100),
				"2025-08":         singleRowResult(130),
			},
		},
		catalog: map[string][]string{
			"gb-prod.analytics.subscriptions": {"sub_id", "dw_country_code", "cancel_date"},
		},
	}

	a := New(wh, Options{
		ProactiveAnalysis: true,
		AutoCompare:       true,
		DrillDownCap:      3,
		MaxRows:           50,
		QueryTimeout:      time.Minute,
		DefaultProject:    "gb-prod",
	}, zap.NewNop())

	sql := "SELECT COUNT(*) AS n FROM analytics.subscriptions " +
		"WHERE cancel_date BETWEEN '2025-09-01' AND '2025-09-30'"
	out := a.Enrich(context.Background(), "combien de churn en septembre ?", sql, singleRowResult(150))

	if !strings.Contains(out, "📊 Breakdown by") {
		t.Errorf("expected a drill-down section:\n%s", out)
	}
	if !strings.Contains(out, "📈 Period comparison:") {
		t.Errorf("expected a comparison section:\n%s", out)
	}
	if !strings.Contains(out, "\n\n") {
		t.Errorf("sections must be separated by a blank line:\n%s", out)
	}
}

func TestEnrich_TogglesDisableSections(t *testing.T) {
	wh := &fakeWarehouse{
		fakeRunner: fakeRunner{
			results: map[string]*warehouse.QueryResult{
				"dw_country_code": breakdownResult("dw_country_code", "FR"),
				"2024-09":         singleRowResult(100),
				"2025-08":         singleRowResult(130),
			},
		},
		catalog: map[string][]string{
			"gb-prod.analytics.subscriptions": {"sub_id", "dw_country_code", "cancel_date"},
		},
	}
	sql := "SELECT COUNT(*) AS n FROM analytics.subscriptions " +
		"WHERE cancel_date BETWEEN '2025-09-01' AND '2025-09-30'"
	prompt := "how much churn in september?"

	a := New(wh, Options{
		ProactiveAnalysis: false,
		AutoCompare:       true,
		DrillDownCap:      3,
		MaxRows:           50,
		QueryTimeout:      time.Minute,
		DefaultProject:    "gb-prod",
	}, zap.NewNop())
	out := a.Enrich(context.Background(), prompt, sql, singleRowResult(150))
	if strings.Contains(out, "📊") {
		t.Errorf("drill-downs must be off when proactive analysis is disabled:\n%s", out)
	}
	if !strings.Contains(out, "📈") {
		t.Errorf("comparisons should still run:\n%s", out)
	}

	wh.queries = nil
	a = New(wh, Options{
		ProactiveAnalysis: true,
		AutoCompare:       false,
		DrillDownCap:      3,
		MaxRows:           50,
		QueryTimeout:      time.Minute,
		DefaultProject:    "gb-prod",
	}, zap.NewNop())
	out = a.Enrich(context.Background(), prompt, sql, singleRowResult(150))
	if strings.Contains(out, "📈") {
		t.Errorf("comparisons must be off when auto-compare is disabled:\n%s", out)
	}
}

func TestEnrich_GateClosedMakesNoQueries(t *testing.T) {
	wh := &fakeWarehouse{}
	a := New(wh, Options{
		ProactiveAnalysis: true,
		AutoCompare:       true,
		DrillDownCap:      3,
		MaxRows:           50,
		QueryTimeout:      time.Minute,
	}, zap.NewNop())

	out := a.Enrich(context.Background(), "list users", "SELECT id FROM analytics.users", &warehouse.QueryResult{
		Columns:  []warehouse.ColumnInfo{{Name: "id", Type: "INT8"}},
		Rows:     []map[string]any{{"id": int64(1)}},
		RowCount: 1,
	})
	if out != "" {
		t.Errorf("expected empty enrichment, got %q", out)
	}
	if len(wh.queries) != 0 {
		t.Errorf("no enrichment queries should run when the gate is closed, got %d", len(wh.queries))
	}
}

func TestEnrich_NoContextNoDateStillEmpty(t *testing.T) {
	wh := &fakeWarehouse{}
	a := New(wh, Options{
		ProactiveAnalysis: true,
		AutoCompare:       true,
		DrillDownCap:      3,
		MaxRows:           50,
		QueryTimeout:      time.Minute,
	}, zap.NewNop())

	out := a.Enrich(context.Background(), "what's our total?", "SELECT SUM(total) FROM analytics.payments", singleRowResult(999))
	if out != "" {
		t.Errorf("expected empty enrichment, got %q", out)
	}
}

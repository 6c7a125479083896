package analysis

import (
	"strings"
	"testing"
	"time"
)

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		old      float64
		expected float64
	}{
		{"growth", 150, 100, 50.0},
		{"decline", 75, 100, -25.0},
		{"flat", 100, 100, 0.0},
		{"zero baseline positive current", 42, 0, 100.0},
		{"zero baseline zero current", 0, 0, 0.0},
		{"zero baseline negative current", -5, 0, 0.0},
		{"drop to zero", 0, 80, -100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentChange(tt.current, tt.old); got != tt.expected {
				t.Errorf("PercentChange(%v, %v) = %v, want %v",
					tt.current, tt.old, got, tt.expected)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{42, "42"},
		{0, "0"},
		{-17, "-17"},
		{3.14159, "3.14"},
		{99.5, "99.50"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.expected {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestFormatDrillDowns_MedalsAndShares(t *testing.T) {
	results := []DrillDownResult{{
		Column:  "dw_country_code",
		Label:   "Country",
		Columns: []string{"dw_country_code", "n"},
		Rows: []map[string]any{
			{"dw_country_code": "DE", "n": int64(30)},
			{"dw_country_code": "FR", "n": int64(50)},
			{"dw_country_code": "GB", "n": int64(20)},
		},
	}}

	out := FormatDrillDowns(results)

	if !strings.Contains(out, "📊 Breakdown by Country:") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "🥇 FR: n=50 (50.0%)") {
		t.Errorf("top row must be gold with percent share:\n%s", out)
	}
	if !strings.Contains(out, "🥈 DE: n=30 (30.0%)") {
		t.Errorf("second row must be silver:\n%s", out)
	}
	if !strings.Contains(out, "🥉 GB: n=20 (20.0%)") {
		t.Errorf("third row must be bronze:\n%s", out)
	}
}

func TestFormatDrillDowns_LineCapAndTrailer(t *testing.T) {
	rows := make([]map[string]any, 8)
	for i := range rows {
		rows[i] = map[string]any{"plan_name": string(rune('a' + i)), "n": int64(80 - i)}
	}
	results := []DrillDownResult{{
		Column:  "plan_name",
		Label:   "Plan",
		Columns: []string{"plan_name", "n"},
		Rows:    rows,
	}}

	out := FormatDrillDowns(results)

	if !strings.Contains(out, "… and 3 more") {
		t.Errorf("missing overflow trailer:\n%s", out)
	}
	if !strings.Contains(out, "4.") || !strings.Contains(out, "5.") {
		t.Errorf("ranks past the medals must use numeric markers:\n%s", out)
	}
	if strings.Contains(out, "6.") {
		t.Errorf("only %d lines should be shown:\n%s", displayLineCap, out)
	}
}

func TestFormatDrillDowns_NoNumericMetric(t *testing.T) {
	results := []DrillDownResult{{
		Column:  "channel",
		Label:   "Channel",
		Columns: []string{"channel", "note"},
		Rows: []map[string]any{
			{"channel": "email", "note": "hi"},
		},
	}}

	out := FormatDrillDowns(results)
	if !strings.Contains(out, "(no numeric metric to rank by)") {
		t.Errorf("missing non-numeric note:\n%s", out)
	}
}

func TestFormatDrillDowns_Empty(t *testing.T) {
	if out := FormatDrillDowns(nil); out != "" {
		t.Errorf("expected empty string, got %q", out)
	}
}

func TestFormatComparisons(t *testing.T) {
	mainRow := map[string]any{"n": int64(150)}
	results := []ComparisonResult{{
		Kind:  CompareYoY,
		Label: "vs. same period last year",
		Period: ComparisonPeriod{
			Kind:  CompareYoY,
			Start: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
		},
		Row: map[string]any{"n": int64(100)},
	}}

	out := FormatComparisons(mainRow, []string{"n"}, results)

	if !strings.Contains(out, "📈 Period comparison:") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "Current period: n=150") {
		t.Errorf("missing current period line:\n%s", out)
	}
	if !strings.Contains(out, "vs. same period last year (2024-09-01 → 2024-09-30): n: 100 → +50.00 (+50.0%)") {
		t.Errorf("unexpected comparison line:\n%s", out)
	}
}

func TestFormatComparisons_Empty(t *testing.T) {
	if out := FormatComparisons(nil, nil, nil); out != "" {
		t.Errorf("expected empty string for nil inputs, got %q", out)
	}
	if out := FormatComparisons(map[string]any{"n": int64(1)}, []string{"n"}, nil); out != "" {
		t.Errorf("expected empty string for no results, got %q", out)
	}
}

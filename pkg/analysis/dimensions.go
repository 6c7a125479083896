package analysis

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Matcher maps semantic dimension names to real column names using an
// immutable synonym table.
type Matcher struct {
	synonyms map[string][]string
}

// NewMatcher creates a matcher over an immutable synonym table.
func NewMatcher(synonyms map[string][]string) *Matcher {
	return &Matcher{synonyms: synonyms}
}

// DefaultSynonyms maps each semantic dimension name to the column-name
// variants seen across our warehouse tables.
func DefaultSynonyms() map[string][]string {
	return map[string][]string{
		"country": {"dw_country_code", "country_code", "country_name", "country_iso", "market"},
		"plan":    {"plan_name", "plan_type", "subscription_plan", "plan_code"},
		"channel": {"acquisition_channel", "marketing_channel", "channel_name", "utm_source"},
		"product": {"product_name", "product_id", "sku", "product_code"},
		"status":  {"order_status", "sub_status", "subscription_status", "state"},
		"box_type": {
			"box_type_name", "box_sku", "box_category",
		},
		"cancellation_reason": {"cancel_reason", "churn_reason", "cancellation_note"},
		"platform":            {"device", "os", "app_platform", "device_type"},
	}
}

// Match finds the real column for a semantic dimension name. Priority,
// first hit wins:
//  1. case-insensitive exact match
//  2. case-insensitive exact match of a registered synonym
//  3. case-insensitive substring match in either direction
//
// Plural dimension names are also tried in singular form at each stage,
// so "countries" resolves like "country". Returns false when nothing
// matches; the dimension is dropped, never substituted.
func (m *Matcher) Match(dimension string, columns []string) (string, bool) {
	dim := strings.ToLower(strings.TrimSpace(dimension))
	if dim == "" || len(columns) == 0 {
		return "", false
	}

	candidates := []string{dim}
	if singular := inflection.Singular(dim); singular != dim {
		candidates = append(candidates, singular)
	}

	// 1. Exact match.
	for _, cand := range candidates {
		for _, col := range columns {
			if strings.EqualFold(cand, col) {
				return col, true
			}
		}
	}

	// 2. Synonym table.
	for _, cand := range candidates {
		for _, syn := range m.synonyms[cand] {
			for _, col := range columns {
				if strings.EqualFold(syn, col) {
					return col, true
				}
			}
		}
	}

	// 3. Substring in either direction, first column in order wins.
	for _, cand := range candidates {
		for _, col := range columns {
			colLower := strings.ToLower(col)
			if strings.Contains(colLower, cand) || strings.Contains(cand, colLower) {
				return col, true
			}
		}
	}

	return "", false
}

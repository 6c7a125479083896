package warehouse

import (
	"fmt"
	"regexp"
	"strings"
)

// NoLimitMarker disables automatic row limiting when present anywhere in
// the query text. Used by curated queries that page explicitly.
const NoLimitMarker = "-- nolimit"

var limitKeywordPattern = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)

// EnforceRowLimit appends "LIMIT max+1" to a SELECT that has no LIMIT of
// its own, so the caller can detect truncation by seeing max+1 rows.
// Queries that don't start with SELECT, already carry a LIMIT, or contain
// the no-limit marker are returned unchanged.
func EnforceRowLimit(sqlQuery string, maxRows int) string {
	if maxRows <= 0 {
		return sqlQuery
	}

	trimmed := strings.TrimSpace(sqlQuery)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return sqlQuery
	}
	if strings.Contains(strings.ToLower(sqlQuery), NoLimitMarker) {
		return sqlQuery
	}
	if limitKeywordPattern.MatchString(sqlQuery) {
		return sqlQuery
	}

	return fmt.Sprintf("%s LIMIT %d", strings.TrimRight(trimmed, " \t\n\r"), maxRows+1)
}

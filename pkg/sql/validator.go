// Package sql provides validation for SQL sent to the warehouse.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
	// ErrNotReadOnly indicates the query is not a plain SELECT.
	ErrNotReadOnly = errors.New("only read-only SELECT queries are permitted")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize strips a trailing semicolon, rejects multi-statement
// input and rejects anything that is not a read-only query. The bot only
// ever dispatches analytical SELECTs (and CALLs for the allocation
// procedure, which bypass this path).
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)

	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	if !IsReadOnly(normalized) {
		return ValidationResult{Error: ErrNotReadOnly}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// IsReadOnly reports whether the statement is a SELECT or a WITH ... SELECT.
func IsReadOnly(sqlQuery string) bool {
	head := strings.ToUpper(strings.TrimSpace(sqlQuery))
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH")
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handles both backslash escape (\') and SQL standard escape ('').
			// A doubled quote exits and immediately re-enters the string state,
			// which is equivalent to staying inside it.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimRight(strings.TrimSuffix(sqlQuery, ";"), " \t\n\r")
	}
	return sqlQuery
}

// Package apperrors defines sentinel errors shared across packages so
// callers can branch with errors.Is instead of matching message text.
package apperrors

import "errors"

var (
	// ErrInjectionDetected marks user-supplied input that failed the
	// injection screen. Surfaces in direct-SQL and tool-argument paths.
	ErrInjectionDetected = errors.New("SQL injection pattern detected")
)

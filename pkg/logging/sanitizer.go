// Package logging provides helpers for safe structured logging of SQL
// and credentials.
package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a SQL query to log.
	MaxQueryLogLength = 200
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx in connection strings or errors
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Bearer tokens (three base64url segments)
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// API keys passed as key=... pairs
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token)=[A-Za-z0-9-_]{20,}`)

	// user:pass@host credentials embedded in URLs
	credURLPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)
)

// SanitizeError strips credentials from error text before logging.
// Warehouse drivers occasionally echo connection details in errors.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = credURLPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeQuery truncates a SQL query for logging. Generated drill-down
// and comparison queries can get long; logs only need the head.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := query
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}

	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return sanitized
}

// SanitizeConnectionString removes credentials from a connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = credURLPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

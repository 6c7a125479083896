package sql

import (
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a detected SQL injection pattern in a
// user-supplied value.
type InjectionCheckResult struct {
	IsSQLi      bool   // true if an injection pattern was detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Source      string // where the value came from (e.g. "chat_command")
	Value       string // the offending value
}

// CheckForInjection screens a user-supplied string with libinjection.
// The direct-SQL chat command and free-text tool arguments (wiki titles,
// sheet names) pass through here before reaching the warehouse or the
// document services. Returns nil when the value is clean.
func CheckForInjection(source, value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Source:      source,
		Value:       value,
	}
}

var stringLiteralPattern = regexp.MustCompile(`'((?:[^']|'')*)'`)

// CheckQueryLiterals screens the string literal values of a user-typed
// query. libinjection is built for values, not whole statements, so a
// legitimate SELECT passes while a literal smuggling a payload (pasted
// from an untrusted source) is caught. Returns the first hit, or nil.
func CheckQueryLiterals(source, sqlQuery string) *InjectionCheckResult {
	for _, m := range stringLiteralPattern.FindAllStringSubmatch(sqlQuery, -1) {
		literal := strings.ReplaceAll(m[1], "''", "'")
		if result := CheckForInjection(source, literal); result != nil {
			return result
		}
	}
	return nil
}

// Package redact scrubs credentials, personal data and query text from
// strings before they reach logs or error responses.
package redact

import (
	"regexp"
	"strings"
)

// Placeholders substituted for redacted fragments.
const (
	Placeholder           = "[REDACTED]"
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	JWTPlaceholder        = "[REDACTED_JWT]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	PathPlaceholder       = "[REDACTED_PATH]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules run in order; earlier rules must not leave text that a later rule
// would mangle (JWTs go first because they also look like keys).
var rules = []rule{
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), JWTPlaceholder},
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|rediss?)://[^\s@/]+@`), "${1}://" + CredentialPlaceholder + "@"},
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd)(\s*[=:]\s*)\S+`), "${1}${2}" + Placeholder},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token)(\s*[=:]\s*)[A-Za-z0-9_\-.~+/]{8,}`), "${1}${2}" + KeyPlaceholder},
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), EmailPlaceholder},
	{regexp.MustCompile(`\b(SELECT|INSERT|UPDATE|DELETE)\b[^\n]*?\b(FROM|INTO|SET)\b[^\n]*`), SQLPlaceholder},
	{regexp.MustCompile(`(?:/[\w.-]+){3,}`), PathPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	out := input
	for _, r := range rules {
		out = r.pattern.ReplaceAllString(out, r.replacement)
	}
	return out
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Email masks the local part of an address for log correlation,
// e.g. "jane@example.com" becomes "j***@example.com".
func Email(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return Placeholder
	}
	return addr[:1] + "***" + addr[at:]
}

// Package redact strips credentials, patron identifiers, connection strings,
// file paths and SQL fragments from strings before they are logged or
// returned in error responses.
package redact

import (
	"regexp"
	"sync"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedUserPlaceholder       = "[REDACTED_USER]"
)

// rule is one pattern and what replaces it. Rules apply in order, so the
// more specific patterns come first.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

var (
	mu sync.RWMutex

	rules = []rule{
		// connection strings, up to and including the credentials
		{regexp.MustCompile(`(?i)(postgres|postgresql|sqlite|file|db|database|connection)://[^@\s]+@`),
			RedactedCredentialPlaceholder},
		{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},
		{regexp.MustCompile(`\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53}`), "[REDACTED_HASH]"},
		{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
		{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
			RedactedKeyPlaceholder},
		{regexp.MustCompile(`(AKIA|AccessKey(Id)?)([^a-zA-Z0-9])?[A-Z0-9]{8,}`), RedactedKeyPlaceholder},
		// patron identity in key=value form keeps the key
		{regexp.MustCompile(`(?i)\b(user|uname|user_id|patron)([=:]\s*)[^\s"',;&]+`),
			"${1}${2}" + RedactedUserPlaceholder},
		{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
		{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},
		{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
		{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[REDACTED_EMAIL]"},
		{regexp.MustCompile(
			`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|LOCK)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|DATABASE|SCHEMA|VIEW)(?:[\s\w,*()='"]+)?`,
		), "[REDACTED_SQL]"},
		{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`),
			"[REDACTED_HOST]"},
		{regexp.MustCompile(`(?i)(?:no such file|file not found|can't open|cannot open|file error)`),
			"[REDACTED_FILE_ERROR]"},
	}
)

// AddPattern appends a rule, for deployment specific identifiers.
func AddPattern(pattern *regexp.Regexp, replacement string) {
	if replacement == "" {
		replacement = RedactionPlaceholder
	}
	mu.Lock()
	defer mu.Unlock()
	rules = append(rules, rule{pattern: pattern, replacement: replacement})
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	mu.RLock()
	defer mu.RUnlock()

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

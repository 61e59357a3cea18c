package logging

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// RedactedText replaces sensitive fragments in logged or rendered text.
const RedactedText = "[REDACTED]"

// MaxQueryLogLength bounds SQL text written to logs.
const MaxQueryLogLength = 120

type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// Driver errors routinely echo the DSN back, so every rule here applies to
// both log fields and the error messages surfaced in insight markdown.
var redactions = []redaction{
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	{regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`), "${1}=" + RedactedText},
	// user:pass@host inside URLs
	{regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`), "://" + RedactedText + "@" + RedactedText},
	// api_key=..., token=...
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey|token|secret)=[A-Za-z0-9\-_.]{8,}`), "${1}=" + RedactedText},
	// Bearer tokens
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]*`), "Bearer " + RedactedText},
}

func redact(s string) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// SanitizeConnectionString removes credentials from a connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	return redact(connStr)
}

// SanitizeError returns the error text with credentials removed.
// Returns "" for a nil error.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return redact(err.Error())
}

// SanitizeQuery collapses whitespace, truncates and redacts a SQL statement for logging.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	return redact(TruncateString(strings.Join(strings.Fields(query), " "), MaxQueryLogLength))
}

// TruncateString truncates s to at most maxLen bytes, never splitting a UTF-8
// sequence, and appends "..." when anything was cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return "..."
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Package redact scrubs credentials, tokens, connection strings, SQL text and
// file paths from strings before they are logged. Error responses never carry
// raw errors at all; redact only protects the logs.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// rules are applied in order; earlier rules see the raw input.
var rules = []rule{
	// Stack traces swallow everything after them.
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},

	// Authorization header values and bare JWTs.
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`), "Bearer " + RedactedTokenPlaceholder},
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), "[REDACTED_JWT]"},

	// user:password@ in database URLs.
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|sqlite|file)://[^@\s/]+@`), "${1}://" + RedactedCredentialPlaceholder + "@"},

	// key=value and "key": "value" pairs naming a secret.
	{
		regexp.MustCompile(`(?i)\b(password|passwd|pwd|jwt_secret|secret|refresh_token|token|api[_-]?key)(["']?\s*[=:]\s*["']?)[^"'&\s,}]+`),
		"${1}${2}" + RedactionPlaceholder,
	},

	// bcrypt hashes.
	{regexp.MustCompile(`\$2[aby]?\$\d{2}\$[./A-Za-z0-9]{53}`), "[REDACTED_HASH]"},

	// SQL statements. Keywords are matched upper-case only so that messages
	// like "failed to update task" survive.
	{regexp.MustCompile(`\b(SELECT|INSERT|UPDATE|DELETE)\b[\s\w,*().]*?\b(FROM|INTO|SET)\b[^;\n]*`), "[REDACTED_SQL]"},

	// host:port pairs.
	{
		regexp.MustCompile(`\b(?:localhost|(?:\d{1,3}\.){3}\d{1,3}|(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}):\d{1,5}\b`),
		"[REDACTED_HOST]",
	},

	// Absolute file paths with at least two segments.
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	for _, r := range rules {
		input = r.re.ReplaceAllString(input, r.repl)
	}
	return input
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

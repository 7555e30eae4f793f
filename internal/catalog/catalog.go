// Package catalog holds the canonical, version-pinned table of PII patterns
// shared by the fast sanitizer and any out-of-process ingest shim.
//
// Iteration order is part of the contract: overlapping matches (a JWT
// embedded in a path, say) resolve in favor of whichever category comes
// first in Default(), since its replacement token has already consumed the
// overlapping characters before later patterns run.
package catalog

import "regexp"

// Pattern is a single named redaction rule.
type Pattern struct {
	Name        string
	Regexp      *regexp.Regexp
	Replacement string
}

var compiled = []Pattern{
	{
		Name:        "EMAIL",
		Regexp:      regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		Replacement: "[REDACTED_EMAIL]",
	},
	{
		Name:        "PHONE",
		Regexp:      regexp.MustCompile(`\b(?:\+?1[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`),
		Replacement: "[REDACTED_PHONE]",
	},
	{
		Name:        "IP",
		Regexp:      regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\b`),
		Replacement: "[REDACTED_IP]",
	},
	{
		Name:        "PATH",
		Regexp:      regexp.MustCompile(`(?:/(?:home|Users)/[^\s"']+|C:\\Users\\[^\s"']+)`),
		Replacement: "[REDACTED_PATH]",
	},
	{
		Name:        "API_KEY_OPENAI",
		Regexp:      regexp.MustCompile(`\bsk-[A-Za-z0-9]{48}\b`),
		Replacement: "[REDACTED_API_KEY_OPENAI]",
	},
	{
		Name:        "API_KEY_ANTHROPIC",
		Regexp:      regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{95}\b`),
		Replacement: "[REDACTED_API_KEY_ANTHROPIC]",
	},
	{
		Name:        "AWS_ACCESS_KEY",
		Regexp:      regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		Replacement: "[REDACTED_AWS_ACCESS_KEY]",
	},
	{
		Name:        "GITHUB_TOKEN",
		Regexp:      regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`),
		Replacement: "[REDACTED_GITHUB_TOKEN]",
	},
	{
		Name:        "JWT",
		Regexp:      regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`),
		Replacement: "[REDACTED_JWT]",
	},
	{
		Name:        "SSH_KEY",
		Regexp:      regexp.MustCompile(`(?s)-----BEGIN (?:RSA |OPENSSH )?PRIVATE KEY-----.*?-----END (?:RSA |OPENSSH )?PRIVATE KEY-----`),
		Replacement: "[REDACTED_SSH_KEY]",
	},
	{
		Name:        "CREDIT_CARD",
		Regexp:      regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
		Replacement: "[REDACTED_CREDIT_CARD]",
	},
	{
		Name:        "SSN",
		Regexp:      regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Replacement: "[REDACTED_SSN]",
	},
}

// Default returns a copy of the canonical ordered pattern list. Callers get
// their own slice header but share the compiled *regexp.Regexp values,
// which are safe for concurrent use.
func Default() []Pattern {
	out := make([]Pattern, len(compiled))
	copy(out, compiled)
	return out
}

// Duplicate re-derives the same ordered pattern list from scratch, compiling
// its own regexps rather than sharing Default's. It exists so an
// out-of-process ingest shim can embed a small, dependency-free copy of the
// catalog without importing this package; a generator test asserts the two
// stay byte-for-byte identical in behavior.
func Duplicate() []Pattern {
	return []Pattern{
		{Name: "EMAIL", Regexp: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), Replacement: "[REDACTED_EMAIL]"},
		{Name: "PHONE", Regexp: regexp.MustCompile(`\b(?:\+?1[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`), Replacement: "[REDACTED_PHONE]"},
		{Name: "IP", Regexp: regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\b`), Replacement: "[REDACTED_IP]"},
		{Name: "PATH", Regexp: regexp.MustCompile(`(?:/(?:home|Users)/[^\s"']+|C:\\Users\\[^\s"']+)`), Replacement: "[REDACTED_PATH]"},
		{Name: "API_KEY_OPENAI", Regexp: regexp.MustCompile(`\bsk-[A-Za-z0-9]{48}\b`), Replacement: "[REDACTED_API_KEY_OPENAI]"},
		{Name: "API_KEY_ANTHROPIC", Regexp: regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{95}\b`), Replacement: "[REDACTED_API_KEY_ANTHROPIC]"},
		{Name: "AWS_ACCESS_KEY", Regexp: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), Replacement: "[REDACTED_AWS_ACCESS_KEY]"},
		{Name: "GITHUB_TOKEN", Regexp: regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`), Replacement: "[REDACTED_GITHUB_TOKEN]"},
		{Name: "JWT", Regexp: regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`), Replacement: "[REDACTED_JWT]"},
		{Name: "SSH_KEY", Regexp: regexp.MustCompile(`(?s)-----BEGIN (?:RSA |OPENSSH )?PRIVATE KEY-----.*?-----END (?:RSA |OPENSSH )?PRIVATE KEY-----`), Replacement: "[REDACTED_SSH_KEY]"},
		{Name: "CREDIT_CARD", Regexp: regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`), Replacement: "[REDACTED_CREDIT_CARD]"},
		{Name: "SSN", Regexp: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), Replacement: "[REDACTED_SSN]"},
	}
}

// Package sanitize implements the synchronous, rule-based redaction stage
// that runs on every ingested message before it is ever persisted. It is a
// pure function over the pattern catalog: no I/O, no allocation beyond what
// the input and its redacted copy require, and safe for concurrent use.
package sanitize

import (
	"errors"
	"unicode/utf8"

	"github.com/convolog/convolog/internal/catalog"
)

// ErrInvalidEncoding is returned when the input is not valid UTF-8. The
// pipeline treats this as a non-ingestable event: logged and dropped, never
// partially written.
var ErrInvalidEncoding = errors.New("sanitize: invalid utf-8 encoding")

// Match records a single redaction. It is kept in memory only for logging
// and metrics purposes and is never persisted alongside the message.
type Match struct {
	Category string
	Original string
}

// Result is the outcome of sanitizing one piece of text.
type Result struct {
	Sanitized      string
	RedactionCount int
	Matches        []Match
}

// Sanitize applies the pattern catalog to text in catalog order. Where two
// patterns would match overlapping spans, the earlier category wins: its
// replacement token is substituted before later patterns run, so the
// replaced characters can no longer satisfy a later pattern. The function is
// idempotent — replacement tokens do not themselves match any catalog
// pattern, so Sanitize(Sanitize(x).Sanitized) == Sanitize(x).
func Sanitize(text string) (Result, error) {
	if !utf8.ValidString(text) {
		return Result{}, ErrInvalidEncoding
	}

	out := text
	var matches []Match

	for _, p := range catalog.Default() {
		found := p.Regexp.FindAllString(out, -1)
		if len(found) == 0 {
			continue
		}
		for _, m := range found {
			matches = append(matches, Match{Category: p.Name, Original: m})
		}
		out = p.Regexp.ReplaceAllString(out, p.Replacement)
	}

	return Result{
		Sanitized:      out,
		RedactionCount: len(matches),
		Matches:        matches,
	}, nil
}

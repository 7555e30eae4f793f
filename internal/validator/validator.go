// Package validator implements the async, second-pass audit of already
// sanitized message content. It never touches the original message row; it
// only ever appends sanitization_log findings when residual PII survives
// the fast sanitizer.
//
// Two implementations satisfy Validator: a heuristic one that re-applies a
// subset of the pattern catalog, and an Anthropic-backed one used when
// ANTHROPIC_API_KEY is configured. Selection happens once at construction
// time in cmd/worker, mirroring the teacher's provider-polymorphism
// pattern for picking an LLM backend by configuration rather than by type
// assertion at call time.
package validator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/convolog/convolog/internal/llmclient"
)

// Report is the outcome of validating one message's sanitized content.
type Report struct {
	IsClean bool     `json:"is_clean"`
	Issues  []string `json:"issues"`
}

// Validator audits already-sanitized content for residual PII.
type Validator interface {
	Check(ctx context.Context, content string) (Report, error)
}

// systemPrompt is pinned: temperature 0, single-shot, JSON-only response.
const systemPrompt = `You are a privacy auditor reviewing text that has already
passed through an automated PII redactor. Look only for PII the redactor
missed: email addresses, phone numbers, IP addresses, file paths containing a
username, API keys or tokens, credit card numbers, social security numbers, or
private key material. Respond with a single JSON object and nothing else:
{"is_clean": bool, "issues": [string, ...]}. "issues" should be empty when
is_clean is true.`

// anthropicValidator sends sanitized content to the Anthropic Messages API
// for a second opinion.
type anthropicValidator struct {
	client *llmclient.Client
}

// NewAnthropic builds a model-backed Validator over an existing client.
func NewAnthropic(client *llmclient.Client) Validator {
	return &anthropicValidator{client: client}
}

func (v *anthropicValidator) Check(ctx context.Context, content string) (Report, error) {
	text, err := v.client.Complete(ctx, systemPrompt, content)
	if err != nil {
		return Report{}, fmt.Errorf("validator transport: %w", err)
	}

	var report Report
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &report); err != nil {
		return Report{}, fmt.Errorf("validator malformed response: %w", err)
	}
	return report, nil
}

// extractJSONObject trims any leading/trailing prose a model might add
// around the JSON object despite the pinned prompt asking for none.
func extractJSONObject(s string) string {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				return s[start : i+1]
			}
		}
	}
	return s
}

// Package extractor derives zero or one structured Learning from a
// conversation's full, sanitized message sequence. It never deduplicates:
// callers that run the extractor twice over the same conversation get two
// rows, by design — deduplication is left to a future consumer.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/convolog/convolog/internal/llmclient"
	"github.com/convolog/convolog/internal/store"
)

// Learning is the structured artifact an extractor may produce. It mirrors
// store.Learning's writable fields; the caller assigns ID/ConversationID/
// CreatedAt at persistence time.
type Learning struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// Extractor derives a learning from a conversation's message sequence.
// Returns (nil, nil) when no learning was found — not an error.
type Extractor interface {
	Extract(ctx context.Context, messages []*store.Message) (*Learning, error)
}

const systemPrompt = `You study a conversation between a developer and an AI
coding assistant, already scrubbed of personal information, and extract one
reusable technical learning if the conversation contains one worth keeping
for other agents. A learning should be concrete: a pattern, a gotcha, or a
working code snippet, not small talk. If nothing is worth keeping, respond
with exactly {"category":"","title":"","content":""}. Otherwise respond with
a single JSON object and nothing else:
{"category": string, "title": string, "content": string}.
category should be a short lowercase tag such as "technical".`

type anthropicExtractor struct {
	client *llmclient.Client
}

// NewAnthropic builds a model-backed Extractor over an existing client,
// used at temperature 0 via llmclient.Client.Complete.
func NewAnthropic(client *llmclient.Client) Extractor {
	return &anthropicExtractor{client: client}
}

func (e *anthropicExtractor) Extract(ctx context.Context, messages []*store.Message) (*Learning, error) {
	transcript := renderTranscript(messages)

	text, err := e.client.Complete(ctx, systemPrompt, transcript)
	if err != nil {
		return nil, fmt.Errorf("extractor transport: %w", err)
	}

	var l Learning
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &l); err != nil {
		return nil, fmt.Errorf("extractor malformed response: %w", err)
	}

	if l.Title == "" && l.Content == "" {
		return nil, nil
	}
	return &l, nil
}

func renderTranscript(messages []*store.Message) string {
	out := ""
	for _, m := range messages {
		out += fmt.Sprintf("[%s #%d] %s\n", m.Role, m.Sequence, m.Content)
	}
	return out
}

// extractJSONObject trims any leading/trailing prose around the JSON object
// the pinned prompt asks the model to return bare.
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

package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/convolog/convolog/internal/store"
)

// fencedCodeBlock matches a markdown fenced code block, capturing its body
// without the backtick fences or an optional language tag.
var fencedCodeBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\\n?(.*?)```")

type heuristicExtractor struct{}

// NewHeuristic builds the deterministic local extractor used when no
// external model backend is configured: it scans for the first assistant
// message containing a fenced code block and emits its body as-is.
func NewHeuristic() Extractor {
	return &heuristicExtractor{}
}

func (heuristicExtractor) Extract(_ context.Context, messages []*store.Message) (*Learning, error) {
	for _, m := range messages {
		if m.Role != "assistant" {
			continue
		}
		match := fencedCodeBlock.FindStringSubmatch(m.Content)
		if match == nil {
			continue
		}
		body := strings.TrimSpace(match[1])
		if body == "" {
			continue
		}
		return &Learning{
			Category: "technical",
			Title:    "Code sample",
			Content:  body,
		}, nil
	}
	return nil, nil
}

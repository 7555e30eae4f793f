package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/convolog/convolog/internal/extractor"
	"github.com/convolog/convolog/internal/queue"
	"github.com/convolog/convolog/internal/store"
)

// ExtractProcessor implements Processor for spec.md's learning extractor: it
// loads the full, ordered message sequence for the job's conversation and
// hands it to an Extractor, appending at most one learning row. It never
// deduplicates against prior extractions for the same conversation.
type ExtractProcessor struct {
	Store     store.Store
	Extractor extractor.Extractor
}

func (p *ExtractProcessor) JobType() string { return queue.JobTypeExtractLearning }

func (p *ExtractProcessor) Process(ctx context.Context, job *queue.Job) error {
	var payload extractLearningPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return fmt.Errorf("decode extract_learning_ai payload: %w", err)
	}

	messages, err := p.Store.GetMessages(ctx, payload.ConversationID)
	if err != nil {
		return fmt.Errorf("load messages for conversation %s: %w", payload.ConversationID, err)
	}
	if len(messages) == 0 {
		return nil
	}

	learning, err := p.Extractor.Extract(ctx, messages)
	if err != nil {
		return fmt.Errorf("extract learning for conversation %s: %w", payload.ConversationID, err)
	}
	if learning == nil {
		return nil
	}

	_, err = p.Store.AppendLearning(ctx, payload.ConversationID, learning.Category, learning.Title, learning.Content, time.Now())
	if err != nil {
		return fmt.Errorf("append learning: %w", err)
	}
	return nil
}

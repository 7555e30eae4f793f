// Package query implements the two read-only operations other agents use
// to retrieve extracted learnings, plus the stdio tool-call protocol that
// exposes them (server.go). The business logic in this file has no
// dependency on the wire protocol so it can be unit tested directly.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/convolog/convolog/internal/store"
)

// DefaultSearchLimit and the clamp bounds on search_learnings' limit
// argument, per spec.md §4.8.
const (
	DefaultSearchLimit = 10
	MinSearchLimit     = 1
	MaxSearchLimit     = 50
)

// ErrMissingArgument marks a required tool argument that was absent or
// empty, surfaced to callers as an invalid-argument protocol error.
var ErrMissingArgument = errors.New("query: missing required argument")

// Service implements get_learning and search_learnings over a store.
type Service struct {
	Store store.LearningStore
}

// NewService builds a Service over a store's learning-facing subset.
func NewService(s store.LearningStore) *Service {
	return &Service{Store: s}
}

// GetLearning performs an exact lookup by primary key. Returns (nil, nil)
// when no learning exists with that id — not an error.
func (s *Service) GetLearning(ctx context.Context, id string) (*store.Learning, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingArgument)
	}
	l, err := s.Store.GetLearning(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get learning: %w", err)
	}
	return l, nil
}

// SearchLearnings performs a case-sensitive substring search over title and
// content, ORed, ordered by created_at descending. limit is clamped to
// [MinSearchLimit, MaxSearchLimit]; a non-positive value falls back to
// DefaultSearchLimit rather than clamping up to the minimum, matching "limit
// is clamped... with a default of 10" in spec.md §4.8.
func (s *Service) SearchLearnings(ctx context.Context, q string, limit int) ([]*store.Learning, error) {
	if q == "" {
		return nil, fmt.Errorf("%w: query", ErrMissingArgument)
	}

	clamped := ClampLimit(limit)

	results, err := s.Store.SearchLearnings(ctx, q, clamped)
	if err != nil {
		return nil, fmt.Errorf("search learnings: %w", err)
	}
	if results == nil {
		results = []*store.Learning{}
	}
	return results, nil
}

// ClampLimit applies spec.md §4.8's clamp: a caller-omitted or zero limit
// becomes DefaultSearchLimit; any other value is clamped to
// [MinSearchLimit, MaxSearchLimit].
func ClampLimit(limit int) int {
	if limit == 0 {
		return DefaultSearchLimit
	}
	if limit < MinSearchLimit {
		return MinSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

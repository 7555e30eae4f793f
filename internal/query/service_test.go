package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/convolog/convolog/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultSearchLimit},
		{-5, MinSearchLimit},
		{1, 1},
		{50, 50},
		{51, MaxSearchLimit},
		{1000, MaxSearchLimit},
	}
	for _, c := range cases {
		if got := ClampLimit(c.in); got != c.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestGetLearningRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	conv, err := s.GetOrCreateConversationBySession(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetOrCreateConversationBySession: %v", err)
	}
	l, err := s.AppendLearning(ctx, conv.ID, "technical", "Title", "const answer = 42;", now)
	if err != nil {
		t.Fatalf("AppendLearning: %v", err)
	}

	svc := NewService(s)
	got, err := svc.GetLearning(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLearning: %v", err)
	}
	if got == nil || got.ID != l.ID {
		t.Fatalf("expected learning %s, got %+v", l.ID, got)
	}
}

func TestGetLearningMissingReturnsNilNotError(t *testing.T) {
	s := newTestStore(t)
	svc := NewService(s)

	got, err := svc.GetLearning(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("expected no error for missing learning, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestGetLearningMissingIDIsInvalidArgument(t *testing.T) {
	s := newTestStore(t)
	svc := NewService(s)

	_, err := svc.GetLearning(context.Background(), "")
	if !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
}

func TestSearchLearningsFindsSubstringMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	conv, _ := s.GetOrCreateConversationBySession(ctx, "session-1")
	_, err := s.AppendLearning(ctx, conv.ID, "technical", "Pagination", "the answer is keyset pagination", now)
	if err != nil {
		t.Fatalf("AppendLearning: %v", err)
	}

	svc := NewService(s)
	results, err := svc.SearchLearnings(ctx, "answer", 0)
	if err != nil {
		t.Fatalf("SearchLearnings: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchLearningsMissingQueryIsInvalidArgument(t *testing.T) {
	s := newTestStore(t)
	svc := NewService(s)

	_, err := svc.SearchLearnings(context.Background(), "", 10)
	if !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
}

func TestSearchLearningsIsCaseSensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	conv, _ := s.GetOrCreateConversationBySession(ctx, "session-1")
	_, err := s.AppendLearning(ctx, conv.ID, "technical", "lowercase answer", "body", now)
	if err != nil {
		t.Fatalf("AppendLearning: %v", err)
	}

	svc := NewService(s)
	results, err := svc.SearchLearnings(ctx, "ANSWER", 10)
	if err != nil {
		t.Fatalf("SearchLearnings: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected case-sensitive search to miss, got %d results", len(results))
	}
}

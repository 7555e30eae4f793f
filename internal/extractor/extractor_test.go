package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/convolog/convolog/internal/llmclient"
	"github.com/convolog/convolog/internal/store"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *llmclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := llmclient.New("test-key")
	if err != nil {
		t.Fatalf("llmclient.New: %v", err)
	}
	c.SetBaseURL(srv.URL)
	return c
}

func TestAnthropicExtractorParsesLearning(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"category\":\"technical\",\"title\":\"Pagination gotcha\",\"content\":\"use keyset pagination\"}"}]}`))
	})

	messages := []*store.Message{{Role: "assistant", Content: "use keyset pagination for large tables"}}
	l, err := NewAnthropic(c).Extract(context.Background(), messages)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if l == nil {
		t.Fatal("expected a learning")
	}
	if l.Title != "Pagination gotcha" {
		t.Errorf("unexpected title %q", l.Title)
	}
}

func TestAnthropicExtractorNoLearningYieldsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"category\":\"\",\"title\":\"\",\"content\":\"\"}"}]}`))
	})

	messages := []*store.Message{{Role: "assistant", Content: "just chatting"}}
	l, err := NewAnthropic(c).Extract(context.Background(), messages)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if l != nil {
		t.Fatalf("expected nil learning, got %+v", l)
	}
}

func TestAnthropicExtractorMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"nonsense"}]}`))
	})

	messages := []*store.Message{{Role: "assistant", Content: "x"}}
	_, err := NewAnthropic(c).Extract(context.Background(), messages)
	if err == nil {
		t.Fatal("expected malformed response error")
	}
}

func TestAnthropicExtractorTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	messages := []*store.Message{{Role: "assistant", Content: "x"}}
	_, err := NewAnthropic(c).Extract(context.Background(), messages)
	if err == nil {
		t.Fatal("expected transport error")
	}
}

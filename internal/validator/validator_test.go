package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/convolog/convolog/internal/llmclient"
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

func TestAnthropicValidatorParsesCleanReport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"is_clean\":true,\"issues\":[]}"}]}`))
	})

	v := NewAnthropic(c)
	report, err := v.Check(context.Background(), "clean text")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.IsClean {
		t.Fatal("expected clean report")
	}
}

func TestAnthropicValidatorParsesResidualIssues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"is_clean\":false,\"issues\":[\"phone number in a quoted log line\"]}"}]}`))
	})

	v := NewAnthropic(c)
	report, err := v.Check(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.IsClean {
		t.Fatal("expected non-clean report")
	}
	if len(report.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(report.Issues))
	}
}

func TestAnthropicValidatorTolersProseAroundJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"Sure, here you go: {\"is_clean\":true,\"issues\":[]} thanks!"}]}`))
	})

	v := NewAnthropic(c)
	report, err := v.Check(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.IsClean {
		t.Fatal("expected clean report despite surrounding prose")
	}
}

func TestAnthropicValidatorMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"not json at all"}]}`))
	})

	v := NewAnthropic(c)
	_, err := v.Check(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected malformed response error")
	}
}

func TestAnthropicValidatorTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	v := NewAnthropic(c)
	_, err := v.Check(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected transport error")
	}
}

package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatRetriesOnTransientStatus(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message Message `json:"message"`
		}{Message: Message{Role: RoleAssistant, Content: "ok"}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "chat-model", "embed-model", 5, time.Millisecond, time.Second, nil)
	out, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.2, 100, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("expected 'ok', got %q", out)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestChatFailsAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var errorEvents int
	c := New(srv.URL, "", "chat-model", "embed-model", 2, time.Millisecond, time.Second, nil)
	c.OnError = func(event string, payload map[string]any) { errorEvents++ }

	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.2, 100, false)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if errorEvents != 2 {
		t.Fatalf("expected 2 error telemetry events, got %d", errorEvents)
	}
}

func TestEmbedTextsPreservesOrderAcrossBatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := embeddingsResponse{}
		for i, text := range req.Input {
			vec := []float32{float32(len(text))}
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: vec, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "chat-model", "embed-model", 3, time.Millisecond, time.Second, nil)
	texts := []string{"a", "bb", "ccc", "dddd", "e"}
	vectors, err := c.EmbedTexts(context.Background(), texts, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, text := range texts {
		if vectors[i][0] != float32(len(text)) {
			t.Fatalf("vector %d out of order: got %v for text %q", i, vectors[i], text)
		}
	}
}

func TestTelemetryHookPanicDoesNotPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message Message `json:"message"`
		}{Message: Message{Role: RoleAssistant, Content: "ok"}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "chat-model", "embed-model", 1, time.Millisecond, time.Second, nil)
	c.OnResult = func(event string, payload map[string]any) { panic("boom") }

	out, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0.2, 100, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("expected 'ok', got %q", out)
	}
}

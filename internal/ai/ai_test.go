package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIProvider_ChatSendsOptions(t *testing.T) {
	var got openAIChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hi there  "}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "sk-test", "gpt-3.5-turbo", time.Second)
	reply, err := p.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hello"},
	}, WithTemperature(0.7), WithMaxTokens(500))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "  hi there  " {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Temperature == nil || *got.Temperature != 0.7 {
		t.Fatalf("temperature not sent: %+v", got.Temperature)
	}
	if got.MaxTokens != 500 {
		t.Fatalf("max tokens not sent: %d", got.MaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "sk-test", "", time.Second)
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected HTTPError 429, got %v", err)
	}
}

func TestOllamaProvider_Chat(t *testing.T) {
	var got ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"}}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "", time.Second)
	reply, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, WithMaxTokens(42))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Stream || got.Options == nil || got.Options.NumPredict != 42 {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var got embeddingsReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5,0.25,1]}]}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(srv.URL, "sk", "", 3, time.Second)
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}
	vec, err := e.Embed(context.Background(), "  where is home? ")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.25 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if got.Dimensions != 3 || got.Model != "text-embedding-3-large" || got.Input[0] != "where is home?" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5,0.25]}]}`))
	}))
	defer srv.Close()

	e, _ := NewOpenAIEmbedder(srv.URL, "sk", "m", 1024, time.Second)
	_, err := e.Embed(context.Background(), "q")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder("", "", "", 1024, 0); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(" OpenAI ", func(model string) (Provider, error) {
		return NewOpenAIProvider("", "k", model, 0), nil
	})
	p, err := reg.Get("openai", "gpt-4o")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.(*OpenAIProvider).Model != "gpt-4o" {
		t.Fatalf("model not passed through")
	}
	if _, err := reg.Get("nope", ""); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

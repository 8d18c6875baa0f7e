package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAICompleteSendsPromptsAndAuth(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"ok":true}`}},
			},
		})
	}))
	defer server.Close()

	p := NewOpenAI(server.URL+"/v1", "sk-local", "qwen-coder", 10*time.Second)
	out, err := p.Complete(context.Background(), "you are a reviewer", "review this", Options{Temperature: 0.2, MaxTokens: 512})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if out != `{"ok":true}` {
		t.Errorf("out = %q", out)
	}
	if gotAuth != "Bearer sk-local" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotReq.Model != "qwen-coder" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 512 {
		t.Errorf("max_tokens = %d", gotReq.MaxTokens)
	}
}

func TestOpenAICompleteStripsFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "```json\n{\"a\": 1}\n```"}},
			},
		})
	}))
	defer server.Close()

	p := NewOpenAI(server.URL, "", "m", 10*time.Second)
	out, err := p.Complete(context.Background(), "s", "u", Options{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != `{"a": 1}` {
		t.Errorf("out = %q", out)
	}
}

func TestOpenAICompleteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "model overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewOpenAI(server.URL, "", "m", 10*time.Second)
	_, err := p.Complete(context.Background(), "s", "u", Options{})
	if err == nil {
		t.Fatal("expected error for 503")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error type = %T", err)
	}
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	p := NewOpenAI(server.URL, "", "m", 10*time.Second)
	if _, err := p.Complete(context.Background(), "s", "u", Options{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAIDescribeNamesLocalServers(t *testing.T) {
	local := NewOpenAI("http://localhost:6655/v1", "", "qwen-coder", 0)
	if d := local.Describe(); d.Provider != "local" {
		t.Errorf("provider = %q, want local", d.Provider)
	}

	hosted := NewOpenAI("", "sk", "gpt-4o", 0)
	if d := hosted.Describe(); d.Provider != "openai" {
		t.Errorf("provider = %q, want openai", d.Provider)
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		want    string
	}{
		{"default is anthropic", Config{Model: "claude-sonnet-4-5", APIKey: "k"}, false, "anthropic"},
		{"explicit openai", Config{Type: ProviderOpenAI, Model: "gpt-4o"}, false, "openai"},
		{"local with url", Config{Type: ProviderLocal, Model: "m", BaseURL: "http://localhost:6655/v1"}, false, "local"},
		{"local without url", Config{Type: ProviderLocal, Model: "m"}, true, ""},
		{"unknown type", Config{Type: "mystery", Model: "m"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromConfig failed: %v", err)
			}
			if got := p.Describe().Provider; got != tt.want {
				t.Errorf("provider = %q, want %q", got, tt.want)
			}
		})
	}
}

// flakyProvider fails a fixed number of times before succeeding
type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) Complete(context.Context, string, string, Options) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", &ProviderError{Provider: "flaky", Op: "complete", Err: errors.New("transient")}
	}
	return "ok", nil
}

func (f *flakyProvider) Describe() Description {
	return Description{Provider: "flaky", Model: "test"}
}

func TestCompleteWithRetryEventuallySucceeds(t *testing.T) {
	p := &flakyProvider{failures: 2}
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, BackoffMultiply: 2}

	out, err := CompleteWithRetry(context.Background(), p, policy, "s", "u", Options{})
	if err != nil {
		t.Fatalf("CompleteWithRetry failed: %v", err)
	}
	if out != "ok" || p.calls != 3 {
		t.Errorf("out = %q, calls = %d", out, p.calls)
	}
}

func TestCompleteWithRetryExhaustsAttempts(t *testing.T) {
	p := &flakyProvider{failures: 10}
	policy := RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond}

	_, err := CompleteWithRetry(context.Background(), p, policy, "s", "u", Options{})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
}

func TestCompleteWithRetryHonorsContext(t *testing.T) {
	p := &flakyProvider{failures: 10}
	policy := RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CompleteWithRetry(ctx, p, policy, "s", "u", Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNoRetryIsSingleAttempt(t *testing.T) {
	p := &flakyProvider{failures: 1}
	if _, err := CompleteWithRetry(context.Background(), p, NoRetry, "s", "u", Options{}); err == nil {
		t.Fatal("expected single-attempt failure")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

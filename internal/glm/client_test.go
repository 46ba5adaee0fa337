package glm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"minisearch/internal/model"
	"minisearch/internal/protocol"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Options{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "glm-4.5-flash",
		Temperature: 0.4,
		MaxTokens:   4096,
		Timeout:     5 * time.Second,
	})
	return client, srv
}

func TestChatCompletionSendsToolsAndAuth(t *testing.T) {
	var captured chatRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chatCompletionsPath {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "Field 31 is Sex."}},
			},
		})
	})

	tools := []ToolDeclaration{
		NewToolDeclaration("lookup_by_id", "Look up a field.", map[string]interface{}{"type": "object"}),
	}
	msg, err := client.ChatCompletion(context.Background(), []ChatMessage{
		{Role: RoleSystem, Content: "You answer dictionary questions."},
		{Role: RoleUser, Content: "What is field 31?"},
	}, tools)
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if msg.Content != "Field 31 is Sex." {
		t.Fatalf("content = %q", msg.Content)
	}

	if captured.Model != "glm-4.5-flash" {
		t.Fatalf("model = %q", captured.Model)
	}
	if captured.Temperature != 0.4 || captured.MaxTokens != 4096 {
		t.Fatalf("sampling params not forwarded: %+v", captured)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "lookup_by_id" {
		t.Fatalf("tools not forwarded: %+v", captured.Tools)
	}
	if captured.Thinking == nil || captured.Thinking.Type != "disabled" {
		t.Fatalf("thinking not disabled: %+v", captured.Thinking)
	}
}

func TestChatCompletionParsesToolCalls(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": "",
						"tool_calls": []map[string]interface{}{
							{
								"id":   "call_abc",
								"type": "function",
								"function": map[string]interface{}{
									"name":      "lookup_by_id",
									"arguments": `{"field_id":31}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	})

	msg, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: RoleUser, Content: "q"}}, nil)
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	if call.ID != "call_abc" || call.Function.Name != "lookup_by_id" {
		t.Fatalf("call = %+v", call)
	}
	if call.Function.Arguments != `{"field_id":31}` {
		t.Fatalf("arguments = %q", call.Function.Arguments)
	}
}

func TestChatCompletionStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, protocol.ErrorCodeUnauthorized},
		{http.StatusTooManyRequests, protocol.ErrorCodeRateLimited},
		{http.StatusInternalServerError, protocol.ErrorCodeAPIError},
		{http.StatusBadRequest, protocol.ErrorCodeAPIError},
	}
	for _, tc := range cases {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: RoleUser, Content: "q"}}, nil)
		if model.CodeOf(err) != tc.code {
			t.Fatalf("HTTP %d: code = %q, want %q", tc.status, model.CodeOf(err), tc.code)
		}
	}
}

func TestChatCompletionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Options{
		BaseURL: srv.URL,
		APIKey:  "k",
		Model:   "glm-4.5-flash",
		Timeout: 50 * time.Millisecond,
	})
	_, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: RoleUser, Content: "q"}}, nil)
	if model.CodeOf(err) != protocol.ErrorCodeTimeout {
		t.Fatalf("code = %q, want TIMEOUT (%v)", model.CodeOf(err), err)
	}
}

func TestChatCompletionEmptyChoices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})
	_, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: RoleUser, Content: "q"}}, nil)
	if model.CodeOf(err) != protocol.ErrorCodeAPIError {
		t.Fatalf("code = %q, want API_ERROR", model.CodeOf(err))
	}
}

func TestRequestBudget(t *testing.T) {
	current := time.Unix(1000, 0)
	b := newRequestBudget(2, time.Minute)
	b.now = func() time.Time { return current }

	if !b.allow() || !b.allow() {
		t.Fatalf("first two calls must pass")
	}
	if b.allow() {
		t.Fatalf("third call within the window must be rejected")
	}

	current = current.Add(61 * time.Second)
	if !b.allow() {
		t.Fatalf("window expiry must refill the budget")
	}
}

func TestBudgetExhaustionSurfacesRateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "ok"}},
			},
		})
	})
	client.budget = newRequestBudget(1, time.Minute)

	if _, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: RoleUser, Content: "q"}}, nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: RoleUser, Content: "q"}}, nil)
	if !errors.Is(err, model.ErrRateLimited) {
		t.Fatalf("exhausted budget must surface RATE_LIMITED, got %v", err)
	}
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func openAITextResponse(text string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "test",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": text},
		}},
	}
}

func openAIToolResponse(calls ...map[string]any) map[string]any {
	toolCalls := make([]any, len(calls))
	for i, c := range calls {
		toolCalls[i] = c
	}
	return map[string]any{
		"id":      "chatcmpl-2",
		"object":  "chat.completion",
		"created": 0,
		"model":   "test",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "tool_calls",
			"message":       map[string]any{"role": "assistant", "content": nil, "tool_calls": toolCalls},
		}},
	}
}

func fnCall(id, name, args string) map[string]any {
	return map[string]any{
		"id":       id,
		"type":     "function",
		"function": map[string]any{"name": name, "arguments": args},
	}
}

func TestOpenAIClient_FinalText(t *testing.T) {
	var body map[string]any
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, openAITextResponse("  Here you go.  "))
	}))
	defer srv.Close()

	c := NewOpenAIClient(ProviderConfig{Provider: ProviderOpenAI, Endpoint: srv.URL + "/v1", Model: "gpt-4o-mini", APIKey: "sk-test"})
	turn, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	f, ok := turn.(Final)
	if !ok {
		t.Fatalf("expected Final, got %T", turn)
	}
	if f.Text != "Here you go." {
		t.Errorf("Text = %q", f.Text)
	}
	if path != "/v1/chat/completions" {
		t.Errorf("path = %q", path)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}
	if body["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
	if body["temperature"] != DefaultTemperature {
		t.Errorf("temperature = %v", body["temperature"])
	}
	if _, ok := body["tools"]; ok {
		t.Error("tools should be omitted when the catalog is empty")
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 wire messages, got %d", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first message role = %v", first["role"])
	}
}

func TestOpenAIClient_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, openAIToolResponse(
			fnCall("call_1", "search_library", `{"query":"transformers"}`),
			fnCall("", "get_selected_items", `{}`),
		))
	}))
	defer srv.Close()

	c := NewOpenAIClient(ProviderConfig{Provider: ProviderOllama, Endpoint: srv.URL, Model: "llama3.2"})
	turn, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "find"}}, []ToolDefinition{
		{Name: "search_library", Description: "search", Parameters: map[string]any{"type": "object"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	tu, ok := turn.(ToolUse)
	if !ok {
		t.Fatalf("expected ToolUse, got %T", turn)
	}
	if tu.Family != FamilyOpenAI {
		t.Errorf("Family = %v", tu.Family)
	}
	if len(tu.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(tu.Calls))
	}
	if tu.Calls[0].ID != "call_1" || tu.Calls[0].Args["query"] != "transformers" {
		t.Errorf("first call = %+v", tu.Calls[0])
	}
	if !strings.HasPrefix(tu.Calls[1].ID, "call_") || len(tu.Calls[1].ID) <= len("call_") {
		t.Errorf("missing id should be minted, got %q", tu.Calls[1].ID)
	}
	if len(tu.Assistant.ToolCalls) != 2 || tu.Assistant.Role != RoleAssistant {
		t.Errorf("assistant message = %+v", tu.Assistant)
	}
}

func TestOpenAIClient_MalformedArgumentsBecomeEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, openAIToolResponse(fnCall("call_1", "search_library", `{not json`)))
	}))
	defer srv.Close()

	c := NewOpenAIClient(ProviderConfig{Provider: ProviderOpenAI, Endpoint: srv.URL, Model: "m"})
	turn, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	tu := turn.(ToolUse)
	if len(tu.Calls[0].Args) != 0 {
		t.Errorf("Args = %v, want empty", tu.Calls[0].Args)
	}
}

func TestOpenAIClient_SentinelOnEmptyShapes(t *testing.T) {
	tests := []struct {
		name string
		resp map[string]any
	}{
		{"no choices", map[string]any{"id": "x", "object": "chat.completion", "choices": []any{}}},
		{"empty content", openAITextResponse("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.resp)
			}))
			defer srv.Close()

			c := NewOpenAIClient(ProviderConfig{Provider: ProviderOpenAI, Endpoint: srv.URL, Model: "m"})
			turn, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil)
			if err != nil {
				t.Fatalf("Chat: %v", err)
			}
			if f, ok := turn.(Final); !ok || f.Text != NoResponse {
				t.Errorf("turn = %#v, want sentinel", turn)
			}
		})
	}
}

func TestOpenAIClient_HTTPErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient(ProviderConfig{Provider: ProviderOpenAI, Endpoint: srv.URL, Model: "m"})
	if _, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil); err == nil {
		t.Fatal("expected an error for 401")
	}
}

func TestOpenAIClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewOpenAIClient(ProviderConfig{Provider: ProviderOpenAI, Endpoint: srv.URL, Model: "m", Timeout: 50 * time.Millisecond})
	if _, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestToOpenAIMessages_AcceptsAnthropicShapes(t *testing.T) {
	msgs := toOpenAIMessages([]Message{
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Blocks: []Block{
			{Type: BlockText, Text: "checking"},
			{Type: BlockToolUse, ID: "tu_1", Name: "get_selected_items", Input: map[string]any{}},
		}},
		{Role: RoleUser, Blocks: []Block{{Type: BlockToolResult, ToolUseID: "tu_1", Content: "No items selected."}}},
	})
	if len(msgs) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(msgs))
	}
	if msgs[1].OfAssistant == nil || len(msgs[1].OfAssistant.ToolCalls) != 1 {
		t.Errorf("assistant tool calls not carried over: %+v", msgs[1])
	}
	if msgs[2].OfTool == nil || msgs[2].OfTool.ToolCallID != "tu_1" {
		t.Errorf("tool result not converted: %+v", msgs[2])
	}
}

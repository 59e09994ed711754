package llm

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "", 0},
		{"short", "hi", 1},
		{"exactly four chars", "test", 1},
		{"five chars rounds up", "hello", 2},
		{"typical sentence", "The quick brown fox jumps over the lazy dog.", 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.input)
			if got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestEstimateMessageTokens(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want int
	}{
		{
			name: "simple user message",
			msg:  Message{Role: RoleUser, Content: "hello"},
			want: 4 + 2,
		},
		{
			name: "empty message",
			msg:  Message{Role: RoleAssistant},
			want: 4,
		},
		{
			name: "openai tool call",
			msg: Message{
				Role: RoleAssistant,
				ToolCalls: []ToolCall{
					{ID: "call_1", Name: "search_library", Args: map[string]any{"query": "x"}},
				},
			},
			// overhead(4) + name(4) + framing(4) + {"query":"x"}(4)
			want: 4 + 4 + 4 + 4,
		},
		{
			name: "tool result message",
			msg:  Message{Role: RoleTool, Content: "No results found.", ToolCallID: "call_1"},
			// overhead(4) + content(5) + id(2) + framing(2)
			want: 4 + 5 + 2 + 2,
		},
		{
			name: "anthropic result blocks",
			msg: Message{Role: RoleUser, Blocks: []Block{
				{Type: BlockToolResult, ToolUseID: "tu_1", Content: "done"},
				{Type: BlockToolResult, ToolUseID: "tu_2", Content: "done"},
			}},
			want: 4 + 2*(1+1+2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateMessageTokens(tt.msg)
			if got != tt.want {
				t.Errorf("EstimateMessageTokens() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateMessagesTokens(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi there"},
	}
	got := EstimateMessagesTokens(messages)
	if got != 12 {
		t.Errorf("EstimateMessagesTokens() = %d, want 12", got)
	}
}

func TestEstimateToolsTokens(t *testing.T) {
	tools := []ToolDefinition{
		{
			Name:        "get_selected_items",
			Description: "Get the currently selected items.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
	got := EstimateToolsTokens(tools)
	if got <= 10 {
		t.Errorf("EstimateToolsTokens() = %d, expected > 10 for a tool with name+desc+schema", got)
	}
}

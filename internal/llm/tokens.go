package llm

import "encoding/json"

// charsPerToken is a rough English-text average; good enough for budgeting.
const charsPerToken = 4

// EstimateTokens returns a rough token count for a string.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// EstimateMessageTokens counts content, tool calls, structured blocks and
// per-message framing.
func EstimateMessageTokens(m Message) int {
	tokens := 4
	tokens += EstimateTokens(m.Content)
	for _, tc := range m.ToolCalls {
		tokens += estimateCall(tc.Name, tc.Args)
	}
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockText:
			tokens += EstimateTokens(b.Text)
		case BlockToolUse:
			tokens += estimateCall(b.Name, b.Input)
		case BlockToolResult:
			tokens += EstimateTokens(b.Content) + EstimateTokens(b.ToolUseID) + 2
		}
	}
	if m.ToolCallID != "" {
		tokens += EstimateTokens(m.ToolCallID) + 2
	}
	return tokens
}

func estimateCall(name string, args map[string]any) int {
	tokens := EstimateTokens(name) + 4
	if b, err := json.Marshal(args); err == nil {
		tokens += EstimateTokens(string(b))
	}
	return tokens
}

func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateMessageTokens(m)
	}
	return total
}

// EstimateToolsTokens counts tool schemas, which are sent with every request.
func EstimateToolsTokens(tools []ToolDefinition) int {
	total := 0
	for _, t := range tools {
		total += EstimateTokens(t.Name)
		total += EstimateTokens(t.Description)
		if schema, err := json.Marshal(t.Parameters); err == nil {
			total += EstimateTokens(string(schema))
		}
		total += 10
	}
	return total
}

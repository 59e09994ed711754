package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
)

// AnthropicClient speaks the Messages API.
type AnthropicClient struct {
	client anthropic.Client
	cfg    ProviderConfig
}

func NewAnthropicClient(cfg ProviderConfig) *AnthropicClient {
	cfg = cfg.withDefaults()
	// The SDK appends v1/messages itself.
	base := strings.TrimSuffix(cfg.baseURL(), "/v1")
	opts := []aoption.RequestOption{
		aoption.WithBaseURL(base + "/"),
		aoption.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, aoption.WithAPIKey(cfg.APIKey))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), cfg: cfg}
}

func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	system, msgs := toAnthropicMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}

	var (
		blocks []Block
		calls  []ToolCall
		text   strings.Builder
	)
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
			blocks = append(blocks, Block{Type: BlockText, Text: b.Text})
		case "tool_use":
			args := map[string]any{}
			_ = json.Unmarshal(b.Input, &args)
			id := b.ID
			if id == "" {
				id = "toolu_" + uuid.NewString()
			}
			calls = append(calls, ToolCall{ID: id, Name: b.Name, Args: args})
			blocks = append(blocks, Block{Type: BlockToolUse, ID: id, Name: b.Name, Input: args})
		}
	}

	if len(calls) == 0 {
		out := strings.TrimSpace(text.String())
		if out == "" {
			out = NoResponse
		}
		return Final{Text: out}, nil
	}

	return ToolUse{
		Assistant: Message{Role: RoleAssistant, Blocks: blocks},
		Calls:     calls,
		Family:    FamilyAnthropic,
	}, nil
}

func toAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		schema := anthropic.ToolInputSchemaParam{Properties: t.Parameters["properties"]}
		if req, ok := t.Parameters["required"].([]string); ok {
			schema.Required = req
		}
		out[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}}
	}
	return out
}

// toAnthropicMessages lifts system messages into the top-level system text
// and folds OpenAI-shaped tool messages into tool_result blocks. Consecutive
// results share one user message.
func toAnthropicMessages(messages []Message) (string, []anthropic.MessageParam) {
	var (
		system  []string
		out     []anthropic.MessageParam
		pending []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(pending) > 0 {
			out = append(out, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleTool:
			pending = append(pending, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		case RoleUser:
			if results := blocksOf(m.Blocks, BlockToolResult); len(results) > 0 {
				for _, b := range results {
					pending = append(pending, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, false))
				}
				flush()
				continue
			}
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			flush()
			var content []anthropic.ContentBlockParamUnion
			if len(m.Blocks) > 0 {
				for _, b := range m.Blocks {
					switch b.Type {
					case BlockText:
						if b.Text != "" {
							content = append(content, anthropic.NewTextBlock(b.Text))
						}
					case BlockToolUse:
						content = append(content, anthropic.NewToolUseBlock(b.ID, inputOrEmpty(b.Input), b.Name))
					}
				}
			} else {
				if m.Content != "" {
					content = append(content, anthropic.NewTextBlock(m.Content))
				}
				for _, tc := range m.ToolCalls {
					content = append(content, anthropic.NewToolUseBlock(tc.ID, inputOrEmpty(tc.Args), tc.Name))
				}
			}
			if len(content) > 0 {
				out = append(out, anthropic.NewAssistantMessage(content...))
			}
		}
	}
	flush()
	return strings.Join(system, "\n\n"), out
}

func inputOrEmpty(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return in
}

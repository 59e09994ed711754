package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

// OpenAIClient speaks the chat-completions protocol used by OpenAI,
// OpenRouter and Ollama.
type OpenAIClient struct {
	client openai.Client
	cfg    ProviderConfig
}

func NewOpenAIClient(cfg ProviderConfig) *OpenAIClient {
	cfg = cfg.withDefaults()
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.baseURL()),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), cfg: cfg}
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   openai.Int(int64(c.cfg.MaxTokens)),
		Temperature: openai.Float(DefaultTemperature),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat: %w", c.cfg.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return Final{Text: NoResponse}, nil
	}

	msg := resp.Choices[0].Message
	var calls []ToolCall
	for _, tc := range msg.ToolCalls {
		ftc := tc.AsFunction()
		if ftc.Function.Name == "" {
			continue
		}
		args := map[string]any{}
		// Unparseable arguments leave args empty; schema validation reports it.
		_ = json.Unmarshal([]byte(ftc.Function.Arguments), &args)
		id := ftc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		calls = append(calls, ToolCall{ID: id, Name: ftc.Function.Name, Args: args})
	}

	if len(calls) == 0 {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			text = NoResponse
		}
		return Final{Text: text}, nil
	}

	return ToolUse{
		Assistant: Message{Role: RoleAssistant, Content: msg.Content, ToolCalls: calls},
		Calls:     calls,
		Family:    FamilyOpenAI,
	}, nil
}

func toOpenAITools(tools []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		})
	}
	return out
}

// toOpenAIMessages also accepts Anthropic-shaped entries so a transcript
// survives a provider switch between calls.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleUser:
			if results := blocksOf(m.Blocks, BlockToolResult); len(results) > 0 {
				for _, b := range results {
					out = append(out, openai.ToolMessage(b.Content, b.ToolUseID))
				}
				continue
			}
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			calls := m.ToolCalls
			text := m.Content
			if len(calls) == 0 && len(m.Blocks) > 0 {
				calls = callsFromBlocks(m.Blocks)
				text = textOf(m.Blocks)
			}
			if len(calls) == 0 {
				out = append(out, openai.AssistantMessage(text))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallUnionParam, len(calls))
			for j, tc := range calls {
				argsJSON, _ := json.Marshal(tc.Args)
				toolCalls[j] = openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(argsJSON),
						},
					},
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: param.NewOpt(text),
					},
					ToolCalls: toolCalls,
				},
			})
		}
	}
	return out
}

func blocksOf(blocks []Block, typ BlockType) []Block {
	var out []Block
	for _, b := range blocks {
		if b.Type == typ {
			out = append(out, b)
		}
	}
	return out
}

func callsFromBlocks(blocks []Block) []ToolCall {
	var calls []ToolCall
	for _, b := range blocksOf(blocks, BlockToolUse) {
		calls = append(calls, ToolCall{ID: b.ID, Name: b.Name, Args: b.Input})
	}
	return calls
}

func textOf(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocksOf(blocks, BlockText) {
		sb.WriteString(b.Text)
	}
	return sb.String()
}

package llm

import "context"

// NoResponse is returned as the final text when a provider answers with a
// shape the client cannot interpret.
const NoResponse = "No response generated."

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// Block is one element of structured message content.
type Block struct {
	Type      BlockType
	Text      string
	ID        string         // tool_use
	Name      string         // tool_use
	Input     map[string]any // tool_use
	ToolUseID string         // tool_result
	Content   string         // tool_result
}

// Message is one transcript entry. Plain messages carry Content; assistant
// turns may carry ToolCalls (OpenAI family) or Blocks (Anthropic family).
type Message struct {
	Role       Role
	Content    string
	Blocks     []Block
	ToolCalls  []ToolCall
	ToolCallID string
}

type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema, type "object"
}

type ToolResult struct {
	CallID  string
	Content string
}

// Family groups providers that share a wire protocol.
type Family int

const (
	FamilyOpenAI Family = iota
	FamilyAnthropic
)

func (f Family) String() string {
	switch f {
	case FamilyAnthropic:
		return "anthropic"
	default:
		return "openai"
	}
}

// Turn is the outcome of one chat call: either Final or ToolUse.
type Turn interface {
	turn()
}

type Final struct {
	Text string
}

// ToolUse asks the caller to run Calls and report back. Assistant is the
// provider's message as returned, to be appended to the transcript verbatim.
type ToolUse struct {
	Assistant Message
	Calls     []ToolCall
	Family    Family
}

func (Final) turn()   {}
func (ToolUse) turn() {}

// Results shapes tool results the way the originating provider expects
// them: one tool message per result for the OpenAI family, a single user
// message of tool_result blocks for Anthropic.
func (t ToolUse) Results(results []ToolResult) []Message {
	switch t.Family {
	case FamilyAnthropic:
		blocks := make([]Block, len(results))
		for i, r := range results {
			blocks[i] = Block{Type: BlockToolResult, ToolUseID: r.CallID, Content: r.Content}
		}
		return []Message{{Role: RoleUser, Blocks: blocks}}
	default:
		msgs := make([]Message, len(results))
		for i, r := range results {
			msgs[i] = Message{Role: RoleTool, Content: r.Content, ToolCallID: r.CallID}
		}
		return msgs
	}
}

// Client sends a transcript and the tool catalog to a model.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (Turn, error)
}

// Package llm provides an OpenAI-compatible chat completion client with
// tool-calling support and structured error classification.
package llm

// ToolDefinition defines a tool that can be called by the LLM.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall represents a tool call requested by the LLM.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolCallFunc `json:"function"`
}

// ToolCallFunc is the function invocation within a tool call.
// Arguments is the raw JSON string produced by the model.
type ToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one turn of a model conversation. ToolCalls is set on
// assistant turns that request tools; ToolCallID links a tool turn back
// to the request it answers.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ChatRequest is a single completion request.
type ChatRequest struct {
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
}

// ChatResult is the model's reply to a single completion request.
type ChatResult struct {
	Content          string
	ToolCalls        []ToolCall
	PromptTokens     int
	CompletionTokens int
}

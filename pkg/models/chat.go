package models

import (
	"bytes"
	"encoding/json"
)

// Chat message roles accepted from callers. Tool and system turns are
// constructed server-side and never accepted from client history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ChatMessage is one turn of an assistant conversation as exchanged with
// clients. History sanitation keeps only user/assistant turns with string
// content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts history entries as loosely as clients send them:
// role must be a string, content may be any JSON scalar and is coerced to
// its text form. An entry that cannot be coerced comes out zeroed so that
// history sanitation drops it instead of the whole request failing.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*m = ChatMessage{}
		return nil
	}

	content, ok := coerceContent(raw.Content)
	if !ok {
		*m = ChatMessage{}
		return nil
	}

	m.Role = raw.Role
	m.Content = content
	return nil
}

// coerceContent converts a scalar content value to a string. Objects,
// arrays, null and absent content are not coercible.
func coerceContent(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	if raw[0] == '{' || raw[0] == '[' {
		return "", false
	}

	// Numbers and booleans keep their JSON text form.
	return string(raw), true
}

// ToolInteraction records one tool invocation made during an assistant run.
// Returned to the caller for display, never fed back to the model.
type ToolInteraction struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result map[string]any `json:"result"`
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessageUnmarshalCoercesScalarContent(t *testing.T) {
	var msgs []ChatMessage
	payload := `[
		{"role": "user", "content": "hello"},
		{"role": "user", "content": 42},
		{"role": "user", "content": 3.5},
		{"role": "assistant", "content": true}
	]`
	require.NoError(t, json.Unmarshal([]byte(payload), &msgs))
	require.Len(t, msgs, 4)

	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "hello"}, msgs[0])
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "42"}, msgs[1])
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "3.5"}, msgs[2])
	assert.Equal(t, ChatMessage{Role: RoleAssistant, Content: "true"}, msgs[3])
}

func TestChatMessageUnmarshalZeroesMalformedEntries(t *testing.T) {
	var msgs []ChatMessage
	payload := `[
		{"role": "user", "content": {"nested": 1}},
		{"role": "user", "content": [1, 2]},
		{"role": "user", "content": null},
		{"role": "user"},
		{"role": 7, "content": "x"},
		"not an object"
	]`
	require.NoError(t, json.Unmarshal([]byte(payload), &msgs))
	require.Len(t, msgs, 6)

	for i, msg := range msgs {
		assert.Zero(t, msg, "entry %d should be zeroed", i)
	}
}

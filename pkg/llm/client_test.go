package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestChatFailureLogRedactsAPIKey(t *testing.T) {
	const apiKey = "sk-abcdef1234567890"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid key ` + apiKey + `", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	core, logs := observer.New(zap.ErrorLevel)
	client, err := NewClient(&Config{Endpoint: srv.URL, Model: "test-model", APIKey: apiKey}, zap.New(core))
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))

	entries := logs.FilterMessage("LLM request failed").All()
	require.Len(t, entries, 1)
	logged, ok := entries[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.NotContains(t, logged, apiKey)
}

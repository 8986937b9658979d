package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/apperrors"
	"github.com/ami-sense/ami-engine/pkg/auth"
	"github.com/ami-sense/ami-engine/pkg/llm"
	"github.com/ami-sense/ami-engine/pkg/models"
	"github.com/ami-sense/ami-engine/pkg/services"
)

// stubAssistant returns a canned result and records the last request.
type stubAssistant struct {
	result  *services.AssistantResult
	err     error
	lastReq *services.AssistantRequest
}

func (s *stubAssistant) Chat(ctx context.Context, req *services.AssistantRequest) (*services.AssistantResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// stubAuthService authenticates any request carrying an Authorization
// header as the configured user.
type stubAuthService struct {
	username string
}

func (s *stubAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	if r.Header.Get("Authorization") == "" {
		return nil, "", auth.ErrMissingAuthorization
	}
	return &auth.Claims{PreferredUsername: s.username}, "test-token", nil
}

func (s *stubAuthService) RequireUsername(claims *auth.Claims) error {
	if claims.Username() == "" {
		return auth.ErrMissingUsername
	}
	return nil
}

func newChatServer(t *testing.T, assistant *stubAssistant) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	middleware := auth.NewMiddleware(&stubAuthService{username: "alice"}, logger)
	mux := http.NewServeMux()
	NewAssistantHandler(assistant, logger).RegisterRoutes(mux, middleware)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postChat(t *testing.T, server *httptest.Server, body map[string]any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/assistant/chat", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test-token")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var parsed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp, parsed
}

func TestChatSuccess(t *testing.T) {
	assistant := &stubAssistant{result: &services.AssistantResult{
		Response: "All sensors look healthy.",
		ToolInteractions: []models.ToolInteraction{
			{Name: "get_latest_sensor_data", Result: map[string]any{"co2": 612.4}},
		},
	}}
	server := newChatServer(t, assistant)

	resp, parsed := postChat(t, server, map[string]any{
		"message": "how is the air?",
		"history": []map[string]string{{"role": "user", "content": "hi"}},
	}, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", parsed["status"])
	assert.Equal(t, "All sensors look healthy.", parsed["response"])
	require.Len(t, parsed["tool_interactions"], 1)

	require.NotNil(t, assistant.lastReq)
	assert.Equal(t, "alice", assistant.lastReq.Username)
	require.Len(t, assistant.lastReq.History, 1)
}

func TestChatAcceptsNonStringHistoryContent(t *testing.T) {
	assistant := &stubAssistant{result: &services.AssistantResult{Response: "ok"}}
	server := newChatServer(t, assistant)

	resp, parsed := postChat(t, server, map[string]any{
		"message": "how is the air?",
		"history": []map[string]any{
			{"role": "user", "content": 42},
			{"role": "user", "content": map[string]any{"nested": true}},
			{"role": "assistant", "content": "ok"},
		},
	}, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", parsed["status"])

	// Scalar content is coerced, uncoercible entries arrive zeroed so the
	// service's history sanitation drops them.
	require.NotNil(t, assistant.lastReq)
	require.Len(t, assistant.lastReq.History, 3)
	assert.Equal(t, models.ChatMessage{Role: "user", Content: "42"}, assistant.lastReq.History[0])
	assert.Zero(t, assistant.lastReq.History[1])
	assert.Equal(t, models.ChatMessage{Role: "assistant", Content: "ok"}, assistant.lastReq.History[2])
}

func TestChatDegradedReportsIncomplete(t *testing.T) {
	assistant := &stubAssistant{result: &services.AssistantResult{
		Response: "Processing incomplete due to maximum iterations.",
		Degraded: true,
	}}
	server := newChatServer(t, assistant)

	resp, parsed := postChat(t, server, map[string]any{"message": "loop forever"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "incomplete", parsed["status"])
}

func TestChatTimezoneHeaderFallback(t *testing.T) {
	assistant := &stubAssistant{result: &services.AssistantResult{Response: "ok"}}
	server := newChatServer(t, assistant)

	_, _ = postChat(t, server, map[string]any{"message": "hi"},
		map[string]string{"X-Timezone": "America/New_York"})
	assert.Equal(t, "America/New_York", assistant.lastReq.Timezone)

	// An explicit body timezone wins over the header.
	_, _ = postChat(t, server, map[string]any{"message": "hi", "timezone": "Asia/Taipei"},
		map[string]string{"X-Timezone": "America/New_York"})
	assert.Equal(t, "Asia/Taipei", assistant.lastReq.Timezone)
}

func TestChatRequiresAuth(t *testing.T) {
	server := newChatServer(t, &stubAssistant{})

	resp, err := http.Post(server.URL+"/api/assistant/chat", "application/json",
		bytes.NewReader([]byte(`{"message":"hi"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty message", apperrors.ErrEmptyMessage, http.StatusBadRequest, "empty_message"},
		{"missing api key", apperrors.ErrMissingAPIKey, http.StatusBadRequest, "missing_api_key"},
		{"unknown user", apperrors.ErrNotFound, http.StatusNotFound, "user_not_found"},
		{"provider auth", &llm.Error{Type: llm.ErrorTypeAuth, Message: "bad key"}, http.StatusUnauthorized, "llm_auth_failed"},
		{"rate limited", &llm.Error{Type: llm.ErrorTypeRateLimit, Message: "slow down"}, http.StatusTooManyRequests, "llm_rate_limited"},
		{"unreachable", &llm.Error{Type: llm.ErrorTypeConnection, Message: "dial tcp"}, http.StatusServiceUnavailable, "llm_unavailable"},
		{"anything else", assert.AnError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newChatServer(t, &stubAssistant{err: tc.err})
			resp, parsed := postChat(t, server, map[string]any{"message": "hi"}, nil)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantCode, parsed["error"])
		})
	}
}

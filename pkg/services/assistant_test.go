package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/apperrors"
	"github.com/ami-sense/ami-engine/pkg/audit"
	"github.com/ami-sense/ami-engine/pkg/llm"
	"github.com/ami-sense/ami-engine/pkg/models"
	"github.com/ami-sense/ami-engine/pkg/repositories"
)

type staticToolSource struct {
	defs []llm.ToolDefinition
}

func (s *staticToolSource) Definitions() []llm.ToolDefinition { return s.defs }

type recordingExecutor struct {
	calls   []recordedCall
	results map[string]map[string]any
}

type recordedCall struct {
	name string
	args map[string]any
}

func (e *recordingExecutor) Invoke(ctx context.Context, name string, args map[string]any) map[string]any {
	e.calls = append(e.calls, recordedCall{name: name, args: args})
	if r, ok := e.results[name]; ok {
		return r
	}
	return map[string]any{"ok": true}
}

type stubAccounts struct {
	profiles map[string]*models.UserProfile
}

func (s *stubAccounts) GetProfile(ctx context.Context, username string) (*models.UserProfile, error) {
	if p, ok := s.profiles[username]; ok {
		return p, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *stubAccounts) UpdateProfileFields(ctx context.Context, username string, fields map[string]any) error {
	return nil
}

func (s *stubAccounts) CreateIssue(ctx context.Context, issue *models.IssueReport) error {
	return nil
}

var _ repositories.AccountRepository = (*stubAccounts)(nil)

type assistantFixture struct {
	service  AssistantService
	executor *recordingExecutor
	mock     *llm.MockClient
}

func newAssistantFixture(t *testing.T, mock *llm.MockClient, defs []llm.ToolDefinition) *assistantFixture {
	t.Helper()
	executor := &recordingExecutor{results: map[string]map[string]any{}}
	accounts := &stubAccounts{profiles: map[string]*models.UserProfile{
		"alice": {Username: "alice", APIKey: "sk-test", Email: "alice@example.com"},
		"nokey": {Username: "nokey"},
	}}
	clientFor := func(apiKey string) (llm.Client, error) {
		assert.Equal(t, "sk-test", apiKey)
		return mock, nil
	}
	svc := NewAssistantService(
		&staticToolSource{defs: defs},
		executor,
		clientFor,
		accounts,
		audit.NewSecurityAuditor(zap.NewNop()),
		15, 10,
		zap.NewNop(),
	)
	return &assistantFixture{service: svc, executor: executor, mock: mock}
}

func sensorToolDefs() []llm.ToolDefinition {
	names := []string{"get_latest_sensor_data", "get_user_profile", "report_issue"}
	defs := make([]llm.ToolDefinition, len(names))
	for i, n := range names {
		defs[i] = llm.ToolDefinition{Name: n, Description: n, Parameters: map[string]any{"type": "object"}}
	}
	return defs
}

func toolCallTurn(id, name, args string) *llm.ChatResult {
	return &llm.ChatResult{ToolCalls: []llm.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: llm.ToolCallFunc{Name: name, Arguments: args},
	}}}
}

func TestChatEmptyMessage(t *testing.T) {
	f := newAssistantFixture(t, &llm.MockClient{}, nil)

	_, err := f.service.Chat(context.Background(), &AssistantRequest{Username: "alice"})
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	assert.Empty(t, f.mock.Requests)
}

func TestChatMissingAPIKey(t *testing.T) {
	f := newAssistantFixture(t, &llm.MockClient{}, nil)

	_, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "hi",
		Username: "nokey",
	})
	assert.ErrorIs(t, err, apperrors.ErrMissingAPIKey)
}

func TestChatUnknownUser(t *testing.T) {
	f := newAssistantFixture(t, &llm.MockClient{}, nil)

	_, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "hi",
		Username: "mallory",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChatDirectAnswer(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{{Content: "The air is fine."}}}
	f := newAssistantFixture(t, mock, sensorToolDefs())

	result, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "how is the air?",
		Username: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "The air is fine.", result.Response)
	assert.False(t, result.Degraded)
	assert.Empty(t, result.ToolInteractions)
	assert.Empty(t, f.executor.calls)
}

func TestChatToolRoundTrip(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{
		toolCallTurn("call_1", "get_latest_sensor_data", "{}"),
		{Content: "CO2 is 612.4 ppm."},
	}}
	f := newAssistantFixture(t, mock, sensorToolDefs())
	f.executor.results["get_latest_sensor_data"] = map[string]any{"co2": 612.4}

	result, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "latest co2?",
		Username: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "CO2 is 612.4 ppm.", result.Response)

	require.Len(t, f.executor.calls, 1)
	assert.Equal(t, "get_latest_sensor_data", f.executor.calls[0].name)

	require.Len(t, result.ToolInteractions, 1)
	assert.Equal(t, 612.4, result.ToolInteractions[0].Result["co2"])

	// The second completion must carry the tool turn linked to the request.
	require.Len(t, mock.Requests, 2)
	msgs := mock.Requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, models.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)

	var toolResult map[string]any
	require.NoError(t, json.Unmarshal([]byte(last.Content), &toolResult))
	assert.Equal(t, 612.4, toolResult["co2"])
}

func TestChatIdentityOverride(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{
		toolCallTurn("call_1", "get_user_profile", `{"username": "bob"}`),
		{Content: "Here is your profile."},
	}}
	f := newAssistantFixture(t, mock, sensorToolDefs())

	result, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "show bob's profile",
		Username: "alice",
	})
	require.NoError(t, err)

	require.Len(t, f.executor.calls, 1)
	assert.Equal(t, "alice", f.executor.calls[0].args["username"])

	require.Len(t, result.ToolInteractions, 1)
	assert.Equal(t, "alice", result.ToolInteractions[0].Args["username"])
}

func TestChatIdentityInjectedWhenAbsent(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{
		toolCallTurn("call_1", "report_issue", `{"title": "t", "description": "d"}`),
		{Content: "Reported."},
	}}
	f := newAssistantFixture(t, mock, sensorToolDefs())

	_, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "report an issue",
		Username: "alice",
	})
	require.NoError(t, err)

	require.Len(t, f.executor.calls, 1)
	assert.Equal(t, "alice", f.executor.calls[0].args["reporter_username"])
}

func TestChatInvalidToolArguments(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{
		toolCallTurn("call_1", "get_latest_sensor_data", `{not json`),
		{Content: "Sorry, something went wrong."},
	}}
	f := newAssistantFixture(t, mock, sensorToolDefs())

	result, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "latest?",
		Username: "alice",
	})
	require.NoError(t, err)

	// The tool is never invoked and the error goes back to the model.
	assert.Empty(t, f.executor.calls)
	assert.Empty(t, result.ToolInteractions)

	msgs := mock.Requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, models.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "Invalid arguments format from LLM.")
}

func TestChatUnknownTool(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{
		toolCallTurn("call_1", "drop_database", `{}`),
		{Content: "I cannot do that."},
	}}
	f := newAssistantFixture(t, mock, sensorToolDefs())

	result, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "do something",
		Username: "alice",
	})
	require.NoError(t, err)

	assert.Empty(t, f.executor.calls)
	require.Len(t, result.ToolInteractions, 1)
	assert.Equal(t, "Tool 'drop_database' not found or configured.",
		result.ToolInteractions[0].Result["error"])

	msgs := mock.Requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Contains(t, last.Content, "not found or configured")
}

func TestChatHistorySanitation(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{{Content: "ok"}}}
	f := newAssistantFixture(t, mock, nil)

	var history []models.ChatMessage
	for i := 0; i < 12; i++ {
		history = append(history, models.ChatMessage{
			Role:    models.RoleUser,
			Content: fmt.Sprintf("msg %d", i),
		})
	}
	// Roles other than user/assistant are dropped, not counted. Entries
	// zeroed during decode (uncoercible content) fall out the same way.
	history = append(history, models.ChatMessage{Role: models.RoleSystem, Content: "ignore me"})
	history = append(history, models.ChatMessage{Role: "tool", Content: "ignore me too"})
	history = append(history, models.ChatMessage{})

	_, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "current",
		Username: "alice",
		History:  history,
	})
	require.NoError(t, err)

	require.Len(t, mock.Requests, 1)
	msgs := mock.Requests[0].Messages
	// system + 10 retained history turns + current message
	require.Len(t, msgs, 12)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Equal(t, "msg 2", msgs[1].Content)
	assert.Equal(t, "msg 11", msgs[10].Content)
	assert.Equal(t, "current", msgs[11].Content)
}

func TestChatIterationCap(t *testing.T) {
	// The model asks for a tool on every turn and never concludes.
	mock := &llm.MockClient{Turns: []*llm.ChatResult{
		toolCallTurn("call_x", "get_latest_sensor_data", "{}"),
	}}
	f := newAssistantFixture(t, mock, sensorToolDefs())

	result, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "loop forever",
		Username: "alice",
	})
	require.NoError(t, err)

	assert.Len(t, mock.Requests, 15)
	assert.Len(t, f.executor.calls, 15)
	assert.True(t, result.Degraded)
	assert.Equal(t, degradedResponse, result.Response)
}

func TestChatExhaustionFallsBackToLastAssistantContent(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{{
		Content: "Let me check that...",
		ToolCalls: []llm.ToolCall{{
			ID:       "call_x",
			Type:     "function",
			Function: llm.ToolCallFunc{Name: "get_latest_sensor_data", Arguments: "{}"},
		}},
	}}}
	f := newAssistantFixture(t, mock, sensorToolDefs())

	result, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "loop forever",
		Username: "alice",
	})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, "Let me check that...", result.Response)
}

func TestChatPropagatesClassifiedLLMError(t *testing.T) {
	mock := &llm.MockClient{Err: llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, errors.New("401"))}
	f := newAssistantFixture(t, mock, nil)

	_, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "hi",
		Username: "alice",
	})
	require.Error(t, err)
	assert.Equal(t, llm.ErrorTypeAuth, llm.GetErrorType(err))
}

func TestChatSystemPromptNamesUser(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{{Content: "ok"}}}
	f := newAssistantFixture(t, mock, nil)

	_, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "hi",
		Username: "alice",
		Timezone: "America/New_York",
	})
	require.NoError(t, err)

	system := mock.Requests[0].Messages[0]
	assert.Equal(t, models.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "user 'alice'")
	assert.Contains(t, system.Content, "America/New_York")
}

func TestChatBadTimezoneFallsBackToServer(t *testing.T) {
	mock := &llm.MockClient{Turns: []*llm.ChatResult{{Content: "ok"}}}
	f := newAssistantFixture(t, mock, nil)

	_, err := f.service.Chat(context.Background(), &AssistantRequest{
		Message:  "hi",
		Username: "alice",
		Timezone: "Not/AZone",
	})
	require.NoError(t, err)

	system := mock.Requests[0].Messages[0]
	assert.Contains(t, system.Content, "(server timezone)")
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/apperrors"
	"github.com/ami-sense/ami-engine/pkg/audit"
	"github.com/ami-sense/ami-engine/pkg/llm"
	"github.com/ami-sense/ami-engine/pkg/models"
	"github.com/ami-sense/ami-engine/pkg/repositories"
)

// userScopedTools maps tools that act on a single account to the name of
// their identity argument. Whatever the model supplies there is replaced
// with the authenticated caller before invocation.
var userScopedTools = map[string]string{
	"report_issue":        "reporter_username",
	"get_user_profile":    "username",
	"update_user_profile": "username",
}

// degradedResponse is returned when the tool loop exhausts its iteration
// budget without the model producing a final answer.
const degradedResponse = "Processing incomplete due to maximum iterations."

// AssistantRequest is one authenticated chat turn from the dashboard.
type AssistantRequest struct {
	Message  string
	History  []models.ChatMessage
	Timezone string
	Username string
}

// AssistantResult is the assistant's reply. Degraded is set when the
// response came from the exhaustion fallback rather than a completed turn.
type AssistantResult struct {
	Response         string
	ToolInteractions []models.ToolInteraction
	Degraded         bool
}

// ToolSource supplies the current tool definitions for the model.
type ToolSource interface {
	Definitions() []llm.ToolDefinition
}

// ToolExecutor runs one tool call. Failures come back inside the result
// map, never as a Go error.
type ToolExecutor interface {
	Invoke(ctx context.Context, name string, args map[string]any) map[string]any
}

// AssistantService runs LLM-backed chat turns with tool calling.
type AssistantService interface {
	Chat(ctx context.Context, req *AssistantRequest) (*AssistantResult, error)
}

// assistantService implements AssistantService.
type assistantService struct {
	tools         ToolSource
	executor      ToolExecutor
	clientFor     llm.Factory
	accounts      repositories.AccountRepository
	auditor       *audit.SecurityAuditor
	maxIterations int
	maxHistory    int
	logger        *zap.Logger
}

// NewAssistantService creates the chat orchestrator.
func NewAssistantService(
	tools ToolSource,
	executor ToolExecutor,
	clientFor llm.Factory,
	accounts repositories.AccountRepository,
	auditor *audit.SecurityAuditor,
	maxIterations int,
	maxHistory int,
	logger *zap.Logger,
) AssistantService {
	if maxIterations <= 0 {
		maxIterations = 15
	}
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &assistantService{
		tools:         tools,
		executor:      executor,
		clientFor:     clientFor,
		accounts:      accounts,
		auditor:       auditor,
		maxIterations: maxIterations,
		maxHistory:    maxHistory,
		logger:        logger.Named("assistant"),
	}
}

// Chat runs one conversation turn. The model may request tools for up to
// maxIterations rounds; each round's results are fed back before the next
// completion. The returned error is either a validation error (empty
// message, missing API key) or a classified llm.Error.
func (s *assistantService) Chat(ctx context.Context, req *AssistantRequest) (*AssistantResult, error) {
	if req.Message == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	profile, err := s.accounts.GetProfile(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("user profile for %s: %w", req.Username, err)
	}
	if profile.APIKey == "" {
		return nil, apperrors.ErrMissingAPIKey
	}

	client, err := s.clientFor(profile.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	messages := make([]llm.Message, 0, s.maxHistory+2)
	messages = append(messages, llm.Message{
		Role:    models.RoleSystem,
		Content: s.buildSystemPrompt(req.Username, req.Timezone),
	})
	messages = append(messages, s.sanitizeHistory(req.History)...)
	messages = append(messages, llm.Message{Role: models.RoleUser, Content: req.Message})

	defs := s.tools.Definitions()
	known := make(map[string]bool, len(defs))
	for _, d := range defs {
		known[d.Name] = true
	}

	var interactions []models.ToolInteraction
	var finalResponse *string

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		s.logger.Debug("Chat loop iteration",
			zap.Int("iteration", iteration+1),
			zap.Int("message_count", len(messages)))

		turn, err := client.Chat(ctx, &llm.ChatRequest{
			Messages: messages,
			Tools:    defs,
		})
		if err != nil {
			return nil, err
		}

		messages = append(messages, llm.Message{
			Role:      models.RoleAssistant,
			Content:   turn.Content,
			ToolCalls: turn.ToolCalls,
		})

		if len(turn.ToolCalls) == 0 {
			content := turn.Content
			finalResponse = &content
			break
		}

		s.logger.Debug("Model requested tool calls",
			zap.Int("iteration", iteration+1),
			zap.Int("count", len(turn.ToolCalls)))

		resultsAdded := 0
		for _, tc := range turn.ToolCalls {
			result, logged := s.executeToolCall(ctx, tc, known, req.Username)
			if logged != nil {
				interactions = append(interactions, *logged)
			}

			content, _ := json.Marshal(result)
			messages = append(messages, llm.Message{
				Role:       models.RoleTool,
				Content:    string(content),
				ToolCallID: tc.ID,
			})
			resultsAdded++
		}

		if resultsAdded == 0 {
			s.logger.Warn("Tool calls requested but none could be processed")
			content := turn.Content
			finalResponse = &content
			break
		}
	}

	result := &AssistantResult{ToolInteractions: interactions}
	if finalResponse != nil {
		result.Response = *finalResponse
		return result, nil
	}

	// Iteration budget exhausted. Fall back to the last assistant content,
	// or a fixed notice when there is none.
	s.logger.Warn("Tool calling loop reached max iterations without final response",
		zap.Int("max_iterations", s.maxIterations))
	result.Degraded = true
	result.Response = degradedResponse
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant && messages[i].Content != "" {
			result.Response = messages[i].Content
			break
		}
	}
	return result, nil
}

// executeToolCall resolves a single tool call into a result map for the
// tool turn. The second return is a log entry for the caller-facing
// interaction list, nil when the call never reached a tool.
func (s *assistantService) executeToolCall(
	ctx context.Context,
	tc llm.ToolCall,
	known map[string]bool,
	username string,
) (map[string]any, *models.ToolInteraction) {
	name := tc.Function.Name

	var args map[string]any
	validArgs := json.Unmarshal([]byte(tc.Function.Arguments), &args) == nil
	if !validArgs {
		s.logger.Error("Could not decode tool arguments",
			zap.String("tool", name),
			zap.String("arguments", tc.Function.Arguments))
	}
	if args == nil {
		args = map[string]any{}
	}

	if argName, scoped := userScopedTools[name]; scoped && validArgs {
		supplied, _ := args[argName].(string)
		if supplied != "" && supplied != username {
			s.logger.Warn("Model supplied foreign identity on user-scoped tool",
				zap.String("tool", name),
				zap.String("supplied", supplied),
				zap.String("authenticated", username))
			s.auditor.LogIdentityOverride(ctx, name, argName, supplied)
		}
		args[argName] = username
	}

	if !known[name] {
		s.logger.Error("Model requested unknown tool", zap.String("tool", name))
		result := map[string]any{"error": fmt.Sprintf("Tool '%s' not found or configured.", name)}
		loggedArgs := args
		if !validArgs {
			loggedArgs = map[string]any{"raw": tc.Function.Arguments}
		}
		return result, &models.ToolInteraction{Name: name, Args: loggedArgs, Result: result}
	}

	if !validArgs {
		return map[string]any{"error": "Invalid arguments format from LLM."}, nil
	}

	s.auditor.ScreenToolArguments(ctx, name, args)
	s.auditor.LogToolInvocation(ctx, name)

	result := s.executor.Invoke(ctx, name, args)
	return result, &models.ToolInteraction{Name: name, Args: args, Result: result}
}

// sanitizeHistory keeps only well-formed user and assistant turns and
// truncates to the most recent maxHistory entries.
func (s *assistantService) sanitizeHistory(history []models.ChatMessage) []llm.Message {
	var validated []llm.Message
	for _, msg := range history {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			continue
		}
		validated = append(validated, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	if len(validated) > s.maxHistory {
		validated = validated[len(validated)-s.maxHistory:]
	}
	return validated
}

// buildSystemPrompt assembles the per-request system turn: current time in
// the caller's timezone, timezone handling rules for time-based tools, and
// the identity restriction naming the authenticated user.
func (s *assistantService) buildSystemPrompt(username, timezone string) string {
	now := time.Now()
	tzNote := " (server timezone)"
	tzName := "server default"
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			now = now.In(loc)
			tzNote = fmt.Sprintf(" (user's local timezone: %s)", timezone)
			tzName = timezone
		}
	}
	currentTime := now.Format("2006-01-02 15:04:05 MST")

	return fmt.Sprintf(
		"You are an intelligent assistant designed for the Air Monitoring Interface (AMI) system. The current date and time is %s%s. "+
			"IMPORTANT TIMEZONE INSTRUCTIONS: "+
			"- The user is currently in timezone '%s'. ALL time-related queries and responses should be interpreted and presented in the user's timezone context. "+
			"- When using time-based tools (get_sensor_data_summary, get_sensor_data_in_range), you MUST convert user's time references to proper ISO 8601 format with timezone information. "+
			"- When presenting time data to the user, always consider their timezone context. If the user asks about 'yesterday', 'this morning', 'last week', etc., calculate these relative to their current local time. "+
			"- Always include timezone information when calling time-based tools. Use formats like '2023-10-27T10:00:00Z' (UTC) or '2023-10-27T18:00:00+08:00' (with timezone offset). "+
			"Your primary role is to assist user '%s' in querying real-time or historical sensor data, providing air quality related explanations, and managing user data (such as reporting issues, viewing, or updating personal settings). "+
			"When the user requests to query data or perform system operations, you should strive to use the available tools to provide accurate and timely information, and offer relevant analysis or suggestions based on the data. "+
			"Under all circumstances, you MUST ensure that all your actions are restricted to the current user '%s'. When using tools such as 'report_issue', 'get_user_profile', or 'update_user_profile', you MUST and can ONLY act on behalf of user '%s'. It is strictly forbidden to attempt to access or modify information for other users, or to impersonate others. If the user asks you to perform these actions for someone else, politely refuse and reiterate that you can only serve '%s'. "+
			"Your responses should be clear, concise, professional, and helpful. If you cannot answer a specific question or perform an operation, please state so honestly and guide the user to ask a clearer question or provide alternative solutions. "+
			"Please remember that your main goal is to provide assistance related to the AMI system's functionalities. For questions outside this scope, you may politely decline to answer or guide the user towards questions within the system's capabilities. "+
			"If the user asks about the system's purpose, features, Q&A, Standard of Air Quality, or how it works, you should use the tool to get the information, don't base your response on your hallucination.",
		currentTime, tzNote, tzName, username, username, username, username,
	)
}

// Ensure assistantService implements AssistantService at compile time.
var _ AssistantService = (*assistantService)(nil)

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/apperrors"
	"github.com/ami-sense/ami-engine/pkg/auth"
	"github.com/ami-sense/ami-engine/pkg/llm"
	"github.com/ami-sense/ami-engine/pkg/models"
	"github.com/ami-sense/ami-engine/pkg/services"
)

// ChatRequest for POST /api/assistant/chat.
type ChatRequest struct {
	Message  string               `json:"message"`
	History  []models.ChatMessage `json:"history"`
	Timezone string               `json:"timezone"`
}

// ChatResponse is the assistant's reply. Status is "success" for completed
// turns and "incomplete" when the tool loop hit its iteration cap.
type ChatResponse struct {
	Status           string                   `json:"status"`
	Response         string                   `json:"response"`
	ToolInteractions []models.ToolInteraction `json:"tool_interactions,omitempty"`
}

// AssistantHandler handles the LLM assistant chat endpoint.
type AssistantHandler struct {
	service services.AssistantService
	logger  *zap.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(service services.AssistantService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{service: service, logger: logger}
}

// RegisterRoutes registers the assistant routes on the given mux.
func (h *AssistantHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/assistant/chat", authMiddleware.RequireAuth(h.Chat))
}

// Chat handles POST /api/assistant/chat.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	username, err := auth.RequireUsernameFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "no username in token")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	// The dashboard sends the browser timezone as a header; an explicit
	// body field wins.
	timezone := req.Timezone
	if timezone == "" {
		timezone = r.Header.Get("X-Timezone")
	}

	result, err := h.service.Chat(r.Context(), &services.AssistantRequest{
		Message:  req.Message,
		History:  req.History,
		Timezone: timezone,
		Username: username,
	})
	if err != nil {
		h.writeChatError(w, username, err)
		return
	}

	status := "success"
	if result.Degraded {
		status = "incomplete"
	}

	if err := WriteJSON(w, http.StatusOK, ChatResponse{
		Status:           status,
		Response:         result.Response,
		ToolInteractions: result.ToolInteractions,
	}); err != nil {
		h.logger.Error("Failed to write chat response", zap.Error(err))
	}
}

// writeChatError maps service errors onto HTTP statuses. Provider errors
// use the classified type so the dashboard can distinguish a bad key from
// a rate limit or an outage.
func (h *AssistantHandler) writeChatError(w http.ResponseWriter, username string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrEmptyMessage):
		_ = ErrorResponse(w, http.StatusBadRequest, "empty_message", "message must not be empty")
		return
	case errors.Is(err, apperrors.ErrMissingAPIKey):
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_api_key",
			"no LLM API key configured for this account")
		return
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "user_not_found", "user account not found")
		return
	}

	errorType := llm.GetErrorType(err)
	h.logger.Error("Assistant chat failed",
		zap.String("username", username),
		zap.String("error_type", string(errorType)),
		zap.Error(err))

	switch errorType {
	case llm.ErrorTypeAuth:
		_ = ErrorResponse(w, http.StatusUnauthorized, "llm_auth_failed",
			"LLM provider rejected the configured API key")
	case llm.ErrorTypeRateLimit:
		_ = ErrorResponse(w, http.StatusTooManyRequests, "llm_rate_limited",
			"LLM provider rate limit exceeded, try again later")
	case llm.ErrorTypeConnection:
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "llm_unavailable",
			"LLM provider is unreachable, try again later")
	default:
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error",
			"failed to process chat request")
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/services"
)

// ChatbotRequest for POST /api/chatbot.
type ChatbotRequest struct {
	Query string `json:"query"`
}

// ChatbotResponse carries the rule-based chatbot's answer.
type ChatbotResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

// SuggestionsResponse lists the canned questions shown in the chatbot UI.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ChatbotHandler handles the rule-based chatbot endpoints. Unlike the
// assistant, these need no authentication and no LLM key.
type ChatbotHandler struct {
	service services.ChatbotService
	corpus  *services.FAQCorpus
	logger  *zap.Logger
}

// NewChatbotHandler creates a new chatbot handler.
func NewChatbotHandler(service services.ChatbotService, corpus *services.FAQCorpus, logger *zap.Logger) *ChatbotHandler {
	return &ChatbotHandler{service: service, corpus: corpus, logger: logger}
}

// RegisterRoutes registers the chatbot routes on the given mux.
func (h *ChatbotHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chatbot", h.Ask)
	mux.HandleFunc("GET /api/chatbot/suggestions", h.Suggestions)
}

// Ask handles POST /api/chatbot.
func (h *ChatbotHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req ChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "empty_query", "query must not be empty")
		return
	}

	answer, err := h.service.Answer(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("Chatbot query failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to answer query")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ChatbotResponse{Response: answer, Status: "success"}); err != nil {
		h.logger.Error("Failed to write chatbot response", zap.Error(err))
	}
}

// Suggestions handles GET /api/chatbot/suggestions.
func (h *ChatbotHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, SuggestionsResponse{
		Suggestions: h.corpus.Suggestions,
	}); err != nil {
		h.logger.Error("Failed to write suggestions response", zap.Error(err))
	}
}

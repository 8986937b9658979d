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

	"github.com/ami-sense/ami-engine/pkg/services"
)

type stubChatbot struct {
	answer string
	err    error
}

func (s *stubChatbot) Answer(ctx context.Context, query string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func newChatbotServer(t *testing.T, bot *stubChatbot) *httptest.Server {
	t.Helper()
	corpus := &services.FAQCorpus{
		Entries:     []services.FAQEntry{{Question: "aqi", Answer: "AQI is a measure of air quality."}},
		Suggestions: []string{"What is this system?", "What is the current AQI?"},
	}
	mux := http.NewServeMux()
	NewChatbotHandler(bot, corpus, zap.NewNop()).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestChatbotAsk(t *testing.T) {
	server := newChatbotServer(t, &stubChatbot{answer: "Current CO2 level is 612.4 ppm."})

	resp, err := http.Post(server.URL+"/api/chatbot", "application/json",
		bytes.NewReader([]byte(`{"query":"co2 level"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var parsed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.Equal(t, "Current CO2 level is 612.4 ppm.", parsed["response"])
	assert.Equal(t, "success", parsed["status"])
}

func TestChatbotEmptyQuery(t *testing.T) {
	server := newChatbotServer(t, &stubChatbot{answer: "unused"})

	resp, err := http.Post(server.URL+"/api/chatbot", "application/json",
		bytes.NewReader([]byte(`{"query":"   "}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var parsed map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.Equal(t, "empty_query", parsed["error"])
}

func TestChatbotSuggestions(t *testing.T) {
	server := newChatbotServer(t, &stubChatbot{})

	resp, err := http.Get(server.URL + "/api/chatbot/suggestions")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var parsed SuggestionsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.Contains(t, parsed.Suggestions, "What is the current AQI?")
}

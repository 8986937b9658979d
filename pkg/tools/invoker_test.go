package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInvokerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/convert_temperature", r.URL.Path)

		var args map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, 25.0, args["value"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"converted_value": 77, "unit": "F"}`))
	}))
	defer srv.Close()

	inv := NewInvoker(srv.URL, time.Second, zap.NewNop())
	result := inv.Invoke(context.Background(), "convert_temperature", map[string]any{
		"value":     25.0,
		"from_unit": "C",
	})

	assert.Equal(t, 77.0, result["converted_value"])
	assert.NotContains(t, result, "tool_error")
}

func TestInvokerNon2xxBecomesToolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	inv := NewInvoker(srv.URL, time.Second, zap.NewNop())
	result := inv.Invoke(context.Background(), "get_latest_sensor_data", map[string]any{})

	require.Contains(t, result, "tool_error")
	assert.Contains(t, result["tool_error"], "HTTP 500")
}

func TestInvokerTransportFailureBecomesToolError(t *testing.T) {
	inv := NewInvoker("http://127.0.0.1:1", 100*time.Millisecond, zap.NewNop())
	result := inv.Invoke(context.Background(), "get_latest_sensor_data", map[string]any{})

	require.Contains(t, result, "tool_error")
	assert.Contains(t, result["tool_error"], "get_latest_sensor_data")
}

func TestInvokerBadJSONBecomesToolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>nope</html>"))
	}))
	defer srv.Close()

	inv := NewInvoker(srv.URL, time.Second, zap.NewNop())
	result := inv.Invoke(context.Background(), "get_system_info", map[string]any{})

	require.Contains(t, result, "tool_error")
	assert.Contains(t, result["tool_error"], "Invalid JSON response")
}

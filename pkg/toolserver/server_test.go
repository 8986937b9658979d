package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/llm"
	"github.com/ami-sense/ami-engine/pkg/tools"
)

// stubToolService records the last call so routing tests can assert the
// argument plumbing.
type stubToolService struct {
	lastCall string
	lastArgs map[string]any
}

func (s *stubToolService) record(name string, args map[string]any) map[string]any {
	s.lastCall = name
	s.lastArgs = args
	return map[string]any{"called": name}
}

func (s *stubToolService) LatestSensorData(ctx context.Context) map[string]any {
	return s.record("get_latest_sensor_data", nil)
}

func (s *stubToolService) SensorDataSummary(ctx context.Context, startISO, endISO string) map[string]any {
	return s.record("get_sensor_data_summary", map[string]any{"start": startISO, "end": endISO})
}

func (s *stubToolService) SensorDataInRange(ctx context.Context, startISO, endISO string) map[string]any {
	return s.record("get_sensor_data_in_range", map[string]any{"start": startISO, "end": endISO})
}

func (s *stubToolService) ExtremeSensorValue(ctx context.Context, sensorType string, periodHours int) map[string]any {
	return s.record("get_extreme_sensor_value", map[string]any{"sensor_type": sensorType, "period_hours": periodHours})
}

func (s *stubToolService) RecentSensorData(ctx context.Context, periodHours int) map[string]any {
	return s.record("get_recent_sensor_data", map[string]any{"period_hours": periodHours})
}

func (s *stubToolService) CountSensorDataPoints(ctx context.Context, periodHours int) map[string]any {
	return s.record("count_sensor_data_points", map[string]any{"period_hours": periodHours})
}

func (s *stubToolService) ConvertTemperature(value float64, fromUnit string) map[string]any {
	return s.record("convert_temperature", map[string]any{"value": value, "from_unit": fromUnit})
}

func (s *stubToolService) SystemInfo() map[string]any {
	return s.record("get_system_info", nil)
}

func (s *stubToolService) ReportIssue(ctx context.Context, reporterUsername, title, description, issueType, reporterEmail string) map[string]any {
	return s.record("report_issue", map[string]any{
		"reporter_username": reporterUsername, "title": title,
		"description": description, "issue_type": issueType, "reporter_email": reporterEmail,
	})
}

func (s *stubToolService) UserProfile(ctx context.Context, username string) map[string]any {
	return s.record("get_user_profile", map[string]any{"username": username})
}

func (s *stubToolService) UpdateUserProfile(ctx context.Context, username string, updates map[string]any) map[string]any {
	return s.record("update_user_profile", map[string]any{"username": username, "updates": updates})
}

func newTestServer(t *testing.T) (*httptest.Server, *stubToolService) {
	t.Helper()
	stub := &stubToolService{}
	mux := http.NewServeMux()
	NewServer(stub, zap.NewNop()).RegisterRoutes(mux, "/tools")
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, stub
}

func postTool(t *testing.T, server *httptest.Server, name string, args map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(args)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/tools/"+name, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp, result
}

func TestToolRouting(t *testing.T) {
	server, stub := newTestServer(t)

	resp, result := postTool(t, server, "get_extreme_sensor_value", map[string]any{
		"sensor_type":  "co2",
		"period_hours": 6,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "get_extreme_sensor_value", result["called"])
	assert.Equal(t, "co2", stub.lastArgs["sensor_type"])
	assert.Equal(t, 6, stub.lastArgs["period_hours"])
}

func TestToolRoutingNoBody(t *testing.T) {
	server, stub := newTestServer(t)

	resp, err := http.Post(server.URL+"/tools/get_latest_sensor_data", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "get_latest_sensor_data", stub.lastCall)
}

func TestToolRoutingUnknownTool(t *testing.T) {
	server, _ := newTestServer(t)

	resp, result := postTool(t, server, "launch_rocket", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Unknown tool: launch_rocket", result["error"])
}

func TestToolRoutingMalformedBody(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/tools/get_user_profile", "application/json",
		bytes.NewReader([]byte("[1, 2, 3]")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConvertTemperatureMissingValue(t *testing.T) {
	server, _ := newTestServer(t)

	resp, result := postTool(t, server, "convert_temperature", map[string]any{"from_unit": "C"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Missing or invalid required argument: value.", result["error"])
}

func TestUpdateUserProfileStripsUsernameFromUpdates(t *testing.T) {
	server, stub := newTestServer(t)

	_, _ = postTool(t, server, "update_user_profile", map[string]any{
		"username": "alice",
		"temp_max": 28.5,
	})
	assert.Equal(t, "alice", stub.lastArgs["username"])
	updates := stub.lastArgs["updates"].(map[string]any)
	assert.Equal(t, map[string]any{"temp_max": 28.5}, updates)
}

// The registry must be able to consume the published document end to end.
func TestOpenAPIRoundTripThroughRegistry(t *testing.T) {
	server, _ := newTestServer(t)

	registry := tools.NewRegistry(server.URL+"/tools", 2*time.Second, zap.NewNop())
	registry.Refresh(context.Background())

	defs := registry.Definitions()
	require.Len(t, defs, 11)

	byName := map[string]llm.ToolDefinition{}
	for _, d := range defs {
		byName[d.Name] = d
	}

	extreme, ok := byName["get_extreme_sensor_value"]
	require.True(t, ok)
	props := extreme.Parameters["properties"].(map[string]any)
	period := props["period_hours"].(map[string]any)
	assert.Contains(t, period["description"], "(default: 24)")
	assert.NotContains(t, period, "title")

	report, ok := byName["report_issue"]
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"reporter_username", "title", "description"},
		report.Parameters["required"])

	latest, ok := byName["get_latest_sensor_data"]
	require.True(t, ok)
	assert.NotEmpty(t, latest.Description)
}

// Package toolserver exposes the assistant's tools over HTTP. Each tool is
// a POST endpoint taking a JSON argument object; the server also publishes
// an OpenAPI document the tool registry reads to build model-facing
// definitions. Tool-level failures are returned as 200 responses with an
// "error" field so the model can read and recover from them.
package toolserver

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/services"
)

// Server serves the tool endpoints.
type Server struct {
	tools  services.ToolService
	logger *zap.Logger
}

// NewServer creates the tool server on the given tool implementations.
func NewServer(tools services.ToolService, logger *zap.Logger) *Server {
	return &Server{
		tools:  tools,
		logger: logger.Named("toolserver"),
	}
}

// RegisterRoutes mounts the tool endpoints under prefix, typically "/tools".
func (s *Server) RegisterRoutes(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("GET "+prefix+"/openapi.json", s.handleOpenAPI)
	mux.HandleFunc("POST "+prefix+"/{tool}", s.handleTool)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, openAPIDocument())
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("tool")

	args, err := decodeArgs(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Request body must be a JSON object.",
		})
		return
	}

	result, ok := s.dispatch(r, name, args)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "Unknown tool: " + name,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) dispatch(r *http.Request, name string, args map[string]any) (map[string]any, bool) {
	ctx := r.Context()

	switch name {
	case "get_latest_sensor_data":
		return s.tools.LatestSensorData(ctx), true

	case "get_sensor_data_summary":
		return s.tools.SensorDataSummary(ctx,
			stringArg(args, "start_time_iso"), stringArg(args, "end_time_iso")), true

	case "get_sensor_data_in_range":
		return s.tools.SensorDataInRange(ctx,
			stringArg(args, "start_time_iso"), stringArg(args, "end_time_iso")), true

	case "get_extreme_sensor_value":
		return s.tools.ExtremeSensorValue(ctx,
			stringArg(args, "sensor_type"), intArg(args, "period_hours")), true

	case "get_recent_sensor_data":
		return s.tools.RecentSensorData(ctx, intArg(args, "period_hours")), true

	case "count_sensor_data_points":
		return s.tools.CountSensorDataPoints(ctx, intArg(args, "period_hours")), true

	case "convert_temperature":
		value, ok := floatArg(args, "value")
		if !ok {
			return map[string]any{"error": "Missing or invalid required argument: value."}, true
		}
		return s.tools.ConvertTemperature(value, stringArg(args, "from_unit")), true

	case "get_system_info":
		return s.tools.SystemInfo(), true

	case "report_issue":
		return s.tools.ReportIssue(ctx,
			stringArg(args, "reporter_username"),
			stringArg(args, "title"),
			stringArg(args, "description"),
			stringArg(args, "issue_type"),
			stringArg(args, "reporter_email")), true

	case "get_user_profile":
		return s.tools.UserProfile(ctx, stringArg(args, "username")), true

	case "update_user_profile":
		username := stringArg(args, "username")
		updates := make(map[string]any, len(args))
		for k, v := range args {
			if k != "username" {
				updates[k] = v
			}
		}
		return s.tools.UpdateUserProfile(ctx, username, updates), true
	}

	return nil, false
}

// decodeArgs reads the argument object. An empty body means no arguments.
func decodeArgs(body io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to write tool response", zap.Error(err))
	}
}

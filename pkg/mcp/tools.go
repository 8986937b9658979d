package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ami-sense/ami-engine/pkg/services"
)

// toolResult wraps a tool result map as MCP text content. Maps carrying an
// "error" key are marked as errors so clients surface them, but they are
// still content the model can read and act on.
func toolResult(payload map[string]any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	result := mcp.NewToolResultText(string(data))
	if _, ok := payload["error"]; ok {
		result.IsError = true
	}
	return result, nil
}

// RegisterSensorTools registers the sensor data query tools.
func RegisterSensorTools(s *server.MCPServer, svc services.ToolService) {
	s.AddTool(mcp.NewTool(
		"get_latest_sensor_data",
		mcp.WithDescription("Fetches the latest sensor data reading (temperature, humidity, CO2 and particulate matter)."),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.LatestSensorData(ctx))
	})

	s.AddTool(mcp.NewTool(
		"get_sensor_data_summary",
		mcp.WithDescription("Calculates summary statistics (average, minimum, maximum) for sensor data within a specified time range. Timestamps must be ISO 8601 with timezone information."),
		mcp.WithString("start_time_iso", mcp.Required(),
			mcp.Description("Start of the range as an ISO 8601 timestamp with timezone, e.g. '2023-10-27T10:00:00Z'.")),
		mcp.WithString("end_time_iso", mcp.Required(),
			mcp.Description("End of the range as an ISO 8601 timestamp with timezone, e.g. '2023-10-27T12:00:00Z'.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.SensorDataSummary(ctx,
			req.GetString("start_time_iso", ""),
			req.GetString("end_time_iso", "")))
	})

	s.AddTool(mcp.NewTool(
		"get_sensor_data_in_range",
		mcp.WithDescription("Fetches all sensor data readings recorded within a specified time range, oldest first. Timestamps must be ISO 8601 with timezone information."),
		mcp.WithString("start_time_iso", mcp.Required(),
			mcp.Description("Start of the range as an ISO 8601 timestamp with timezone.")),
		mcp.WithString("end_time_iso", mcp.Required(),
			mcp.Description("End of the range as an ISO 8601 timestamp with timezone.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.SensorDataInRange(ctx,
			req.GetString("start_time_iso", ""),
			req.GetString("end_time_iso", "")))
	})

	s.AddTool(mcp.NewTool(
		"get_extreme_sensor_value",
		mcp.WithDescription("Finds the minimum and maximum recorded value, with timestamps, for one sensor type over a look-back period ending now."),
		mcp.WithString("sensor_type", mcp.Required(),
			mcp.Description("Sensor field to inspect: temperature, humidity, co2, pm1_0, pm2_5 or pm10_0.")),
		mcp.WithNumber("period_hours",
			mcp.DefaultNumber(24),
			mcp.Description("Look-back window in hours.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.ExtremeSensorValue(ctx,
			req.GetString("sensor_type", ""),
			req.GetInt("period_hours", 24)))
	})

	s.AddTool(mcp.NewTool(
		"get_recent_sensor_data",
		mcp.WithDescription("Fetches all sensor data readings from the last N hours."),
		mcp.WithNumber("period_hours", mcp.Required(),
			mcp.Description("Look-back window in hours. Must be positive.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.RecentSensorData(ctx, req.GetInt("period_hours", 0)))
	})

	s.AddTool(mcp.NewTool(
		"count_sensor_data_points",
		mcp.WithDescription("Counts the number of sensor data readings recorded over a look-back period ending now."),
		mcp.WithNumber("period_hours",
			mcp.DefaultNumber(24),
			mcp.Description("Look-back window in hours.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.CountSensorDataPoints(ctx, req.GetInt("period_hours", 24)))
	})

	s.AddTool(mcp.NewTool(
		"convert_temperature",
		mcp.WithDescription("Converts a temperature value between Celsius and Fahrenheit."),
		mcp.WithNumber("value", mcp.Required(),
			mcp.Description("Temperature value to convert.")),
		mcp.WithString("from_unit", mcp.Required(),
			mcp.Description("Unit of the provided value: 'C' for Celsius or 'F' for Fahrenheit.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, ok := req.GetArguments()["value"]; !ok {
			return toolResult(map[string]any{"error": "Missing or invalid required argument: value."})
		}
		return toolResult(svc.ConvertTemperature(
			req.GetFloat("value", 0),
			req.GetString("from_unit", "")))
	})

	s.AddTool(mcp.NewTool(
		"get_system_info",
		mcp.WithDescription("Returns a description of the sensor monitoring system, its sensors and its capabilities."),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.SystemInfo())
	})
}

// RegisterAccountTools registers the user-scoped tools. These take an
// explicit username; the HTTP assistant overwrites it with the
// authenticated identity before calls reach here.
func RegisterAccountTools(s *server.MCPServer, svc services.ToolService) {
	s.AddTool(mcp.NewTool(
		"report_issue",
		mcp.WithDescription("Files an issue report (bug, feature request, sensor or data problem) on behalf of a user."),
		mcp.WithString("reporter_username", mcp.Required(),
			mcp.Description("Username of the user filing the report.")),
		mcp.WithString("title", mcp.Required(),
			mcp.Description("Short title for the issue.")),
		mcp.WithString("description", mcp.Required(),
			mcp.Description("Detailed description of the issue.")),
		mcp.WithString("issue_type",
			mcp.DefaultString("other"),
			mcp.Description("One of: bug, feature, sensor, data, other.")),
		mcp.WithString("reporter_email",
			mcp.Description("Contact email. Defaults to the account email when omitted.")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.ReportIssue(ctx,
			req.GetString("reporter_username", ""),
			req.GetString("title", ""),
			req.GetString("description", ""),
			req.GetString("issue_type", ""),
			req.GetString("reporter_email", "")))
	})

	s.AddTool(mcp.NewTool(
		"get_user_profile",
		mcp.WithDescription("Retrieves a user's profile: name, email, notification preference and alert thresholds. Temperatures are in Celsius."),
		mcp.WithString("username", mcp.Required(),
			mcp.Description("Username of the profile to fetch.")),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResult(svc.UserProfile(ctx, req.GetString("username", "")))
	})

	s.AddTool(mcp.NewTool(
		"update_user_profile",
		mcp.WithDescription("Updates fields on a user's profile. Only the provided fields are changed; unchanged values are ignored."),
		mcp.WithString("username", mcp.Required(),
			mcp.Description("Username of the profile to update.")),
		mcp.WithString("first_name", mcp.Description("First name.")),
		mcp.WithString("last_name", mcp.Description("Last name.")),
		mcp.WithString("email", mcp.Description("Contact email.")),
		mcp.WithBoolean("email_notifications",
			mcp.Description("Whether to send threshold alert emails.")),
		mcp.WithNumber("temp_min", mcp.Description("Low temperature alert threshold in Celsius.")),
		mcp.WithNumber("temp_max", mcp.Description("High temperature alert threshold in Celsius.")),
		mcp.WithNumber("humidity_min", mcp.Description("Low humidity alert threshold in percent.")),
		mcp.WithNumber("humidity_max", mcp.Description("High humidity alert threshold in percent.")),
		mcp.WithNumber("co2_max", mcp.Description("CO2 alert threshold in ppm.")),
		mcp.WithNumber("pm25_max", mcp.Description("PM2.5 alert threshold in μg/m³.")),
		mcp.WithNumber("pm10_max", mcp.Description("PM10 alert threshold in μg/m³.")),
		mcp.WithNumber("aqi_max", mcp.Description("AQI alert threshold.")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		username := req.GetString("username", "")
		updates := make(map[string]any, len(args))
		for k, v := range args {
			if k != "username" {
				updates[k] = v
			}
		}
		return toolResult(svc.UpdateUserProfile(ctx, username, updates))
	})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/apperrors"
	"github.com/ami-sense/ami-engine/pkg/models"
	"github.com/ami-sense/ami-engine/pkg/repositories"
)

// ToolService implements the assistant's tool set. Every method returns a
// JSON-shaped result map; expected failures (bad arguments, missing data,
// unknown users) are reported under "error" so the model can read them and
// recover. Only infrastructure failures are logged.
type ToolService interface {
	LatestSensorData(ctx context.Context) map[string]any
	SensorDataSummary(ctx context.Context, startISO, endISO string) map[string]any
	SensorDataInRange(ctx context.Context, startISO, endISO string) map[string]any
	ExtremeSensorValue(ctx context.Context, sensorType string, periodHours int) map[string]any
	RecentSensorData(ctx context.Context, periodHours int) map[string]any
	CountSensorDataPoints(ctx context.Context, periodHours int) map[string]any
	ConvertTemperature(value float64, fromUnit string) map[string]any
	SystemInfo() map[string]any
	ReportIssue(ctx context.Context, reporterUsername, title, description, issueType, reporterEmail string) map[string]any
	UserProfile(ctx context.Context, username string) map[string]any
	UpdateUserProfile(ctx context.Context, username string, updates map[string]any) map[string]any
}

// toolService implements ToolService on the repositories.
type toolService struct {
	sensors        repositories.SensorDataRepository
	accounts       repositories.AccountRepository
	systemInfoPath string
	logger         *zap.Logger
}

// NewToolService creates the tool implementations backing the tool server.
func NewToolService(
	sensors repositories.SensorDataRepository,
	accounts repositories.AccountRepository,
	systemInfoPath string,
	logger *zap.Logger,
) ToolService {
	return &toolService{
		sensors:        sensors,
		accounts:       accounts,
		systemInfoPath: systemInfoPath,
		logger:         logger.Named("tool_service"),
	}
}

func toolError(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}

// naiveLayouts are ISO 8601 shapes that lack an offset. They parse, but
// the tools reject them: without a zone the query range is ambiguous.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
}

var errNaiveTimestamp = errors.New("timestamp lacks timezone information")

// parseISOTimestamp parses an ISO 8601 timestamp, requiring an explicit
// offset or Z suffix. Returns errNaiveTimestamp for well-formed stamps
// without one.
func parseISOTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return time.Time{}, errNaiveTimestamp
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO 8601 timestamp: %s", value)
}

func readingToMap(r *models.SensorReading) map[string]any {
	return map[string]any{
		"timestamp":   r.Timestamp.Format(time.RFC3339),
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"co2":         r.CO2,
		"pm1_0":       r.PM1_0,
		"pm2_5":       r.PM2_5,
		"pm10_0":      r.PM10_0,
	}
}

// LatestSensorData returns the newest reading.
func (s *toolService) LatestSensorData(ctx context.Context) map[string]any {
	latest, err := s.sensors.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return map[string]any{"message": "No sensor data found."}
		}
		s.logger.Error("Failed to fetch latest sensor data", zap.Error(err))
		return toolError("%v", err)
	}
	return readingToMap(latest)
}

// SensorDataSummary computes avg/min/max statistics over a time range.
func (s *toolService) SensorDataSummary(ctx context.Context, startISO, endISO string) map[string]any {
	start, err := parseISOTimestamp(startISO)
	if err != nil {
		if errors.Is(err, errNaiveTimestamp) {
			return toolError("start_time_iso must include timezone information (e.g., '2023-10-27T10:00:00Z' or '2023-10-27T18:00:00+08:00').")
		}
		return toolError("Invalid ISO 8601 timestamp format provided for start_time_iso.")
	}
	end, err := parseISOTimestamp(endISO)
	if err != nil {
		if errors.Is(err, errNaiveTimestamp) {
			return toolError("end_time_iso must include timezone information (e.g., '2023-10-27T12:00:00Z' or '2023-10-27T20:00:00+08:00').")
		}
		return toolError("Invalid ISO 8601 timestamp format provided for end_time_iso.")
	}
	if !start.Before(end) {
		return toolError("start_time must be earlier than end_time.")
	}

	stats, err := s.sensors.GetStats(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to compute sensor summary", zap.Error(err))
		return toolError("%v", err)
	}
	count, err := s.sensors.CountRange(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to count sensor readings", zap.Error(err))
		return toolError("%v", err)
	}

	if count == 0 {
		return map[string]any{
			"message": fmt.Sprintf("No sensor data found between %s and %s.",
				start.Format(time.RFC3339), end.Format(time.RFC3339)),
		}
	}

	periodHours := math.Round(end.Sub(start).Hours()*100) / 100
	return map[string]any{
		"start_time":   start.Format(time.RFC3339),
		"end_time":     end.Format(time.RFC3339),
		"period_hours": periodHours,
		"data_points":  count,
		"summary": map[string]any{
			"avg_temp": stats.AvgTemp, "min_temp": stats.MinTemp, "max_temp": stats.MaxTemp,
			"avg_humidity": stats.AvgHumidity, "min_humidity": stats.MinHumidity, "max_humidity": stats.MaxHumidity,
			"avg_co2": stats.AvgCO2, "min_co2": stats.MinCO2, "max_co2": stats.MaxCO2,
			"avg_pm25": stats.AvgPM25, "min_pm25": stats.MinPM25, "max_pm25": stats.MaxPM25,
		},
	}
}

// SensorDataInRange returns every reading in a time range, oldest first.
func (s *toolService) SensorDataInRange(ctx context.Context, startISO, endISO string) map[string]any {
	start, err := parseISOTimestamp(startISO)
	if err != nil {
		if errors.Is(err, errNaiveTimestamp) {
			return toolError("start_time_iso must include timezone information (e.g., '2023-10-27T10:00:00Z' or '2023-10-27T18:00:00+08:00').")
		}
		return toolError("Invalid ISO 8601 timestamp format provided.")
	}
	end, err := parseISOTimestamp(endISO)
	if err != nil {
		if errors.Is(err, errNaiveTimestamp) {
			return toolError("end_time_iso must include timezone information (e.g., '2023-10-27T12:00:00Z' or '2023-10-27T20:00:00+08:00').")
		}
		return toolError("Invalid ISO 8601 timestamp format provided.")
	}

	readings, err := s.sensors.GetRange(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to fetch sensor range", zap.Error(err))
		return toolError("%v", err)
	}

	data := make([]map[string]any, len(readings))
	for i, r := range readings {
		data[i] = readingToMap(r)
	}

	return map[string]any{
		"start_time":        startISO,
		"end_time":          endISO,
		"data_points_count": len(readings),
		"data":              data,
	}
}

// ExtremeSensorValue finds the min and max records for one sensor field
// over a look-back window from the current server time.
func (s *toolService) ExtremeSensorValue(ctx context.Context, sensorType string, periodHours int) map[string]any {
	if !models.IsValidSensorField(sensorType) {
		valid := make([]string, len(models.ValidSensorFields))
		for i, f := range models.ValidSensorFields {
			valid[i] = string(f)
		}
		return toolError("Invalid sensor_type '%s'. Valid types are: [%s]", sensorType, strings.Join(valid, ", "))
	}
	if periodHours <= 0 {
		periodHours = 24
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(periodHours) * time.Hour)

	count, err := s.sensors.CountRange(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to count sensor readings", zap.Error(err))
		return toolError("%v", err)
	}

	result := map[string]any{
		"sensor_type":            sensorType,
		"period_hours":           periodHours,
		"data_points_considered": count,
		"minimum":                nil,
		"maximum":                nil,
	}

	minVal, maxVal, err := s.sensors.GetExtremes(ctx, models.SensorField(sensorType), start, end)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			result["message"] = fmt.Sprintf("No valid data for '%s' found in the last %d hours.", sensorType, periodHours)
			return result
		}
		s.logger.Error("Failed to fetch extreme sensor values", zap.Error(err))
		return toolError("%v", err)
	}

	result["minimum"] = map[string]any{
		"value":     minVal.Value,
		"timestamp": minVal.Timestamp.Format(time.RFC3339),
	}
	result["maximum"] = map[string]any{
		"value":     maxVal.Value,
		"timestamp": maxVal.Timestamp.Format(time.RFC3339),
	}
	return result
}

// RecentSensorData returns all readings from the last periodHours hours.
func (s *toolService) RecentSensorData(ctx context.Context, periodHours int) map[string]any {
	if periodHours <= 0 {
		return toolError("period_hours must be a positive integer.")
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(periodHours) * time.Hour)

	readings, err := s.sensors.GetRange(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to fetch recent sensor data", zap.Error(err))
		return toolError("%v", err)
	}

	data := make([]map[string]any, len(readings))
	for i, r := range readings {
		data[i] = readingToMap(r)
	}

	return map[string]any{
		"period_hours":          periodHours,
		"calculated_start_time": start.Format(time.RFC3339),
		"calculated_end_time":   end.Format(time.RFC3339),
		"data_points_count":     len(readings),
		"data":                  data,
	}
}

// CountSensorDataPoints counts readings in a look-back window.
func (s *toolService) CountSensorDataPoints(ctx context.Context, periodHours int) map[string]any {
	if periodHours <= 0 {
		periodHours = 24
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(periodHours) * time.Hour)

	count, err := s.sensors.CountRange(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to count sensor readings", zap.Error(err))
		return toolError("%v", err)
	}

	return map[string]any{
		"period_hours":      periodHours,
		"data_points_count": count,
		"start_time":        start.Format(time.RFC3339),
		"end_time":          end.Format(time.RFC3339),
	}
}

// ConvertTemperature converts between Celsius and Fahrenheit, rounding to
// two decimal places.
func (s *toolService) ConvertTemperature(value float64, fromUnit string) map[string]any {
	fromUnit = strings.ToUpper(fromUnit)

	var converted float64
	var toUnit string
	switch fromUnit {
	case "C":
		converted = value*9/5 + 32
		toUnit = "F"
	case "F":
		converted = (value - 32) * 5 / 9
		toUnit = "C"
	default:
		return toolError("Invalid 'from_unit'. Please specify 'C' for Celsius or 'F' for Fahrenheit.")
	}

	return map[string]any{
		"original_value":  value,
		"original_unit":   fromUnit,
		"converted_value": math.Round(converted*100) / 100,
		"converted_unit":  toUnit,
	}
}

// SystemInfo serves the system description document.
func (s *toolService) SystemInfo() map[string]any {
	content, err := os.ReadFile(s.systemInfoPath)
	if err != nil {
		s.logger.Error("Failed to read system info document",
			zap.String("path", s.systemInfoPath), zap.Error(err))
		return toolError("System information file not found at %s", s.systemInfoPath)
	}
	return map[string]any{"system_info": string(content)}
}

// ReportIssue files an issue on behalf of a user. Unknown issue types fall
// back to "other"; a missing email falls back to the account email.
func (s *toolService) ReportIssue(ctx context.Context, reporterUsername, title, description, issueType, reporterEmail string) map[string]any {
	if reporterUsername == "" || title == "" || description == "" {
		return toolError("Missing required arguments: reporter_username, title, and description are required.")
	}

	if !models.IsValidIssueType(issueType) {
		if issueType != "" {
			s.logger.Warn("Invalid issue type, defaulting to other",
				zap.String("issue_type", issueType))
		}
		issueType = string(models.IssueTypeOther)
	}

	profile, err := s.accounts.GetProfile(ctx, reporterUsername)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return toolError("User with username '%s' not found.", reporterUsername)
		}
		s.logger.Error("Failed to look up reporter", zap.Error(err))
		return toolError("%v", err)
	}

	email := reporterEmail
	if email == "" {
		email = profile.Email
	}

	issue := &models.IssueReport{
		ReporterUsername: reporterUsername,
		Title:            title,
		Description:      description,
		IssueType:        models.IssueType(issueType),
		Email:            email,
	}
	if err := s.accounts.CreateIssue(ctx, issue); err != nil {
		s.logger.Error("Failed to create issue report", zap.Error(err))
		return toolError("An unexpected error occurred while reporting the issue: %v", err)
	}

	return map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("Issue reported successfully by %s.", reporterUsername),
		"issue_id": issue.ID.String(),
	}
}

// UserProfile returns names, email, notification flag and alert thresholds.
// Temperatures are in Celsius.
func (s *toolService) UserProfile(ctx context.Context, username string) map[string]any {
	if username == "" {
		return toolError("Missing required argument: username.")
	}

	profile, err := s.accounts.GetProfile(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return toolError("User with username '%s' not found.", username)
		}
		s.logger.Error("Failed to fetch user profile", zap.Error(err))
		return toolError("%v", err)
	}

	return map[string]any{
		"success": true,
		"profile": map[string]any{
			"username":            profile.Username,
			"first_name":          profile.FirstName,
			"last_name":           profile.LastName,
			"email":               profile.Email,
			"email_notifications": profile.EmailNotifications,
			"thresholds": map[string]any{
				"temp_min":     profile.Thresholds.TempMin,
				"temp_max":     profile.Thresholds.TempMax,
				"humidity_min": profile.Thresholds.HumidityMin,
				"humidity_max": profile.Thresholds.HumidityMax,
				"co2_max":      profile.Thresholds.CO2Max,
				"pm25_max":     profile.Thresholds.PM25Max,
				"pm10_max":     profile.Thresholds.PM10Max,
				"aqi_max":      profile.Thresholds.AQIMax,
			},
		},
	}
}

var profileStringFields = map[string]bool{
	"first_name": true, "last_name": true, "email": true,
}

// UpdateUserProfile applies a partial update. Only fields that actually
// change are written; the response names them, or reports that nothing
// changed.
func (s *toolService) UpdateUserProfile(ctx context.Context, username string, updates map[string]any) map[string]any {
	if username == "" {
		return toolError("Missing required argument: username.")
	}
	if len(updates) == 0 {
		return map[string]any{"success": true, "message": "No update parameters provided."}
	}

	profile, err := s.accounts.GetProfile(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return toolError("User with username '%s' not found.", username)
		}
		s.logger.Error("Failed to fetch user profile", zap.Error(err))
		return toolError("%v", err)
	}

	changed := map[string]any{}
	var updatedFields []string

	for field, raw := range updates {
		// Unknown fields are ignored, matching the tool's signature.
		if !repositories.IsUpdatableProfileField(field) {
			continue
		}

		switch {
		case profileStringFields[field]:
			value, ok := raw.(string)
			if !ok {
				return toolError("Invalid value type provided for field '%s'. Expected string.", field)
			}
			if currentStringField(profile, field) != value {
				changed[field] = value
				updatedFields = append(updatedFields, field)
			}

		case field == "email_notifications":
			value, ok := raw.(bool)
			if !ok {
				return toolError("Invalid value type provided for field '%s'. Expected boolean.", field)
			}
			if profile.EmailNotifications != value {
				changed[field] = value
				updatedFields = append(updatedFields, "profile."+field)
			}

		default:
			// Remaining updatable fields are the numeric thresholds.
			value, err := toFloat(raw)
			if err != nil {
				return toolError("Invalid value type provided for field '%s'. Expected numeric.", field)
			}
			if currentThreshold(profile, field) != value {
				changed[field] = value
				updatedFields = append(updatedFields, "profile."+field)
			}
		}
	}

	if len(changed) == 0 {
		return map[string]any{"success": true, "message": "No changes detected or applied."}
	}

	if err := s.accounts.UpdateProfileFields(ctx, username, changed); err != nil {
		s.logger.Error("Failed to update user profile", zap.Error(err))
		return toolError("An unexpected error occurred: %v", err)
	}

	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Successfully updated fields: %s", strings.Join(updatedFields, ", ")),
	}
}

func currentStringField(p *models.UserProfile, field string) string {
	switch field {
	case "first_name":
		return p.FirstName
	case "last_name":
		return p.LastName
	case "email":
		return p.Email
	}
	return ""
}

func currentThreshold(p *models.UserProfile, field string) float64 {
	switch field {
	case "temp_min":
		return p.Thresholds.TempMin
	case "temp_max":
		return p.Thresholds.TempMax
	case "humidity_min":
		return p.Thresholds.HumidityMin
	case "humidity_max":
		return p.Thresholds.HumidityMax
	case "co2_max":
		return p.Thresholds.CO2Max
	case "pm25_max":
		return p.Thresholds.PM25Max
	case "pm10_max":
		return p.Thresholds.PM10Max
	case "aqi_max":
		return p.Thresholds.AQIMax
	}
	return 0
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("not numeric: %T", v)
}

// Ensure toolService implements ToolService at compile time.
var _ ToolService = (*toolService)(nil)

package models

import "time"

// SensorReading is a single environmental measurement row.
// Timestamps are stored timezone-aware (timestamptz) and serialized in
// ISO 8601 with offset, matching what the data tools return to the model.
type SensorReading struct {
	ID          int64     `json:"-"`
	CO2         float64   `json:"co2"`
	Humidity    float64   `json:"humidity"`
	Temperature float64   `json:"temperature"`
	PM1_0       float64   `json:"pm1_0"`
	PM2_5       float64   `json:"pm2_5"`
	PM10_0      float64   `json:"pm10_0"`
	Timestamp   time.Time `json:"timestamp"`
}

// SensorField names a queryable sensor column. Used by the extreme-value
// tool to validate the requested series.
type SensorField string

const (
	FieldTemperature SensorField = "temperature"
	FieldHumidity    SensorField = "humidity"
	FieldCO2         SensorField = "co2"
	FieldPM1_0       SensorField = "pm1_0"
	FieldPM2_5       SensorField = "pm2_5"
	FieldPM10_0      SensorField = "pm10_0"
)

// ValidSensorFields lists the sensor columns tools may query, in the order
// they are reported in error messages.
var ValidSensorFields = []SensorField{
	FieldTemperature, FieldHumidity, FieldCO2, FieldPM1_0, FieldPM2_5, FieldPM10_0,
}

// IsValidSensorField reports whether s names a known sensor column.
func IsValidSensorField(s string) bool {
	for _, f := range ValidSensorFields {
		if string(f) == s {
			return true
		}
	}
	return false
}

// SensorStats holds aggregate statistics over a time range. Nil fields mean
// no rows matched.
type SensorStats struct {
	AvgTemp     *float64 `json:"avg_temp"`
	MinTemp     *float64 `json:"min_temp"`
	MaxTemp     *float64 `json:"max_temp"`
	AvgHumidity *float64 `json:"avg_humidity"`
	MinHumidity *float64 `json:"min_humidity"`
	MaxHumidity *float64 `json:"max_humidity"`
	AvgCO2      *float64 `json:"avg_co2"`
	MinCO2      *float64 `json:"min_co2"`
	MaxCO2      *float64 `json:"max_co2"`
	AvgPM25     *float64 `json:"avg_pm25"`
	MinPM25     *float64 `json:"min_pm25"`
	MaxPM25     *float64 `json:"max_pm25"`
}

// SensorAverages holds mean values across the whole series, used by the
// rule-based chatbot's "average" answers.
type SensorAverages struct {
	Temperature *float64
	Humidity    *float64
	CO2         *float64
	PM1_0       *float64
	PM2_5       *float64
	PM10_0      *float64
}

// ExtremeValue is one endpoint (min or max) of a sensor series over a range.
type ExtremeValue struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

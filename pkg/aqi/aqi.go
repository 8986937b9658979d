// Package aqi computes the EPA Air Quality Index from particulate readings
// and produces human-readable interpretations of sensor values.
package aqi

import (
	"fmt"
	"math"
)

// Level is a named AQI band.
type Level string

const (
	LevelGood                  Level = "good"
	LevelModerate              Level = "moderate"
	LevelUnhealthyForSensitive Level = "unhealthy_for_sensitive"
	LevelUnhealthy             Level = "unhealthy"
	LevelVeryUnhealthy         Level = "very_unhealthy"
	LevelHazardous             Level = "hazardous"
)

type breakpoint struct {
	lowConc, highConc float64
	lowAQI, highAQI   float64
}

// EPA PM2.5 24-hour breakpoints (µg/m³).
var pm25Breakpoints = []breakpoint{
	{0, 12, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 350.4, 301, 400},
	{350.5, 500.4, 401, 500},
}

// EPA PM10 24-hour breakpoints (µg/m³).
var pm10Breakpoints = []breakpoint{
	{0, 54, 0, 50},
	{55, 154, 51, 100},
	{155, 254, 101, 150},
	{255, 354, 151, 200},
	{355, 424, 201, 300},
	{425, 504, 301, 400},
	{505, 604, 401, 500},
}

func interpolate(value, ceiling float64, bps []breakpoint) float64 {
	for _, bp := range bps {
		if value >= bp.lowConc && value <= bp.highConc {
			return ((bp.highAQI-bp.lowAQI)/(bp.highConc-bp.lowConc))*(value-bp.lowConc) + bp.lowAQI
		}
	}
	if value > ceiling {
		return 500
	}
	return 0
}

// PM25AQI returns the unrounded AQI contribution of a PM2.5 concentration.
func PM25AQI(pm25 float64) float64 {
	return interpolate(pm25, 500.4, pm25Breakpoints)
}

// PM10AQI returns the unrounded AQI contribution of a PM10 concentration.
func PM10AQI(pm10 float64) float64 {
	return interpolate(pm10, 604, pm10Breakpoints)
}

// FromPM computes the combined AQI from PM2.5 and PM10 concentrations.
// The combined index is the worse of the two pollutant sub-indices,
// rounded to the nearest integer.
func FromPM(pm25, pm10 float64) int {
	return int(math.Round(math.Max(PM25AQI(pm25), PM10AQI(pm10))))
}

// LevelFor maps an AQI value to its named band.
func LevelFor(aqi int) Level {
	switch {
	case aqi <= 50:
		return LevelGood
	case aqi <= 100:
		return LevelModerate
	case aqi <= 150:
		return LevelUnhealthyForSensitive
	case aqi <= 200:
		return LevelUnhealthy
	case aqi <= 300:
		return LevelVeryUnhealthy
	default:
		return LevelHazardous
	}
}

// Explanation returns the health guidance text for an AQI band.
func Explanation(level Level) string {
	switch level {
	case LevelGood:
		return "AQI is good (0-50). Air quality is satisfactory, and air pollution poses little or no risk."
	case LevelModerate:
		return "AQI is moderate (51-100). Air quality is acceptable, but there may be a risk for some people, particularly those who are unusually sensitive to air pollution."
	case LevelUnhealthyForSensitive:
		return "AQI is unhealthy for sensitive groups (101-150). Members of sensitive groups may experience health effects, but the general public is less likely to be affected."
	case LevelUnhealthy:
		return "AQI is unhealthy (151-200). Everyone may begin to experience health effects; members of sensitive groups may experience more serious health effects."
	case LevelVeryUnhealthy:
		return "AQI is very unhealthy (201-300). Health alert: everyone may experience more serious health effects."
	default:
		return "AQI is hazardous (301-500). Health warning of emergency conditions: everyone is more likely to be affected."
	}
}

// InterpretSensor renders a one-line reading with guidance for the given
// sensor type. Unknown sensor types get a bare "value unit" line.
func InterpretSensor(sensorType string, value float64) string {
	switch sensorType {
	case "co2":
		switch {
		case value < 800:
			return fmt.Sprintf("CO2: %gppm. CO2 levels are good. The air quality is excellent.", value)
		case value < 1500:
			return fmt.Sprintf("CO2: %gppm. CO2 levels are moderate. Consider increasing ventilation.", value)
		case value < 2000:
			return fmt.Sprintf("CO2: %gppm. CO2 levels are high. Ventilation is needed.", value)
		default:
			return fmt.Sprintf("CO2: %gppm. CO2 levels are very high. Immediate ventilation is required.", value)
		}
	case "temperature":
		switch {
		case value < 18:
			return fmt.Sprintf("Temperature: %g°C. The temperature is low.", value)
		case value < 25:
			return fmt.Sprintf("Temperature: %g°C. The temperature is in a comfortable range.", value)
		case value < 30:
			return fmt.Sprintf("Temperature: %g°C. The temperature is high.", value)
		default:
			return fmt.Sprintf("Temperature: %g°C. The temperature is very high.", value)
		}
	case "humidity":
		switch {
		case value < 30:
			return fmt.Sprintf("Humidity: %g%%. The humidity is low, which might cause discomfort.", value)
		case value < 60:
			return fmt.Sprintf("Humidity: %g%%. The humidity level is comfortable.", value)
		case value < 70:
			return fmt.Sprintf("Humidity: %g%%. The humidity is high.", value)
		default:
			return fmt.Sprintf("Humidity: %g%%. The humidity is very high, which might cause discomfort.", value)
		}
	case "pm1_0":
		return interpretPM("PM1.0", value, 10, 25, 45)
	case "pm2_5":
		return interpretPM("PM2.5", value, 12, 35.4, 55.4)
	case "pm10_0":
		return interpretPM("PM10", value, 54, 154, 254)
	}
	return fmt.Sprintf("%s: %g", sensorType, value)
}

func interpretPM(name string, value, good, moderate, unhealthy float64) string {
	switch {
	case value < good:
		return fmt.Sprintf("%s: %gμg/m³. %s levels are good. The air quality is excellent.", name, value, name)
	case value < moderate:
		return fmt.Sprintf("%s: %gμg/m³. %s levels are moderate. Air quality is acceptable.", name, value, name)
	case value < unhealthy:
		return fmt.Sprintf("%s: %gμg/m³. %s levels are unhealthy for sensitive groups.", name, value, name)
	default:
		return fmt.Sprintf("%s: %gμg/m³. %s levels are unhealthy. Consider using an air purifier.", name, value, name)
	}
}

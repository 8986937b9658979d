package toolserver

// openAPIDocument describes the tool endpoints in OpenAPI 3 form. The tool
// registry reads this document to build the model-facing tool definitions,
// so every argument carries the description the model will see.
func openAPIDocument() map[string]any {
	paths := map[string]any{}
	schemas := map[string]any{}

	add := func(name, description, schemaName string, schema map[string]any) {
		post := map[string]any{
			"summary":     name,
			"description": description,
			"operationId": name,
			"responses": map[string]any{
				"200": map[string]any{
					"description": "Tool result",
					"content": map[string]any{
						"application/json": map[string]any{
							"schema": map[string]any{"type": "object"},
						},
					},
				},
			},
		}
		if schema != nil {
			post["requestBody"] = map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{"$ref": "#/components/schemas/" + schemaName},
					},
				},
			}
			schemas[schemaName] = schema
		}
		paths["/"+name] = map[string]any{"post": post}
	}

	add("get_latest_sensor_data",
		"Fetches the latest sensor data reading (temperature, humidity, CO2 and particulate matter).",
		"", nil)

	add("get_sensor_data_summary",
		"Calculates summary statistics (average, minimum, maximum) for sensor data within a specified time range. Timestamps must be ISO 8601 with timezone information.",
		"SensorDataSummaryRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start_time_iso": map[string]any{
					"type":        "string",
					"title":       "Start Time Iso",
					"description": "Start of the range as an ISO 8601 timestamp with timezone, e.g. '2023-10-27T10:00:00Z'.",
				},
				"end_time_iso": map[string]any{
					"type":        "string",
					"title":       "End Time Iso",
					"description": "End of the range as an ISO 8601 timestamp with timezone, e.g. '2023-10-27T12:00:00Z'.",
				},
			},
			"required": []string{"start_time_iso", "end_time_iso"},
		})

	add("get_sensor_data_in_range",
		"Fetches all sensor data readings recorded within a specified time range, oldest first. Timestamps must be ISO 8601 with timezone information.",
		"SensorDataInRangeRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start_time_iso": map[string]any{
					"type":        "string",
					"title":       "Start Time Iso",
					"description": "Start of the range as an ISO 8601 timestamp with timezone.",
				},
				"end_time_iso": map[string]any{
					"type":        "string",
					"title":       "End Time Iso",
					"description": "End of the range as an ISO 8601 timestamp with timezone.",
				},
			},
			"required": []string{"start_time_iso", "end_time_iso"},
		})

	add("get_extreme_sensor_value",
		"Finds the minimum and maximum recorded value, with timestamps, for one sensor type over a look-back period ending now.",
		"ExtremeSensorValueRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sensor_type": map[string]any{
					"type":        "string",
					"title":       "Sensor Type",
					"description": "Sensor field to inspect: temperature, humidity, co2, pm1_0, pm2_5 or pm10_0.",
				},
				"period_hours": map[string]any{
					"type":        "integer",
					"title":       "Period Hours",
					"description": "Look-back window in hours.",
					"default":     24,
				},
			},
			"required": []string{"sensor_type"},
		})

	add("get_recent_sensor_data",
		"Fetches all sensor data readings from the last N hours.",
		"RecentSensorDataRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"period_hours": map[string]any{
					"type":        "integer",
					"title":       "Period Hours",
					"description": "Look-back window in hours. Must be positive.",
				},
			},
			"required": []string{"period_hours"},
		})

	add("count_sensor_data_points",
		"Counts the number of sensor data readings recorded over a look-back period ending now.",
		"CountSensorDataPointsRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"period_hours": map[string]any{
					"type":        "integer",
					"title":       "Period Hours",
					"description": "Look-back window in hours.",
					"default":     24,
				},
			},
			"required": []string{},
		})

	add("convert_temperature",
		"Converts a temperature value between Celsius and Fahrenheit.",
		"ConvertTemperatureRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value": map[string]any{
					"type":        "number",
					"title":       "Value",
					"description": "Temperature value to convert.",
				},
				"from_unit": map[string]any{
					"type":        "string",
					"title":       "From Unit",
					"description": "Unit of the provided value: 'C' for Celsius or 'F' for Fahrenheit.",
				},
			},
			"required": []string{"value", "from_unit"},
		})

	add("get_system_info",
		"Returns a description of the sensor monitoring system, its sensors and its capabilities.",
		"", nil)

	add("report_issue",
		"Files an issue report (bug, feature request, sensor or data problem) on behalf of a user.",
		"ReportIssueRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reporter_username": map[string]any{
					"type":        "string",
					"title":       "Reporter Username",
					"description": "Username of the user filing the report.",
				},
				"title": map[string]any{
					"type":        "string",
					"title":       "Title",
					"description": "Short title for the issue.",
				},
				"description": map[string]any{
					"type":        "string",
					"title":       "Description",
					"description": "Detailed description of the issue.",
				},
				"issue_type": map[string]any{
					"type":        "string",
					"title":       "Issue Type",
					"description": "One of: bug, feature, sensor, data, other.",
					"default":     "other",
				},
				"reporter_email": map[string]any{
					"type":        "string",
					"title":       "Reporter Email",
					"description": "Contact email. Defaults to the account email when omitted.",
				},
			},
			"required": []string{"reporter_username", "title", "description"},
		})

	add("get_user_profile",
		"Retrieves a user's profile: name, email, notification preference and alert thresholds. Temperatures are in Celsius.",
		"UserProfileRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"username": map[string]any{
					"type":        "string",
					"title":       "Username",
					"description": "Username of the profile to fetch.",
				},
			},
			"required": []string{"username"},
		})

	add("update_user_profile",
		"Updates fields on a user's profile. Only the provided fields are changed; unchanged values are ignored.",
		"UpdateUserProfileRequest", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"username": map[string]any{
					"type":        "string",
					"title":       "Username",
					"description": "Username of the profile to update.",
				},
				"first_name": map[string]any{"type": "string", "title": "First Name"},
				"last_name":  map[string]any{"type": "string", "title": "Last Name"},
				"email":      map[string]any{"type": "string", "title": "Email"},
				"email_notifications": map[string]any{
					"type":        "boolean",
					"title":       "Email Notifications",
					"description": "Whether to send threshold alert emails.",
				},
				"temp_min":     map[string]any{"type": "number", "title": "Temp Min", "description": "Low temperature alert threshold in Celsius."},
				"temp_max":     map[string]any{"type": "number", "title": "Temp Max", "description": "High temperature alert threshold in Celsius."},
				"humidity_min": map[string]any{"type": "number", "title": "Humidity Min", "description": "Low humidity alert threshold in percent."},
				"humidity_max": map[string]any{"type": "number", "title": "Humidity Max", "description": "High humidity alert threshold in percent."},
				"co2_max":      map[string]any{"type": "number", "title": "Co2 Max", "description": "CO2 alert threshold in ppm."},
				"pm25_max":     map[string]any{"type": "number", "title": "Pm25 Max", "description": "PM2.5 alert threshold in μg/m³."},
				"pm10_max":     map[string]any{"type": "number", "title": "Pm10 Max", "description": "PM10 alert threshold in μg/m³."},
				"aqi_max":      map[string]any{"type": "number", "title": "Aqi Max", "description": "AQI alert threshold."},
			},
			"required": []string{"username"},
		})

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "AMI Sensor Tools",
			"version": "1.0.0",
		},
		"paths": paths,
		"components": map[string]any{
			"schemas": schemas,
		},
	}
}

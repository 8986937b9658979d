package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ami-sense/ami-engine/pkg/apperrors"
	"github.com/ami-sense/ami-engine/pkg/database"
	"github.com/ami-sense/ami-engine/pkg/models"
)

// SensorDataRepository defines the interface for sensor reading data access.
type SensorDataRepository interface {
	Insert(ctx context.Context, reading *models.SensorReading) error
	GetLatest(ctx context.Context) (*models.SensorReading, error)
	// GetRange returns readings with start <= timestamp <= end, oldest first.
	GetRange(ctx context.Context, start, end time.Time) ([]*models.SensorReading, error)
	GetStats(ctx context.Context, start, end time.Time) (*models.SensorStats, error)
	// GetExtremes returns the minimum and maximum records for one sensor
	// field in the range. Returns ErrNotFound when no rows match.
	GetExtremes(ctx context.Context, field models.SensorField, start, end time.Time) (min, max *models.ExtremeValue, err error)
	CountRange(ctx context.Context, start, end time.Time) (int, error)
	GetAverages(ctx context.Context) (*models.SensorAverages, error)
}

// sensorDataRepository implements SensorDataRepository using PostgreSQL.
type sensorDataRepository struct {
	db *database.DB
}

// NewSensorDataRepository creates a new sensor data repository.
func NewSensorDataRepository(db *database.DB) SensorDataRepository {
	return &sensorDataRepository{db: db}
}

const sensorColumns = `id, co2, humidity, temperature, pm1_0, pm2_5, pm10_0, timestamp`

func scanReading(row pgx.Row) (*models.SensorReading, error) {
	var r models.SensorReading
	err := row.Scan(
		&r.ID,
		&r.CO2,
		&r.Humidity,
		&r.Temperature,
		&r.PM1_0,
		&r.PM2_5,
		&r.PM10_0,
		&r.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Insert stores a new sensor reading.
func (r *sensorDataRepository) Insert(ctx context.Context, reading *models.SensorReading) error {
	query := `
		INSERT INTO sensor_data (co2, humidity, temperature, pm1_0, pm2_5, pm10_0, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		reading.CO2,
		reading.Humidity,
		reading.Temperature,
		reading.PM1_0,
		reading.PM2_5,
		reading.PM10_0,
		reading.Timestamp,
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("failed to insert sensor reading: %w", err)
	}

	return nil
}

// GetLatest returns the most recent reading by timestamp.
func (r *sensorDataRepository) GetLatest(ctx context.Context) (*models.SensorReading, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sensor_data
		ORDER BY timestamp DESC
		LIMIT 1`, sensorColumns)

	reading, err := scanReading(r.db.QueryRow(ctx, query))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest sensor reading: %w", err)
	}

	return reading, nil
}

// GetRange returns readings in the closed interval [start, end], oldest first.
func (r *sensorDataRepository) GetRange(ctx context.Context, start, end time.Time) ([]*models.SensorReading, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sensor_data
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp`, sensorColumns)

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	defer rows.Close()

	var readings []*models.SensorReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sensor readings: %w", err)
	}

	return readings, nil
}

// GetStats computes aggregate statistics over the range. The pointer fields
// stay nil when no rows match (SQL aggregates return NULL).
func (r *sensorDataRepository) GetStats(ctx context.Context, start, end time.Time) (*models.SensorStats, error) {
	query := `
		SELECT
			AVG(temperature), MIN(temperature), MAX(temperature),
			AVG(humidity), MIN(humidity), MAX(humidity),
			AVG(co2), MIN(co2), MAX(co2),
			AVG(pm2_5), MIN(pm2_5), MAX(pm2_5)
		FROM sensor_data
		WHERE timestamp >= $1 AND timestamp <= $2`

	var stats models.SensorStats
	err := r.db.QueryRow(ctx, query, start, end).Scan(
		&stats.AvgTemp, &stats.MinTemp, &stats.MaxTemp,
		&stats.AvgHumidity, &stats.MinHumidity, &stats.MaxHumidity,
		&stats.AvgCO2, &stats.MinCO2, &stats.MaxCO2,
		&stats.AvgPM25, &stats.MinPM25, &stats.MaxPM25,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor stats: %w", err)
	}

	return &stats, nil
}

// GetExtremes returns the min and max records for one sensor field.
// The field name is validated against the known column set before being
// interpolated into SQL.
func (r *sensorDataRepository) GetExtremes(ctx context.Context, field models.SensorField, start, end time.Time) (*models.ExtremeValue, *models.ExtremeValue, error) {
	if !models.IsValidSensorField(string(field)) {
		return nil, nil, fmt.Errorf("invalid sensor field: %s", field)
	}

	minQuery := fmt.Sprintf(`
		SELECT %s, timestamp FROM sensor_data
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY %s ASC, timestamp ASC
		LIMIT 1`, field, field)
	maxQuery := fmt.Sprintf(`
		SELECT %s, timestamp FROM sensor_data
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY %s DESC, timestamp ASC
		LIMIT 1`, field, field)

	var minVal models.ExtremeValue
	err := r.db.QueryRow(ctx, minQuery, start, end).Scan(&minVal.Value, &minVal.Timestamp)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get minimum %s: %w", field, err)
	}

	var maxVal models.ExtremeValue
	err = r.db.QueryRow(ctx, maxQuery, start, end).Scan(&maxVal.Value, &maxVal.Timestamp)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get maximum %s: %w", field, err)
	}

	return &minVal, &maxVal, nil
}

// CountRange counts readings in the closed interval [start, end].
func (r *sensorDataRepository) CountRange(ctx context.Context, start, end time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM sensor_data WHERE timestamp >= $1 AND timestamp <= $2`

	var count int
	if err := r.db.QueryRow(ctx, query, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sensor readings: %w", err)
	}

	return count, nil
}

// GetAverages computes mean values across the whole series.
func (r *sensorDataRepository) GetAverages(ctx context.Context) (*models.SensorAverages, error) {
	query := `
		SELECT AVG(temperature), AVG(humidity), AVG(co2), AVG(pm1_0), AVG(pm2_5), AVG(pm10_0)
		FROM sensor_data`

	var avg models.SensorAverages
	err := r.db.QueryRow(ctx, query).Scan(
		&avg.Temperature, &avg.Humidity, &avg.CO2,
		&avg.PM1_0, &avg.PM2_5, &avg.PM10_0,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor averages: %w", err)
	}

	return &avg, nil
}

// Ensure sensorDataRepository implements SensorDataRepository at compile time.
var _ SensorDataRepository = (*sensorDataRepository)(nil)

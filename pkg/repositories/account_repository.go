package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ami-sense/ami-engine/pkg/apperrors"
	"github.com/ami-sense/ami-engine/pkg/database"
	"github.com/ami-sense/ami-engine/pkg/models"
)

// profileColumns maps updatable profile fields to their SQL columns.
// Anything not listed here is rejected before reaching SQL.
var profileColumns = map[string]string{
	"first_name":          "first_name",
	"last_name":           "last_name",
	"email":               "email",
	"email_notifications": "email_notifications",
	"temp_min":            "temp_min",
	"temp_max":            "temp_max",
	"humidity_min":        "humidity_min",
	"humidity_max":        "humidity_max",
	"co2_max":             "co2_max",
	"pm25_max":            "pm25_max",
	"pm10_max":            "pm10_max",
	"aqi_max":             "aqi_max",
}

// IsUpdatableProfileField reports whether the named field may be changed
// through the profile update tool.
func IsUpdatableProfileField(name string) bool {
	_, ok := profileColumns[name]
	return ok
}

// AccountRepository defines the interface for user account data access.
type AccountRepository interface {
	GetProfile(ctx context.Context, username string) (*models.UserProfile, error)
	// UpdateProfileFields applies a partial update. Keys must pass
	// IsUpdatableProfileField; values must already be the right Go type.
	UpdateProfileFields(ctx context.Context, username string, fields map[string]any) error
	CreateIssue(ctx context.Context, issue *models.IssueReport) error
}

// accountRepository implements AccountRepository using PostgreSQL.
type accountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *database.DB) AccountRepository {
	return &accountRepository{db: db}
}

// GetProfile returns the account row for a username.
func (r *accountRepository) GetProfile(ctx context.Context, username string) (*models.UserProfile, error) {
	query := `
		SELECT id, username, first_name, last_name, email, api_key, email_notifications,
		       temp_min, temp_max, humidity_min, humidity_max,
		       co2_max, pm25_max, pm10_max, aqi_max, created_at
		FROM ami_users
		WHERE username = $1`

	var p models.UserProfile
	err := r.db.QueryRow(ctx, query, username).Scan(
		&p.ID,
		&p.Username,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.APIKey,
		&p.EmailNotifications,
		&p.Thresholds.TempMin,
		&p.Thresholds.TempMax,
		&p.Thresholds.HumidityMin,
		&p.Thresholds.HumidityMax,
		&p.Thresholds.CO2Max,
		&p.Thresholds.PM25Max,
		&p.Thresholds.PM10Max,
		&p.Thresholds.AQIMax,
		&p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile for %s: %w", username, err)
	}

	return &p, nil
}

// UpdateProfileFields applies a partial update to an account row.
func (r *accountRepository) UpdateProfileFields(ctx context.Context, username string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	i := 1
	for name, value := range fields {
		column, ok := profileColumns[name]
		if !ok {
			return fmt.Errorf("field %s is not updatable", name)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	args = append(args, username)

	query := fmt.Sprintf(`UPDATE ami_users SET %s WHERE username = $%d`,
		strings.Join(setClauses, ", "), i)

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile for %s: %w", username, err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// CreateIssue stores a new issue report and fills in its ID and timestamp.
func (r *accountRepository) CreateIssue(ctx context.Context, issue *models.IssueReport) error {
	issue.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO issue_reports (reporter_username, title, description, issue_type, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		issue.ReporterUsername,
		issue.Title,
		issue.Description,
		issue.IssueType,
		issue.Email,
		issue.CreatedAt,
	).Scan(&issue.ID)
	if err != nil {
		return fmt.Errorf("failed to create issue report: %w", err)
	}

	return nil
}

// Ensure accountRepository implements AccountRepository at compile time.
var _ AccountRepository = (*accountRepository)(nil)

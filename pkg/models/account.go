package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the account record the user-scoped tools act on: identity,
// contact details, per-user alert thresholds, and the model API credential.
type UserProfile struct {
	ID                 uuid.UUID `json:"-"`
	Username           string    `json:"username"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Email              string    `json:"email"`
	APIKey             string    `json:"-"` // Model credential, never serialized
	EmailNotifications bool      `json:"email_notifications"`
	Thresholds         AlertThresholds
	CreatedAt          time.Time `json:"-"`
}

// AlertThresholds are the per-user sensor alert bounds. Temperatures are in
// Celsius.
type AlertThresholds struct {
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	HumidityMin float64 `json:"humidity_min"`
	HumidityMax float64 `json:"humidity_max"`
	CO2Max      float64 `json:"co2_max"`
	PM25Max     float64 `json:"pm25_max"`
	PM10Max     float64 `json:"pm10_max"`
	AQIMax      float64 `json:"aqi_max"`
}

// IssueType classifies an issue report.
type IssueType string

const (
	IssueTypeBug     IssueType = "bug"
	IssueTypeFeature IssueType = "feature"
	IssueTypeSensor  IssueType = "sensor"
	IssueTypeData    IssueType = "data"
	IssueTypeOther   IssueType = "other"
)

// ValidIssueTypes lists the accepted issue classifications.
var ValidIssueTypes = []IssueType{
	IssueTypeBug, IssueTypeFeature, IssueTypeSensor, IssueTypeData, IssueTypeOther,
}

// IsValidIssueType reports whether t is an accepted issue classification.
func IsValidIssueType(t string) bool {
	for _, v := range ValidIssueTypes {
		if string(v) == t {
			return true
		}
	}
	return false
}

// IssueReport is a user-filed issue or piece of feedback.
type IssueReport struct {
	ID               uuid.UUID `json:"id"`
	ReporterUsername string    `json:"reporter_username"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	IssueType        IssueType `json:"issue_type"`
	Email            string    `json:"email"`
	CreatedAt        time.Time `json:"created_at"`
}

// QAPair is an operator-curated question/answer entry used by the
// rule-based chatbot before falling back to the built-in FAQ.
type QAPair struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

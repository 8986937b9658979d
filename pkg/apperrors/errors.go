package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrMissingAPIKey    = errors.New("no API key configured in profile")
	ErrEmptyMessage     = errors.New("no message provided")
	ErrInvalidIssueType = errors.New("invalid issue type")
)

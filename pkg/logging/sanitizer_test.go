package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeConnectionString(t *testing.T) {
	assert.Equal(t,
		"host=db port=5432 user=ami password=[REDACTED] dbname=ami_engine",
		SanitizeConnectionString("host=db port=5432 user=ami password=hunter2 dbname=ami_engine"))

	assert.Equal(t,
		"postgres://[REDACTED]@[REDACTED]/ami_engine",
		SanitizeConnectionString("postgres://ami:hunter2@db:5432/ami_engine"))

	assert.Empty(t, SanitizeConnectionString(""))
}

func TestSanitizeError(t *testing.T) {
	err := errors.New("401 unauthorized: invalid key sk-abcdef1234567890")
	assert.NotContains(t, SanitizeError(err), "sk-abcdef1234567890")

	err = errors.New("request with Bearer eyJhbGc.eyJzdWI.sig rejected")
	assert.Contains(t, SanitizeError(err), "Bearer [REDACTED]")

	assert.Empty(t, SanitizeError(nil))
}

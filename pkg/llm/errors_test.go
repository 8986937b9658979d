package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"unauthorized", errors.New("401 Unauthorized"), ErrorTypeAuth, false},
		{"invalid api key", errors.New("error: Invalid API Key provided"), ErrorTypeAuth, false},
		{"rate limited", errors.New("429 rate limit exceeded"), ErrorTypeRateLimit, true},
		{"model missing", errors.New("model deepseek-chat-v9 not found"), ErrorTypeModel, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connection refused"), ErrorTypeConnection, true},
		{"timeout", errors.New("context deadline exceeded"), ErrorTypeConnection, true},
		{"bad gateway", errors.New("unexpected status 502"), ErrorTypeConnection, true},
		{"anything else", errors.New("something odd happened"), ErrorTypeUnknown, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			classified := ClassifyError(tc.err)
			require.NotNil(t, classified)
			assert.Equal(t, tc.wantType, classified.Type)
			assert.Equal(t, tc.retryable, classified.Retryable)
			assert.ErrorIs(t, classified, tc.err)
		})
	}
}

func TestClassifyErrorNil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyErrorPassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeRateLimit, "slow down", true, nil)
	wrapped := fmt.Errorf("chat failed: %w", orig)

	assert.Same(t, orig, ClassifyError(wrapped))
	assert.Equal(t, ErrorTypeRateLimit, GetErrorType(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestClassifyErrorStatusCode(t *testing.T) {
	classified := ClassifyError(errors.New("401 unauthorized"))
	assert.Equal(t, 401, classified.StatusCode)
}

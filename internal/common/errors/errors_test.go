package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	plain := stderrors.New("connection reset")
	n := Normalize(plain)
	require.NotNil(t, n)
	assert.Equal(t, ErrCodeInternal, n.Code)
	assert.Equal(t, "connection reset", n.Details)
	assert.ErrorIs(t, n, plain)

	q := NewQueryFailedError("reminders", plain)
	wrapped := fmt.Errorf("sweep: %w", q)
	assert.Same(t, q, Normalize(wrapped))
	assert.Equal(t, ErrCodeQueryFailed, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestStandardError_Error(t *testing.T) {
	e := NewUnhandledStatusError(2)
	assert.Equal(t, "StandardError[UNHANDLED_STATUS]: Appointment status is not one of the handled values: status: 2", e.Error())

	e = &StandardError{Code: ErrCodeInternal, Message: "Unexpected error"}
	assert.Equal(t, "StandardError[INTERNAL_ERROR]: Unexpected error", e.Error())
}

func TestRetryPolicy(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retries   int
		category  string
		retryable bool
	}{
		{ErrCodeQueryFailed, 3, "RECORD_STORE", true},
		{ErrCodeDatabaseConnectionFailed, 3, "RECORD_STORE", true},
		{ErrCodeTimeout, 2, "OTHER", true},
		{ErrCodeScheduleLockFailed, 2, "SCHEDULE", true},
		{ErrCodeDeliveryFailed, 0, "DELIVERY", false},
		{ErrCodeMissingDestinationToken, 0, "DELIVERY", false},
		{ErrCodeCleanupFailed, 0, "RECORD_STORE", false},
		{ErrCodePayloadInvalid, 0, "EVENT", false},
		{ErrCodeUnhandledStatus, 0, "EVENT", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retries, GetRetryCount(tt.code))
			assert.Equal(t, tt.retryable, IsRetryableErrorCode(tt.code))
			assert.Equal(t, tt.category, GetErrorCategory(tt.code))
		})
	}
}

func TestRemainingRetries(t *testing.T) {
	queryErr := NewQueryFailedError("reminders", stderrors.New("down"))

	assert.Equal(t, int32(3), RemainingRetries(queryErr, 10))
	assert.Equal(t, int32(1), RemainingRetries(queryErr, 2))
	assert.Equal(t, int32(0), RemainingRetries(queryErr, 1))
	assert.Equal(t, int32(0), RemainingRetries(NewDeliveryFailedError(stderrors.New("x")), 5))
}

func TestErrorVariables(t *testing.T) {
	e := NewCleanupFailedError("o1", stderrors.New("permission denied"))
	vars := errorVariables(e)
	assert.Contains(t, vars, `"errorCode":"CLEANUP_FAILED"`)
	assert.Contains(t, vars, `"recordId":"o1"`)
}

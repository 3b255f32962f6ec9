package errutil_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tunishield/internal/errutil"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{errutil.CodeBadRequest, http.StatusBadRequest},
		{errutil.CodeValidation, http.StatusBadRequest},
		{errutil.CodeNotFound, http.StatusNotFound},
		{errutil.CodeConflict, http.StatusConflict},
		{errutil.CodeUnauthenticated, http.StatusUnauthorized},
		{errutil.CodeTooManyAttempts, http.StatusTooManyRequests},
		{errutil.CodeExpired, http.StatusBadRequest},
		{errutil.CodeInvalidCode, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := errutil.New(tt.code, "message")
			errutil.AssertErrorCode(t, err, tt.code)
			assert.Equal(t, tt.status, errutil.HTTPStatus(err))
			assert.Equal(t, "message", errutil.PublicMessage(err))
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	err := errutil.Internal(errors.New("pq: connection refused"), "find user")

	errutil.AssertErrorCode(t, err, errutil.CodeInternal)
	assert.Equal(t, http.StatusInternalServerError, errutil.HTTPStatus(err))
	assert.Equal(t, "Internal server error", errutil.PublicMessage(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, errutil.CodeInternal, errutil.Code(err))
	assert.Equal(t, "Internal server error", errutil.PublicMessage(err))
	assert.False(t, errutil.Is(nil, errutil.CodeInternal))
}

func TestValidationFields(t *testing.T) {
	err := errutil.Validation(map[string]string{"name": "Name is required"})

	assert.True(t, errutil.Is(err, errutil.CodeValidation))
	assert.Equal(t, map[string]string{"name": "Name is required"}, errutil.Fields(err))
	assert.Nil(t, errutil.Fields(errors.New("plain")))
}

func TestLogError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	errutil.LogError(logger, "verify failed", errutil.Internal(errors.New("timeout"), "increment attempts"))
	errutil.LogError(logger, "plain failure", errors.New("standard"))

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "verify failed", entries[0].Message)
		assert.Equal(t, errutil.CodeInternal, entries[0].ContextMap()["code"])
		assert.Equal(t, "plain failure", entries[1].Message)
	}
}

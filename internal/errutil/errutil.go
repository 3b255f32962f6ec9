// Package errutil defines the coded error taxonomy shared by services and the
// HTTP layer. Errors are samber/oops errors carrying one of the codes below
// and a public message that is safe to show to clients.
package errutil

import (
	"net/http"

	"github.com/samber/oops"
	"go.uber.org/zap"
)

const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeTooManyAttempts  = "TOO_MANY_ATTEMPTS"
	CodeExpired          = "EXPIRED"
	CodeInvalidCode      = "INVALID_CODE"
	CodeInternal         = "INTERNAL"
	internalPublicString = "Internal server error"
)

var statusByCode = map[string]int{
	CodeBadRequest:      http.StatusBadRequest,
	CodeValidation:      http.StatusBadRequest,
	CodeNotFound:        http.StatusNotFound,
	CodeConflict:        http.StatusConflict,
	CodeUnauthenticated: http.StatusUnauthorized,
	CodeTooManyAttempts: http.StatusTooManyRequests,
	CodeExpired:         http.StatusBadRequest,
	CodeInvalidCode:     http.StatusBadRequest,
	CodeInternal:        http.StatusInternalServerError,
}

// New returns a coded error whose message is also its public message.
func New(code, public string) error {
	return oops.Code(code).Public(public).Errorf("%s", public)
}

// Validation returns a VALIDATION_FAILED error with per-field messages.
func Validation(fields map[string]string) error {
	return oops.Code(CodeValidation).
		Public("Validation failed").
		With("fields", fields).
		Errorf("validation failed")
}

// Internal wraps an infrastructure failure. The operation is recorded in the
// error context for logs; clients only ever see a generic message.
func Internal(err error, operation string) error {
	return oops.Code(CodeInternal).
		Public(internalPublicString).
		With("operation", operation).
		Wrap(err)
}

// Code extracts the error code, defaulting to INTERNAL for foreign errors.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok && code != "" {
			return code
		}
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

// HTTPStatus maps an error onto the response status it should produce.
func HTTPStatus(err error) int {
	if status, ok := statusByCode[Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-facing message for err. Internal errors
// never leak their cause.
func PublicMessage(err error) string {
	code := Code(err)
	if code == CodeInternal {
		return internalPublicString
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg := oopsErr.Public(); msg != "" {
			return msg
		}
	}
	return internalPublicString
}

// Fields returns the per-field messages of a validation error.
func Fields(err error) map[string]string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	fields, _ := oopsErr.Context()["fields"].(map[string]string)
	return fields
}

// LogError logs err with its code and context when it is an oops error.
func LogError(logger *zap.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		fields := []zap.Field{zap.String("error", oopsErr.Error())}
		if code := oopsErr.Code(); code != nil {
			fields = append(fields, zap.Any("code", code))
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, zap.Any("context", ctx))
		}
		logger.Error(msg, fields...)
		return
	}
	logger.Error(msg, zap.Error(err))
}

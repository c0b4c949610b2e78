package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		contains string
	}{
		{"not found", 404, `{"error":{"code":"NOT_FOUND","message":"order"}}`, apperrors.ErrNotFound, ""},
		{"bad request", 400, `{"error":{"code":"INVALID_INPUT","message":"bad id"}}`, apperrors.ErrInvalidInput, "order-service: bad id"},
		{"unauthorized", 401, `{"error":{"code":"UNAUTHORIZED","message":"no"}}`, apperrors.ErrUnauthorized, ""},
		{"forbidden", 403, `{"error":{"code":"FORBIDDEN","message":"no"}}`, apperrors.ErrForbidden, ""},
		{"unavailable", 503, `{"error":{"code":"DOWN","message":"maintenance"}}`, apperrors.ErrServiceUnavail, ""},
		{"unstructured", 502, `bad gateway`, nil, "status 502: bad gateway"},
		{"server error", 500, `{"error":{"code":"INTERNAL_ERROR","message":"oops"}}`, nil, "server error (500/INTERNAL_ERROR)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(response(tt.status, tt.body), "order-service")
			assert.Error(t, err)
			if tt.sentinel != nil {
				assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestParseResponseError_OtherStatusKeepsCode(t *testing.T) {
	err := ParseResponseError(response(http.StatusTooManyRequests, `{"error":{"code":"RATE_LIMITED","message":"slow down"}}`), "order-service")

	var appErr *apperrors.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "RATE_LIMITED", appErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
}

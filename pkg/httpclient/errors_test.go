package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseResponseError_Structured(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"not found", http.StatusNotFound, `{"success":false,"message":"review with id 9 not found","code":"NOT_FOUND"}`, apperrors.ErrNotFound},
		{"duplicate", http.StatusBadRequest, `{"success":false,"message":"You have already submitted a review","code":"DUPLICATE"}`, apperrors.ErrDuplicate},
		{"invalid status", http.StatusBadRequest, `{"success":false,"message":"bad","code":"INVALID_STATUS"}`, apperrors.ErrInvalidStatus},
		{"validation", http.StatusBadRequest, `{"success":false,"message":"request validation failed","code":"VALIDATION_ERROR"}`, apperrors.ErrInvalidInput},
		{"unauthorized", http.StatusUnauthorized, `{"success":false,"message":"token expired","code":"UNAUTHORIZED"}`, apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"success":false,"message":"admin only","code":"FORBIDDEN"}`, apperrors.ErrForbidden},
		{"conflict", http.StatusConflict, `{"success":false,"message":"email taken","code":"ALREADY_EXISTS"}`, apperrors.ErrAlreadyExists},
		{"unavailable", http.StatusServiceUnavailable, `{"success":false,"message":"maintenance","code":"SERVICE_UNAVAILABLE"}`, apperrors.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(response(tt.status, tt.body), "review-api")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			assert.Equal(t, tt.status, apperrors.HTTPStatus(err))
		})
	}
}

func TestParseResponseError_KeepsMessage(t *testing.T) {
	err := ParseResponseError(response(http.StatusBadRequest,
		`{"success":false,"message":"You have already submitted a review","code":"DUPLICATE"}`), "review-api")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "You have already submitted a review", appErr.Message)
	assert.Equal(t, "DUPLICATE", appErr.Code)
}

func TestParseResponseError_ServerError(t *testing.T) {
	err := ParseResponseError(response(http.StatusInternalServerError,
		`{"success":false,"message":"an internal error occurred","code":"INTERNAL_ERROR"}`), "review-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review-api server error (500/INTERNAL_ERROR)")
}

func TestParseResponseError_Unstructured(t *testing.T) {
	for _, body := range []string{"", "<html>Bad Gateway</html>", `{"success":true}`, `{"error":"x"}`} {
		err := ParseResponseError(response(http.StatusBadGateway, body), "review-api")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "review-api returned status 502")
	}
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(500))
	assert.False(t, IsClientError(399))
}

package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
)

// errorEnvelope is the failure shape written by httputil.WriteError.
type errorEnvelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// translates it into an AppError. Structured failure envelopes keep their
// code and message; anything else yields a generic error carrying the status.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", serviceName, resp.StatusCode, err)
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Success != nil && !*env.Success && env.Message != "" {
		return mapStatus(resp.StatusCode, env.Code, env.Message, serviceName)
	}
	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
}

func mapStatus(status int, code, message, serviceName string) error {
	switch {
	case status >= 500 && status != http.StatusServiceUnavailable:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	case status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(fmt.Sprintf("%s: %s", serviceName, message), nil)
	}

	if code == "" {
		code = http.StatusText(status)
	}
	var sentinel error
	switch status {
	case http.StatusNotFound:
		sentinel = apperrors.ErrNotFound
	case http.StatusConflict:
		sentinel = apperrors.ErrAlreadyExists
	case http.StatusUnauthorized:
		sentinel = apperrors.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = apperrors.ErrForbidden
	case http.StatusBadRequest:
		switch code {
		case "DUPLICATE":
			sentinel = apperrors.ErrDuplicate
		case "INVALID_STATUS":
			sentinel = apperrors.ErrInvalidStatus
		default:
			sentinel = apperrors.ErrInvalidInput
		}
	}
	return &apperrors.AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/khoitriso/review-service/pkg/errors"
)

// maxErrorBodySize bounds how much of an error response body is read.
const maxErrorBodySize = 64 * 1024

type remoteError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError converts a non-2xx downstream response into an
// AppError, preserving the remote error code and message when the body
// carries the standard envelope.
func ParseResponseError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("read error response (status %d)", resp.StatusCode))
	}

	var remote remoteError
	if err := json.Unmarshal(body, &remote); err != nil || remote.Error.Code == "" {
		code := codeForStatus(resp.StatusCode)
		return &errors.AppError{
			Code:    code,
			Message: fmt.Sprintf("upstream returned status %d", resp.StatusCode),
			Status:  resp.StatusCode,
			Err:     sentinelForCode(code),
		}
	}

	return &errors.AppError{
		Code:    remote.Error.Code,
		Message: remote.Error.Message,
		Status:  resp.StatusCode,
		Err:     sentinelForCode(remote.Error.Code),
	}
}

// sentinelForCode maps remote error codes onto the local sentinels so
// callers can use errors.Is across service boundaries.
func sentinelForCode(code string) error {
	switch code {
	case "NOT_FOUND":
		return errors.ErrNotFound
	case "ALREADY_EXISTS":
		return errors.ErrAlreadyExists
	case "INVALID_INPUT", "VALIDATION_ERROR":
		return errors.ErrInvalidInput
	case "UNAUTHORIZED":
		return errors.ErrUnauthorized
	case "FORBIDDEN":
		return errors.ErrForbidden
	case "CONFLICT":
		return errors.ErrConflict
	case "SERVICE_UNAVAILABLE":
		return errors.ErrServiceUnavail
	default:
		return nil
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

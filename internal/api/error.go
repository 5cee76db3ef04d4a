// AngelaMos | 2026
// error.go

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrUnauthorized marks any 401/403 from the identity service.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials marks a rejected login attempt. Recoverable;
	// the wrapped message is safe to show to the user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput marks a request rejected before or at the wire.
	ErrInvalidInput = errors.New("invalid input")
)

// Error is the typed failure returned by the identity service.
type Error struct {
	Status  int
	Code    string
	Message string

	sentinel error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity service: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("identity service: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.sentinel
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeError maps a non-2xx response onto the error taxonomy. The body
// is drained so the transport can reuse the connection.
func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.sentinel = ErrUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		apiErr.sentinel = ErrInvalidInput
	}

	return apiErr
}

// UserMessage extracts a displayable message from a client error, falling
// back to a generic line for failures that carry nothing presentable.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "something went wrong, please try again"
}

package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is a structured error returned by the remote service in a non-200
// response body. It is distinct from transport or decode failures, which are
// reported as plain wrapped errors.
type APIError struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Param      string `json:"param,omitempty"`
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("chat: %s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("chat: %s: %s", e.Type, e.Message)
}

// apiErrorEnvelope is the wire shape of an error response body.
type apiErrorEnvelope struct {
	Error APIError `json:"error"`
}

// parseError turns a non-200 HTTP response into an *APIError when the body
// carries the structured error envelope, or a generic error otherwise.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return fmt.Errorf("chat: server returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	apiErr := envelope.Error
	apiErr.StatusCode = resp.StatusCode
	return &apiErr
}

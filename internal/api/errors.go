// internal/api/errors.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// serverMessage pulls a human readable message out of the response body,
// which is either a JSON object with message/error or plain text.
func (e *APIError) serverMessage() string {
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Error
	}
	if len(e.Body) > 0 && len(e.Body) <= 200 && e.Body[0] != '<' {
		return e.Body
	}
	return ""
}

// UserMessage is the text shown to a player for this error.
func (e *APIError) UserMessage() string {
	msg := e.serverMessage()
	switch {
	case e.Status == http.StatusBadRequest:
		if msg != "" {
			return msg
		}
		return "The request was not valid."
	case e.Status == http.StatusUnauthorized:
		return "Please log in again."
	case e.Status == http.StatusForbidden:
		if msg != "" {
			return msg
		}
		return "You are not allowed to do that."
	case e.Status == http.StatusNotFound:
		return "Not found."
	case e.Status == http.StatusConflict:
		if msg != "" {
			return msg
		}
		return "That conflicts with the current state, refresh and try again."
	case e.Status >= 500:
		return "The server had a problem, try again later."
	}
	if msg != "" {
		return msg
	}
	return fmt.Sprintf("Request failed (%d).", e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// UserMessage renders any error for a player: API errors through their
// status mapping, everything else as a connectivity problem.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return "Could not reach the server: " + err.Error()
}

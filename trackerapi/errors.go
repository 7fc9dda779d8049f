package trackerapi

import (
	"fmt"
	"net/http"
	"strings"
)

// StatusError is returned for any non-2xx response. Its message starts with
// "HTTP <code>" so callers can map it onto user-facing text.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, body)
}

// RejectedError is returned when the backend answers 2xx but reports success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "request rejected by server"
	}
	return e.Message
}

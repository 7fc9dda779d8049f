package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the tracker stores
var (
	// Sign-in errors, the user must retry sign-in
	ErrAuth           = errors.New("authentication failed")
	ErrSessionExpired = errors.New("session expired")

	// Read errors degrade to defaults and are never fatal
	ErrLoad = errors.New("load failed")

	// Write errors are surfaced to the caller and never retried automatically
	ErrWrite        = errors.New("write failed")
	ErrInvalidInput = errors.New("invalid input")

	// Transport errors
	ErrNetwork     = errors.New("network error")
	ErrRateLimited = errors.New("rate limited")
)

// Friendly messages shown to the user
const (
	MsgConnection   = "Unable to connect to server. Please check your internet connection."
	MsgRateLimited  = "Rate limit exceeded. Please wait a moment and try again."
	MsgBadRequest   = "Invalid request. Please check the student email and syllabus selection."
	MsgServerError  = "Server error. Please try again later."
	MsgUpdateFailed = "Failed to update progress. Please try again."
)

var networkMarkers = []string{
	"NetworkError",
	"Failed to fetch",
	"connection refused",
	"no such host",
	"network is unreachable",
	ErrNetwork.Error(),
}

// FriendlyMessage maps an error onto the message shown to the user. The mapping
// inspects the error text so that wrapped transport errors from any layer match.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range networkMarkers {
		if strings.Contains(msg, marker) {
			return MsgConnection
		}
	}
	switch {
	case strings.Contains(msg, "HTTP 429"):
		return MsgRateLimited
	case strings.Contains(msg, "HTTP 400"):
		return MsgBadRequest
	case strings.Contains(msg, "HTTP 500"):
		return MsgServerError
	}
	return msg
}

// Friendly returns an error whose message is FriendlyMessage(err) and which still matches
// err and every kind through Is and As.
func Friendly(err error, kinds ...error) error {
	if err == nil {
		return nil
	}
	return &friendlyError{msg: FriendlyMessage(err), errs: append([]error{err}, kinds...)}
}

type friendlyError struct {
	msg  string
	errs []error
}

func (e *friendlyError) Error() string   { return e.msg }
func (e *friendlyError) Unwrap() []error { return e.errs }

// Mark joins a taxonomy sentinel onto err so both errors.Is(err, kind) and the
// original chain keep working.
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

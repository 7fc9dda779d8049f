package trackerapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RoundTripperFunc adapts a function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Middleware decorates an outgoing transport
type Middleware func(http.RoundTripper) http.RoundTripper

// ChainMiddleware wraps base so that mw[0] sees the request first.
func ChainMiddleware(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	chained := base
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with a fresh correlation id unless one is set.
func RequestIDMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) == "" {
				r = r.Clone(r.Context())
				r.Header.Set(RequestIDHeader, uuid.New().String())
			}
			return next.RoundTrip(r)
		})
	}
}

// LoggingMiddleware logs method, path, status and latency at debug level.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			event := logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", r.Header.Get(RequestIDHeader)).
				Dur("latency", time.Since(start))
			if err != nil {
				event.Err(err).Msg("tracker api request failed")
				return resp, err
			}
			event.Int("status", resp.StatusCode).Msg("tracker api request")
			return resp, nil
		})
	}
}

// Package httpx holds the response helpers and middleware of the diagnostic
// HTTP endpoints (metrics and health).
//
// Overview:
//   - Responsibility: JSON responses, coded error responses, security headers
//   - Key Types: ErrorResponse, SecurityHeaders
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: WriteError maps error codes to HTTP status
//   - Performance Notes: Headers are set before the wrapped handler runs
//
// Usage:
//
//	h := httpx.SecureMiddleware(httpx.DefaultSecurityHeaders())(provider.Handler())
package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.eggybyte.com/logdecor/core/errors"
)

// ErrorResponse is the JSON body of an error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.CodeInvalidArgument:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with the status derived from its code.
func WriteError(w http.ResponseWriter, err error) error {
	status := StatusFor(err)
	return WriteJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    string(errors.CodeOf(err)),
		Message: err.Error(),
	})
}

// NotFoundHandler replies 404 with a JSON body.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   http.StatusText(http.StatusNotFound),
			Message: fmt.Sprintf("path %s not found", r.URL.Path),
		})
	}
}

// SecurityHeaders selects the headers SecureMiddleware sets.
type SecurityHeaders struct {
	ContentTypeOptions    bool // X-Content-Type-Options: nosniff
	FrameOptions          bool // X-Frame-Options: DENY
	ReferrerPolicy        bool // Referrer-Policy: no-referrer
	StrictTransportSec    bool
	HSTSMaxAge            int
	ContentSecurityPolicy string
}

// DefaultSecurityHeaders enables nosniff, DENY and no-referrer. HSTS stays off;
// it belongs at the ingress.
func DefaultSecurityHeaders() SecurityHeaders {
	return SecurityHeaders{
		ContentTypeOptions: true,
		FrameOptions:       true,
		ReferrerPolicy:     true,
		HSTSMaxAge:         31536000,
	}
}

func (s SecurityHeaders) apply(h http.Header) {
	if s.ContentTypeOptions {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if s.FrameOptions {
		h.Set("X-Frame-Options", "DENY")
	}
	if s.ReferrerPolicy {
		h.Set("Referrer-Policy", "no-referrer")
	}
	if s.StrictTransportSec {
		h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", s.HSTSMaxAge))
	}
	if s.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", s.ContentSecurityPolicy)
	}
}

// SecureMiddleware sets headers on every response.
func SecureMiddleware(headers SecurityHeaders) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers.apply(w.Header())
			next.ServeHTTP(w, r)
		})
	}
}

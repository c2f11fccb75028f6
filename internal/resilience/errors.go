// Package resilience classifies failures so callers can tell a flaky fetch
// from a permanent one. Nothing here retries.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// statusCoder is implemented by errors that record an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// IsTransient returns true if any error in the chain carries a transient HTTP
// status, or if it matches common transient network patterns (timeouts,
// connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Errors that carry the HTTP status they failed with.
	var sc statusCoder
	if errors.As(err, &sc) && IsTransientHTTPStatus(sc.HTTPStatus()) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Check for network-level transient errors.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Connection reset / refused / DNS.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

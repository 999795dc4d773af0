package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType classifies a provider call failure. The classification decides
// retry behavior and is surfaced verbatim in error stream events.
type ErrorType string

const (
	ErrorConfig    ErrorType = "config"
	ErrorNetwork   ErrorType = "network"
	ErrorRateLimit ErrorType = "rate_limit"
	ErrorTimeout   ErrorType = "timeout"
	ErrorUnknown   ErrorType = "unknown"
)

// Retryable reports whether calls failing with this type may be retried.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorNetwork, ErrorRateLimit, ErrorTimeout:
		return true
	}
	return false
}

// CallError is the classified failure returned by every Caller.
type CallError struct {
	Type     ErrorType
	Provider string
	Model    string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call failed (%s, model %s): %v", e.Provider, e.Type, e.Model, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// TypeOf extracts the classified type from an error chain, defaulting to
// unknown.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorUnknown
}

// classifyStatus maps an HTTP status code from a provider API to an error
// type.
func classifyStatus(code int) ErrorType {
	switch {
	case code == 401 || code == 403:
		return ErrorConfig
	case code == 429:
		return ErrorRateLimit
	case code == 408 || code == 504:
		return ErrorTimeout
	case code >= 500:
		return ErrorNetwork
	default:
		return ErrorUnknown
	}
}

// classifyTransport classifies errors that never reached an HTTP response.
// Message sniffing is kept only as a last-resort shim for providers that
// return unstructured text errors.
func classifyTransport(err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTimeout
		}
		return ErrorNetwork
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return ErrorRateLimit
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return ErrorNetwork
	}
	return ErrorUnknown
}

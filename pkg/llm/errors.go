package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a completion-service failure.
type ErrorKind string

const (
	// KindUnavailable marks transient failures: timeouts, rate limits,
	// connection errors, 5xx. Retryable with backoff.
	KindUnavailable ErrorKind = "service_unavailable"
	// KindRejected marks permanent failures: auth errors, content policy
	// refusals, invalid model. Not retryable.
	KindRejected ErrorKind = "service_rejected"
	// KindUnknown is anything unclassified. Treated as permanent.
	KindUnknown ErrorKind = "unknown"
)

// Error is a structured completion-service error with classification.
type Error struct {
	Kind       ErrorKind
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Kind))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface so the retry
// package can check retryability without importing llm.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured completion-service error.
func NewError(kind ErrorKind, message string, retryable bool, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ClassifyError categorizes an error from a completion provider into a
// structured Error. Providers surface failures as wrapped HTTP errors, so
// classification falls back to status codes and message patterns.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504, 529} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	// Connection errors (retryable). Checked before the message-pattern
	// rejections: "connection refused" must never read as a refusal.
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection reset") || strings.Contains(lower, "broken pipe") {
		e := NewError(KindUnavailable, "connection failed", true, err)
		e.StatusCode = statusCode
		return e
	}

	// Timeout and deadline exceeded (retryable)
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "context canceled") {
		e := NewError(KindUnavailable, "request timeout", true, err)
		e.StatusCode = statusCode
		return e
	}

	// Authentication errors (not retryable)
	if statusCode == 401 || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication") {
		e := NewError(KindRejected, "authentication failed", false, err)
		e.StatusCode = statusCode
		return e
	}

	// Content policy / request refusals (not retryable)
	if statusCode == 403 || strings.Contains(lower, "content policy") ||
		strings.Contains(lower, "content filter") || strings.Contains(lower, "refusal") ||
		strings.Contains(lower, "request refused") {
		e := NewError(KindRejected, "request rejected", false, err)
		e.StatusCode = statusCode
		return e
	}

	// Model or endpoint not found (not retryable without config change)
	if statusCode == 404 || (strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist"))) {
		e := NewError(KindRejected, "model or endpoint not found", false, err)
		e.StatusCode = statusCode
		return e
	}

	// Rate limiting and overload (retryable after backoff)
	if statusCode == 429 || statusCode == 529 || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "overloaded") {
		e := NewError(KindUnavailable, "rate limited", true, err)
		e.StatusCode = statusCode
		return e
	}

	// 5xx server errors (retryable)
	if statusCode >= 500 {
		e := NewError(KindUnavailable, "server error", true, err)
		e.StatusCode = statusCode
		return e
	}

	e := NewError(KindUnknown, "completion error", false, err)
	e.StatusCode = statusCode
	return e
}

// IsRetryable returns true if the error is a retryable completion failure.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetKind extracts the ErrorKind from an error.
func GetKind(err error) ErrorKind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return KindUnknown
}

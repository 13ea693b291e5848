package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrorType classifies a failed request for audit storage
type ErrorType string

const (
	// ErrorTypeBlocked represents a rate-limit or anti-bot response
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeHTTP represents a non-2xx, non-429 status (e.g. not found)
	ErrorTypeHTTP ErrorType = "http_error"
	// ErrorTypeTimeout represents a deadline, transport or parse failure
	ErrorTypeTimeout ErrorType = "timeout"
)

// FetchError represents a request that failed after retries were exhausted
type FetchError struct {
	Type       ErrorType
	URL        string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s: status %d: %s", e.Type, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.URL, e.Message)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt makes sense. Blocked
// responses are handled through the domain cooldown instead of the
// retry loop, and a 404 will not become a 200 on retry.
func (e *FetchError) Retryable() bool {
	switch e.Type {
	case ErrorTypeTimeout:
		return true
	case ErrorTypeHTTP:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// Classify builds a FetchError from a failure signal. Status 429 and
// 430 mean the site is throttling us; any other non-2xx status is an
// http_error; everything without a status (network failure, context
// deadline, handler panic) counts as timeout.
func Classify(url string, statusCode int, err error) *FetchError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	fe := &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Message:    msg,
		Err:        err,
		Time:       time.Now(),
	}

	switch {
	case statusCode == http.StatusTooManyRequests || statusCode == 430:
		fe.Type = ErrorTypeBlocked
	case statusCode >= 400:
		fe.Type = ErrorTypeHTTP
	default:
		fe.Type = ErrorTypeTimeout
	}

	return fe
}

// IsTimeout reports whether err looks like a network timeout or a
// cancelled/expired context.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// AsFetchError extracts a FetchError from an error chain, classifying
// the error fresh when it carries no classification yet.
func AsFetchError(url string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return Classify(url, 0, err)
}

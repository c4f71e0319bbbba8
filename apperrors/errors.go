package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names a class of failure that callers see in the "error" field of a
// response body.
type Kind string

const (
	KindMissingParameter      Kind = "missing_parameter"
	KindUnsupportedURL        Kind = "unsupported_url"
	KindTranscriptUnavailable Kind = "transcript_unavailable"
	KindTitleUnavailable      Kind = "title_unavailable"
	KindLLMRequestFailed      Kind = "llm_request_failed"
	KindRateLimited           Kind = "rate_limited"
	KindInternal              Kind = "internal"
)

type AppError struct {
	Kind    Kind   `json:"error"`
	Code    int    `json:"-"`
	Message string `json:"message"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code int, op string, err error, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func MissingParameter(op, name string) *AppError {
	return newError(KindMissingParameter, http.StatusBadRequest, op, nil,
		fmt.Sprintf("missing required parameter %q", name))
}

func UnsupportedURL(op, rawURL string) *AppError {
	return newError(KindUnsupportedURL, http.StatusBadRequest, op, nil,
		fmt.Sprintf("unsupported video URL: %s", rawURL))
}

func TranscriptUnavailable(op string, err error, message string) *AppError {
	return newError(KindTranscriptUnavailable, http.StatusNotFound, op, err, message)
}

func TitleUnavailable(op string, err error, message string) *AppError {
	return newError(KindTitleUnavailable, http.StatusBadGateway, op, err, message)
}

func LLMRequestFailed(op string, err error, message string) *AppError {
	return newError(KindLLMRequestFailed, http.StatusBadGateway, op, err, message)
}

func RateLimited(op string) *AppError {
	return newError(KindRateLimited, http.StatusTooManyRequests, op, nil, "rate limit exceeded")
}

func Internal(op string, err error, message string) *AppError {
	return newError(KindInternal, http.StatusInternalServerError, op, err, message)
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf reports the kind of err. Errors that are not an *AppError are
// internal.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func StatusCode(err error) int {
	if appErr, ok := As(err); ok && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text that may be shown to a client. Internal errors
// never leak their cause.
func PublicMessage(err error) string {
	if appErr, ok := As(err); ok && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "An error occurred while processing your request. Please try again later."
}

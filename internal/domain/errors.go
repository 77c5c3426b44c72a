package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals a missing or invalid required setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrRemoteService signals a transient failure of a remote provider (retried).
	ErrRemoteService = errors.New("remote service error")
	// ErrRemoteRejected signals a provider rejecting the request itself (not retried).
	ErrRemoteRejected = errors.New("remote service rejected request")
	// ErrContractViolation signals a provider response that breaks the expected shape.
	ErrContractViolation = errors.New("contract violation")
	// ErrSearchFailed signals a failed retrieval pipeline run.
	ErrSearchFailed = errors.New("search failed")
	// ErrCompletionFailed signals a failed language model completion.
	ErrCompletionFailed = errors.New("completion failed")
	// ErrInvalidRequest signals caller input that cannot be processed.
	ErrInvalidRequest = errors.New("invalid request")
)

// RemoteError describes a failed call to a remote provider.
// It unwraps to ErrRemoteService or ErrRemoteRejected.
type RemoteError struct {
	Service    string
	Op         string
	StatusCode int
	Message    string
	kind       error
}

// NewServiceError creates a transient provider error.
func NewServiceError(service, op string, status int, message string) error {
	return &RemoteError{Service: service, Op: op, StatusCode: status, Message: message, kind: ErrRemoteService}
}

// NewRejectedError creates a non-transient provider error.
func NewRejectedError(service, op string, status int, message string) error {
	return &RemoteError{Service: service, Op: op, StatusCode: status, Message: message, kind: ErrRemoteRejected}
}

func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %s", e.Service, e.Op, e.kind.Error(), e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Service, e.Op, e.kind.Error(), e.Message)
}

func (e *RemoteError) Unwrap() error { return e.kind }

// IsTransient reports whether err is a provider failure worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteService)
}

// SearchError wraps the cause of a failed search with the pipeline stage that produced it.
type SearchError struct {
	Stage string
	Err   error
}

// NewSearchError creates a search failure for the given stage.
func NewSearchError(stage string, err error) error {
	return &SearchError{Stage: stage, Err: err}
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrSearchFailed.Error(), e.Stage, e.Err.Error())
}

func (e *SearchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSearchFailed) true for every SearchError.
func (e *SearchError) Is(target error) bool { return target == ErrSearchFailed }

// ContractViolation creates an error describing a malformed provider response.
func ContractViolation(service, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", service, fmt.Sprintf(format, args...), ErrContractViolation)
}

// TransientStatus reports whether an HTTP status from a provider is worth retrying.
// Server errors and rate limiting are transient; other 4xx responses are not.
func TransientStatus(code int) bool {
	return code >= 500 || code == 429
}

package fetch

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a timeout while fetching a page.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus indicates a non-success response from the provider.
type ErrHTTPStatus struct {
	StatusCode int
	Err        error
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Errorf("http status %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrHTTPStatus) Unwrap() error {
	return e.Err
}

// ErrMalformedPayload indicates a page body that could not be decoded.
type ErrMalformedPayload struct {
	Err error
}

func (e ErrMalformedPayload) Error() string {
	return fmt.Errorf("malformed payload: %w", e.Err).Error()
}

func (e ErrMalformedPayload) Unwrap() error {
	return e.Err
}

// CollectionError scopes a fetch failure to the collection it occurred in.
// A collection error never aborts the overall ingestion pass.
type CollectionError struct {
	Handle string
	Err    error
}

func (e CollectionError) Error() string {
	return fmt.Errorf("collection %s: %w", e.Handle, e.Err).Error()
}

func (e CollectionError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	var malformed ErrMalformedPayload
	if errors.As(err, &malformed) {
		return "malformed_payload"
	}
	return "other"
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"errors"
	"strconv"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeInvalidRequest: required input missing, rejected before any network call.
	ErrTypeInvalidRequest
	// ErrTypeConnection: transport failure before or during streaming.
	ErrTypeConnection
	// ErrTypeMalformedLine: a stream segment that cannot be parsed. Absorbed by the decoder.
	ErrTypeMalformedLine
	// ErrTypeServerRejected: non-success HTTP status, usually with a structured payload.
	ErrTypeServerRejected
	// ErrTypeStreamTruncated: end of stream with no terminal record.
	ErrTypeStreamTruncated
	// ErrTypeTimeout: the request or stream deadline expired.
	ErrTypeTimeout
	// ErrTypeCanceled: the caller canceled the request.
	ErrTypeCanceled
)

// String returns a stable lowercase name, used in logs and JSON output.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeInvalidRequest:
		return "invalid_request"
	case ErrTypeConnection:
		return "connection_error"
	case ErrTypeMalformedLine:
		return "malformed_line"
	case ErrTypeServerRejected:
		return "server_rejected"
	case ErrTypeStreamTruncated:
		return "stream_truncated"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the document backend client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int // set for ErrTypeServerRejected
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrStreamTruncated = &ClientError{Type: ErrTypeStreamTruncated, Message: "task ended without result"}
	ErrCanceled        = &ClientError{Type: ErrTypeCanceled, Message: "task canceled"}
)

// NewInvalidRequest builds an ErrTypeInvalidRequest error.
func NewInvalidRequest(message string) *ClientError {
	return &ClientError{Type: ErrTypeInvalidRequest, Message: message}
}

// newRejected builds an ErrTypeServerRejected error for the given status.
func newRejected(status int, message string) *ClientError {
	if message == "" {
		message = "request failed: " + strconv.Itoa(status)
	}
	return &ClientError{Type: ErrTypeServerRejected, Message: message, StatusCode: status}
}

// TypeOf returns the ErrorType carried by err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsInvalidRequest checks if an error was rejected before reaching the network.
func IsInvalidRequest(err error) bool {
	return TypeOf(err) == ErrTypeInvalidRequest
}

// IsServerRejected checks if the backend answered with a non-success status.
func IsServerRejected(err error) bool {
	return TypeOf(err) == ErrTypeServerRejected
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return TypeOf(err) == ErrTypeTimeout
}

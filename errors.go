// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Local failures returned synchronously by client operations. No message is
// sent and no pending request is created when one of these is returned.
var (
	// ErrInvalidArgument reports a malformed call (bad datastore pair, bad flags, empty xpath)
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoSuchSession reports an unknown client id or session id
	ErrNoSuchSession = errors.New("no such session")

	// ErrSizeExceeded reports an outgoing message larger than the configured maximum
	ErrSizeExceeded = errors.New("message size exceeded")

	// ErrSendFailed reports that the transport refused the message
	ErrSendFailed = errors.New("send failed")

	// ErrNotConnected reports a send attempted while the transport is down
	ErrNotConnected = fmt.Errorf("%w: not connected", ErrSendFailed)

	// ErrDuplicateRequest reports reuse of a request id that is still outstanding
	ErrDuplicateRequest = fmt.Errorf("%w: request id already outstanding", ErrInvalidArgument)

	// ErrClientClosed reports use of a client after Close
	ErrClientClosed = errors.New("client closed")
)

// Result is the closed set of outcomes of a client operation
type Result int

const (
	ResultSuccess Result = iota
	ResultInvalidArgument
	ResultNoSuchSession
	ResultSizeExceeded
	ResultSendFailure
)

// String returns the result name
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultInvalidArgument:
		return "invalid-argument"
	case ResultNoSuchSession:
		return "no-such-session"
	case ResultSizeExceeded:
		return "size-exceeded"
	case ResultSendFailure:
		return "send-failure"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// ResultOf maps an error returned by a client operation to its Result
//
// Example:
//
//	err := client.SendLockDS(sid, 1, mgmtfe.DatastoreCandidate, true, false)
//	switch mgmtfe.ResultOf(err) {
//	case mgmtfe.ResultSuccess:
//	case mgmtfe.ResultNoSuchSession:
//	    // session was torn down
//	}
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, ErrInvalidArgument):
		return ResultInvalidArgument
	case errors.Is(err, ErrNoSuchSession):
		return ResultNoSuchSession
	case errors.Is(err, ErrSizeExceeded):
		return ResultSizeExceeded
	default:
		return ResultSendFailure
	}
}

// OpError is a local failure of a client operation with operation context
type OpError struct {
	// Operation name that failed
	Operation string

	// Err is one of the sentinel errors above
	Err error

	// Human-readable error message
	Message string

	// InternalMsg contains detailed error information for internal logging
	InternalMsg string
}

// Error implements the error interface
func (e *OpError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mgmtfe: %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("mgmtfe: %s failed: %v: %s", e.Operation, e.Err, e.Message)
}

// Unwrap returns the sentinel error
func (e *OpError) Unwrap() error {
	return e.Err
}

// DetailedError returns the full error message including internal details
//
// This should only be used in logging contexts where disclosure of transport
// details is acceptable.
func (e *OpError) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	return fmt.Sprintf("%s (internal: %s)", e.Error(), e.InternalMsg)
}

func opError(op string, err error, format string, args ...any) *OpError {
	return &OpError{Operation: op, Err: err, Message: fmt.Sprintf(format, args...)}
}

// Error codes carried by ErrorResult when a request is resolved locally
const (
	// ErrorCodeDisconnected resolves requests swept by a connection loss (-ENOTCONN)
	ErrorCodeDisconnected = -107

	// ErrorCodeSessionDestroyed resolves requests of a destroyed session (-ECONNRESET)
	ErrorCodeSessionDestroyed = -104
)

// TransientError defines a transport status code for which a send may be retried
type TransientError struct {
	// Code is the gRPC status code to match
	Code uint32
}

// TransientErrors lists the transport status codes that do not imply a lost connection
//
// Transports report failures as gRPC status errors:
//   - codes.ResourceExhausted: write queue full
//   - codes.Aborted: write interrupted, connection still usable
//
// codes.Unavailable is deliberately absent: it means the connection is gone
// and the transport will report a disconnect.
var TransientErrors = []TransientError{
	{Code: uint32(codes.ResourceExhausted)},
	{Code: uint32(codes.Aborted)},
}

// IsTransientSendError reports whether a transport send error leaves the connection usable
func IsTransientSendError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	code := uint32(st.Code())
	for _, pattern := range TransientErrors {
		if pattern.Code == code {
			return true
		}
	}
	return false
}

// IsConnectionError reports whether a transport error means the connection is gone
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unavailable
}

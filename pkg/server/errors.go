package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for server and session table operations.
var (
	// ErrConnectionRejected is returned by a connect handler to refuse a
	// new session. The client receives 401 Unauthorized.
	ErrConnectionRejected = errors.New("engineio: connection rejected")

	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = errors.New("engineio: session not found")

	// ErrDuplicateSession is returned when inserting an ID already present.
	ErrDuplicateSession = errors.New("engineio: duplicate session")

	// ErrServerClosed is returned by operations attempted after Shutdown.
	ErrServerClosed = errors.New("engineio: server closed")

	// ErrInvalidConfig is wrapped by ValidateConfig failures.
	ErrInvalidConfig = errors.New("engineio: invalid config")
)

// HandlerError wraps a panic that occurred in an event handler.
type HandlerError struct {
	SessionID string
	Event     string
	Panic     any
	Stack     []byte
}

// Error returns the error message.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("engineio: %s handler panic in session %s: %v", e.Event, e.SessionID, e.Panic)
}

// NewHandlerError creates a new HandlerError.
func NewHandlerError(sessionID, event string, panicVal any, stack []byte) *HandlerError {
	return &HandlerError{
		SessionID: sessionID,
		Event:     event,
		Panic:     panicVal,
		Stack:     stack,
	}
}

// SessionError wraps an error with session context.
type SessionError struct {
	SessionID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with session context.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("engineio: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("engineio: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(sessionID, op string, err error) *SessionError {
	return &SessionError{
		SessionID: sessionID,
		Op:        op,
		Err:       err,
	}
}

package internal

import (
	"errors"
	"fmt"
)

// ValidationError represents input rejected before any request is made
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrEmptyMessage is returned when a submitted message is blank after trimming
var ErrEmptyMessage = &ValidationError{Field: "message", Reason: "empty after trimming whitespace"}

// UnknownAgentError represents a reference to an agent outside the fixed set
type UnknownAgentError struct {
	ID AgentID
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q", string(e.ID))
}

// RemoteError represents a non-success response from the deck API
type RemoteError struct {
	Op         string // "chat", "approve", "integrate"
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error [%s] %d: %s", e.Op, e.StatusCode, e.Message)
}

// TransportError represents a network failure or an unreadable response
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error [%s]: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError represents a push frame that could not be decoded
type ProtocolError struct {
	Frame string // truncated raw frame
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %q: %v", e.Frame, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// JournalError represents errors reading or writing the session journal
type JournalError struct {
	Path string
	Op   string // "open", "migrate", "insert", "query"
	Err  error
}

func (e *JournalError) Error() string {
	return fmt.Sprintf("journal error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *JournalError) Unwrap() error {
	return e.Err
}

// UserMessage returns the operator-facing text for a gateway failure
func UserMessage(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return fmt.Sprintf("request failed: %v", transport.Err)
	}
	return err.Error()
}

package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransportError(t *testing.T) {
	originalErr := errors.New("connection refused")
	err := &TransportError{Op: "chat", Err: originalErr}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "transport error") {
		t.Errorf("TransportError.Error() should contain 'transport error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "chat") {
		t.Errorf("TransportError.Error() should contain op, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("TransportError.Unwrap() should return original error")
	}
}

func TestProtocolError(t *testing.T) {
	originalErr := errors.New("unexpected end of JSON input")
	err := &ProtocolError{Frame: `{"asset_id":`, Err: originalErr}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "protocol error") {
		t.Errorf("ProtocolError.Error() should contain 'protocol error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "asset_id") {
		t.Errorf("ProtocolError.Error() should contain the frame, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("ProtocolError.Unwrap() should return original error")
	}
}

func TestJournalError(t *testing.T) {
	originalErr := errors.New("disk full")
	err := &JournalError{Path: "/tmp/deck.db", Op: "append message", Err: originalErr}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "journal error") || !strings.Contains(errorMsg, "/tmp/deck.db") {
		t.Errorf("JournalError.Error() = %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("JournalError.Unwrap() should return original error")
	}
}

func TestRemoteError(t *testing.T) {
	err := &RemoteError{Op: "approve", StatusCode: 404, Message: "Asset not found"}
	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "404") || !strings.Contains(errorMsg, "Asset not found") {
		t.Errorf("RemoteError.Error() = %q", errorMsg)
	}
}

func TestValidationError(t *testing.T) {
	if !strings.Contains(ErrEmptyMessage.Error(), "message") {
		t.Errorf("ErrEmptyMessage.Error() = %q", ErrEmptyMessage.Error())
	}
	var verr *ValidationError
	if !errors.As(fmt.Errorf("submit: %w", ErrEmptyMessage), &verr) {
		t.Error("wrapped ErrEmptyMessage should match *ValidationError")
	}
}

func TestUnknownAgentError(t *testing.T) {
	err := &UnknownAgentError{ID: "Marketing"}
	if !strings.Contains(err.Error(), `"Marketing"`) {
		t.Errorf("UnknownAgentError.Error() = %q", err.Error())
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "remote",
			err:  &RemoteError{Op: "chat", StatusCode: 404, Message: "Agent not found"},
			want: "Agent not found",
		},
		{
			name: "wrapped remote",
			err:  fmt.Errorf("chat: %w", &RemoteError{Op: "chat", StatusCode: 500, Message: "Server Error: Internal Server Error"}),
			want: "Server Error: Internal Server Error",
		},
		{
			name: "transport",
			err:  &TransportError{Op: "chat", Err: errors.New("connection refused")},
			want: "request failed: connection refused",
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

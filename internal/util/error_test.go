package util

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{Code: 400, Message: "Bad request"}
	if err.Error() != "Bad request" {
		t.Errorf("Expected 'Bad request', got '%s'", err.Error())
	}

	err.Details = "Invalid parameter"
	if err.Error() != "Bad request: Invalid parameter" {
		t.Errorf("Expected details in message, got '%s'", err.Error())
	}
}

func TestAppError_Wrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrConnection.Wrap(cause)

	if !errors.Is(err, ErrConnection) {
		t.Error("Wrapped error should match its sentinel")
	}
	if errors.Is(err, ErrEngineUnavailable) {
		t.Error("Wrapped error should not match a sentinel with another message")
	}
	if !errors.Is(err, cause) {
		t.Error("Wrapped error should unwrap to its cause")
	}
	if err.Details != "connection refused" {
		t.Errorf("Expected cause in details, got '%s'", err.Details)
	}
	if ErrConnection.Details != "" {
		t.Error("Wrap must not modify the sentinel")
	}
	if ErrConnection.Wrap(nil) != ErrConnection {
		t.Error("Wrapping nil should return the sentinel")
	}
}

func TestAppError_IsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("ensure index: %w", ErrQueryInvalid.Wrap(errors.New("bad mapping")))
	if !errors.Is(err, ErrQueryInvalid) {
		t.Error("Expected ErrQueryInvalid through fmt wrapping")
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "ignored") != nil {
		t.Error("Wrapping nil should return nil")
	}

	appErr := ErrNotFound.Wrap(errors.New("no index"))
	if got := WrapError(fmt.Errorf("lookup: %w", appErr), "wrapped"); got != appErr {
		t.Error("An AppError in the chain should be returned as is")
	}

	got := WrapError(errors.New("disk full"), "storage error")
	if got.Code != 500 || got.Message != "storage error" || got.Details != "disk full" {
		t.Errorf("Unexpected wrapped error %+v", got)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrQueryInvalid, 400},
		{ErrNotFound.Wrap(errors.New("x")), 404},
		{fmt.Errorf("call: %w", ErrEngineTimeout), 504},
		{ErrEngineUnavailable, 503},
		{errors.New("plain"), 500},
		{&AppError{Message: "no code"}, 500},
	}

	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

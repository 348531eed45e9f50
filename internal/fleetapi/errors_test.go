package fleetapi

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: ErrKindGeneric},
		{name: "unauthorized sentinel", err: ErrUnauthorized, want: ErrKindUnauthorized},
		{name: "wrapped unauthorized", err: fmt.Errorf("request: %w", ErrUnauthorized), want: ErrKindUnauthorized},
		{name: "conflict in detail", err: &APIError{Status: 400, Detail: "Calculation already exists for this period"}, want: ErrKindConflict},
		{name: "conflict in message", err: &APIError{Status: 400, Message: "owner calculation already exists"}, want: ErrKindConflict},
		{name: "plain 400", err: &APIError{Status: 400, Detail: "invalid period"}, want: ErrKindGeneric},
		{name: "plain error", err: errors.New("boom"), want: ErrKindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(&APIError{Status: 400, Detail: "bad period"}, "fallback"); got != "bad period" {
		t.Errorf("UserMessage = %q, want upstream detail", got)
	}
	if got := UserMessage(errors.New("dial tcp: timeout"), "Failed to save."); got != "Failed to save." {
		t.Errorf("UserMessage = %q, want fallback for transport errors", got)
	}
}

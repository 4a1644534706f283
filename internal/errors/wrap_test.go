package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrapper(t *testing.T) {
	t.Parallel()

	w := NewWrapper("app", "describe_course")

	if w.Wrap(nil, "ignored") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if w.Wrapf(nil, "ignored %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}

	cause := errors.New("db closed")
	err := w.Wrapf(cause, "could not load course %d", 42)

	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
	if got, want := err.Error(), "[app:describe_course] could not load course 42: db closed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestGetUserMessage(t *testing.T) {
	t.Parallel()

	wrapped := NewWrapper("app", "chat_turn").Wrap(errors.New("boom"), "Please try again.")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"wrapped", wrapped, "Please try again."},
		{"wrapped deeper", fmt.Errorf("handler: %w", wrapped), "Please try again."},
		{"plain", errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetUserMessage(tt.err); got != tt.want {
				t.Errorf("GetUserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

package cli

import (
	"errors"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("server.listen_address", "missing required field")

	want := "configuration error at server.listen_address: missing required field"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConfigError_NoField(t *testing.T) {
	err := NewConfigError("", "failed to load config: file not found")

	want := "configuration error: failed to load config: file not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("validation failed")
	err := NewCommandError("policy lint", underlying)

	want := "policy lint: validation failed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should see through CommandError")
	}
}

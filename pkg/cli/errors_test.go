package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCommandError(t *testing.T) {
	cause := errors.New("manifest not found")
	err := NewCommandError("apply", cause)

	if !strings.Contains(err.Error(), "apply") {
		t.Errorf("Error() = %q, want command name", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped cause")
	}

	var cmdErr *CommandError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &cmdErr) {
		t.Fatal("errors.As() should find *CommandError")
	}
	if cmdErr.Command != "apply" {
		t.Errorf("Command = %q, want apply", cmdErr.Command)
	}
}

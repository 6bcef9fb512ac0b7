package workflow

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorHelpersWrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{"not found", NotFound("equipment %s", "abc123"), ErrNotFound, "equipment abc123"},
		{"precondition", PreconditionFailed("actor %s already approved", "it"), ErrPreconditionFailed, "already approved"},
		{"invalid state", InvalidState("session is %s", "completed"), ErrInvalidState, "completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("error %q should contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	err := NotFound("x")
	if errors.Is(err, ErrPreconditionFailed) || errors.Is(err, ErrInvalidState) {
		t.Error("NotFound must not match other sentinels")
	}
}

func TestWrappedErrorSurvivesFurtherWrapping(t *testing.T) {
	inner := PreconditionFailed("double approval")
	outer := fmt.Errorf("approve transfer: %w", inner)
	if !errors.Is(outer, ErrPreconditionFailed) {
		t.Error("sentinel should survive another layer of wrapping")
	}
}

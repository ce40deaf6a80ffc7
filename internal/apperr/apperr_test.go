package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"tagged error", New(NotFound, "account not found"), NotFound},
		{"wrapped collaborator error", Wrap(External, "generate content", errors.New("quota")), External},
		{"tagged error wrapped again with fmt", fmt.Errorf("create transaction: %w", New(Validation, "negative amount")), Validation},
		{"plain error", errors.New("boom"), Unknown},
		{"nil", nil, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(External, "call inference service", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to survive errors.Is")
	}
	if !IsKind(err, External) {
		t.Errorf("IsKind() = false, want true for %v", err)
	}
}

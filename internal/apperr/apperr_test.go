package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad %s", "input"), KindValidation},
		{"wrapped not found", fmt.Errorf("load: %w", NotFound("gone")), KindNotFound},
		{"conflict", Conflict("busy"), KindConflict},
		{"plain error", errors.New("boom"), KindPersistence},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestPersistenceHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence("Could not load appointment.", cause)

	if MessageOf(err) != "Could not load appointment." {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be unwrappable")
	}
	if MessageOf(cause) != "Internal server error." {
		t.Fatalf("unexpected fallback message %q", MessageOf(cause))
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Authorization("nope"))
	if KindOf(err) != KindAuthorization {
		t.Fatalf("expected authorization kind, got %v", KindOf(err))
	}
}

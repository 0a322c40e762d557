package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateStageDataBounds(t *testing.T) {
	cases := []struct {
		name string
		data string
		kind ValidationKind
		ok   bool
	}{
		{"empty", "", ValidationEmptyContent, false},
		{"whitespace only", "   \t\n", ValidationEmptyContent, false},
		{"four chars", "abcd", ValidationTooShort, false},
		{"four chars padded", "  abcd  ", ValidationTooShort, false},
		{"five chars", "abcde", "", true},
		{"max length", strings.Repeat("a", 500), "", true},
		{"over max", strings.Repeat("a", 501), ValidationTooLong, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateStageData(c.data)
			if c.ok {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Kind != c.kind {
				t.Fatalf("kind = %q, want %q", verr.Kind, c.kind)
			}
		})
	}
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := NotFoundError{Entity: EntityProduct, ID: "prod-42"}
	if got := err.Error(); got != "product prod-42 not found" {
		t.Fatalf("unexpected message %q", got)
	}
}

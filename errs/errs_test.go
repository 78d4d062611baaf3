package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(Xz, "decompress failed", cause).WithPath("primary.xml.xz")

	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause to be discoverable via errors.Is")
	}

	kind, ok := KindOf(err)
	if !ok || kind != Xz {
		t.Errorf("expected Kind=Xz, got %v ok=%v", kind, ok)
	}

	if got := err.Error(); got == "" {
		t.Errorf("expected non-empty error string")
	}
}

func TestKindString(t *testing.T) {
	if Gz.String() != "Gz" {
		t.Errorf("expected Gz, got %s", Gz.String())
	}
	if Kind(999).String() != "Unknown" {
		t.Errorf("expected Unknown for out-of-range kind")
	}
}

func TestIsCompareByKindOnly(t *testing.T) {
	a := New(Magic, "one message")
	b := New(Magic, "different message")
	if !errors.Is(a, b) {
		t.Errorf("expected errors with same Kind to satisfy Is")
	}

	c := New(Crypto, "other kind")
	if errors.Is(a, c) {
		t.Errorf("expected errors with different Kind to not satisfy Is")
	}
}

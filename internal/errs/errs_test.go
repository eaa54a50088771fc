package errs

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapPreservesChain(t *testing.T) {
	err := Wrapf(context.DeadlineExceeded, "get order %q", "ORD-001")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wrapf() lost chain: %v", err)
	}
	if got := err.Error(); got != `get order "ORD-001": context deadline exceeded` {
		t.Fatalf("Wrapf() = %q", got)
	}
	if Wrap(nil, "noop") != nil {
		t.Fatalf("Wrap(nil) expected nil")
	}
}

func TestInfraMarker(t *testing.T) {
	base := errors.New("database is locked")
	marked := Wrap(Infra(base), "update esim")

	if !IsInfra(marked) {
		t.Fatalf("IsInfra() expected true for %v", marked)
	}
	if !errors.Is(marked, base) {
		t.Fatalf("Infra() lost chain: %v", marked)
	}
	if !strings.Contains(marked.Error(), "infrastructure failure") {
		t.Fatalf("Infra() message = %q", marked.Error())
	}
	if Infra(marked) != marked {
		t.Fatalf("Infra() should not double wrap")
	}
	if IsInfra(base) {
		t.Fatalf("IsInfra() expected false for unmarked error")
	}
}

func TestErrorChainStrings(t *testing.T) {
	err := Wrap(Wrap(errors.New("root"), "inner"), "outer")
	chain := ErrorChainStrings(err)
	if len(chain) != 3 || chain[2] != "root" {
		t.Fatalf("ErrorChainStrings() = %#v", chain)
	}
}

func TestWithStackCapturesOnce(t *testing.T) {
	base := Infra(errors.New("database is locked"))
	first := WithStack(base)
	var se *StackError
	if !errors.As(first, &se) || len(se.Stack()) == 0 {
		t.Fatalf("WithStack() did not record a stack")
	}
	wrapped := Wrap(first, "get order")
	if WithStack(wrapped) != wrapped {
		t.Fatalf("WithStack() captured a second stack")
	}
	if !IsInfra(wrapped) {
		t.Fatalf("IsInfra() lost marker through WithStack")
	}
	if WithStack(nil) != nil {
		t.Fatalf("WithStack(nil) expected nil")
	}
}

func TestLoggableIncludesInfraAndStack(t *testing.T) {
	value := Loggable(WithStack(Infra(errors.New("broker down")))).LogValue()
	keys := map[string]bool{}
	for _, attr := range value.Group() {
		keys[attr.Key] = true
	}
	for _, key := range []string{"message", "chain", "infra", "stack"} {
		if !keys[key] {
			t.Fatalf("Loggable() missing %q in %v", key, keys)
		}
	}
	if len(Loggable(nil).LogValue().Group()) != 0 {
		t.Fatalf("Loggable(nil) expected empty group")
	}
}

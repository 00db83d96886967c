package musicerr

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New(KindDecodeError, "src1", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is did not see through Unwrap")
	}
	if err.Kind != KindDecodeError {
		t.Fatalf("Kind = %v, want KindDecodeError", err.Kind)
	}
}

func TestErrorMessageIncludesSourceID(t *testing.T) {
	err := New(KindOverrun, "src7", errors.New("full"))
	msg := err.Error()
	if !strings.Contains(msg, "src7") || !strings.Contains(msg, "overrun") {
		t.Fatalf("Error() = %q, missing source id or kind", msg)
	}
}

func TestNewFoldsContext(t *testing.T) {
	err := New(KindInvalidArgument, "src1", errors.New("bad"), "channels", 2, "len", 5)
	if err.Context["channels"] != 2 || err.Context["len"] != 5 {
		t.Fatalf("Context = %+v, want channels=2 len=5", err.Context)
	}
}

func TestNewIgnoresOddContext(t *testing.T) {
	err := New(KindInvalidArgument, "src1", errors.New("bad"), "onlykey")
	if len(err.Context) != 0 {
		t.Fatalf("Context = %+v, want empty (dangling key dropped)", err.Context)
	}
}

func TestEventRoundTrip(t *testing.T) {
	ev := NewEvent(KindUnderrun, "src2", errors.New("dry"))
	if ev.Kind != KindUnderrun || ev.SourceID != "src2" {
		t.Fatalf("Event = %+v", ev)
	}
}
